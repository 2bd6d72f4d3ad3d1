package domain

import (
	"strings"
	"time"
)

// LifecycleState is the provider-neutral state of a resource.
type LifecycleState string

const (
	StatePending    LifecycleState = "pending"
	StateRunning    LifecycleState = "running"
	StateStopping   LifecycleState = "stopping"
	StateStopped    LifecycleState = "stopped"
	StateTerminated LifecycleState = "terminated"
	StateUnknown    LifecycleState = "unknown"
)

// DefaultStates is the lifecycle filter used when none is configured.
var DefaultStates = []LifecycleState{StateRunning, StateStopped, StatePending}

// ParseStates converts a list of names into lifecycle states. Unknown names
// are returned as the second value so callers can reject them.
func ParseStates(names []string) ([]LifecycleState, []string) {
	var states []LifecycleState
	var unknown []string
	for _, n := range names {
		s := LifecycleState(strings.ToLower(strings.TrimSpace(n)))
		switch s {
		case StatePending, StateRunning, StateStopping, StateStopped, StateTerminated:
			states = append(states, s)
		case "":
		default:
			unknown = append(unknown, n)
		}
	}
	return states, unknown
}

const (
	DefaultResourceName = "unnamed"
	DefaultPlatform     = "linux"
)

// Resource is a monitorable compute unit discovered from a provider.
type Resource struct {
	Provider         string         `json:"provider"`
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Type             string         `json:"type"`
	AvailabilityZone string         `json:"availability_zone"`
	State            LifecycleState `json:"state"`
	PrivateIP        string         `json:"private_ip,omitempty"`
	PublicIP         string         `json:"public_ip,omitempty"`
	LaunchTime       time.Time      `json:"launch_time"`
	Platform         string         `json:"platform"`
}

// ResourceInfo is the latest warehouse-side view of a resource.
type ResourceInfo struct {
	Provider         string    `json:"provider"`
	ID               string    `json:"resource_id"`
	Name             string    `json:"resource_name"`
	Type             string    `json:"resource_type"`
	AvailabilityZone string    `json:"availability_zone"`
	Platform         string    `json:"platform"`
	LastDay          time.Time `json:"last_day"`
}
