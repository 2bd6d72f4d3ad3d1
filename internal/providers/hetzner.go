package providers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"nathanbeddoewebdev/fleetmetrics/internal/catalog"
	"nathanbeddoewebdev/fleetmetrics/internal/domain"
	platformproviders "nathanbeddoewebdev/fleetmetrics/internal/platform/providers"
	"nathanbeddoewebdev/fleetmetrics/internal/services/auth"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// HetznerProvider discovers hcloud servers and reads their metric series.
type HetznerProvider struct {
	client *hcloud.Client
}

// NewHetznerProvider creates a HetznerProvider with the given hcloud client options.
// Default options (application name) are applied first; callers can override them.
func NewHetznerProvider(opts ...hcloud.ClientOption) *HetznerProvider {
	defaults := []hcloud.ClientOption{
		hcloud.WithApplication("fleetmetrics", "0.1.0"),
	}
	allOpts := append(defaults, opts...)
	return &HetznerProvider{
		client: hcloud.NewClient(allOpts...),
	}
}

// RegisterHetzner registers the Hetzner provider factory with the global registry.
func RegisterHetzner() {
	Register("hetzner", func(store auth.Store, _ Settings) (domain.Provider, error) {
		creds, err := platformproviders.Lookup("hetzner").Resolve(store)
		if err != nil {
			return nil, fmt.Errorf("hetzner auth: %w", err)
		}

		return NewHetznerProvider(hcloud.WithToken(creds[""])), nil
	})
}

func (h *HetznerProvider) GetDisplayName() string {
	return "Hetzner"
}

var hetznerStatuses = map[domain.LifecycleState][]hcloud.ServerStatus{
	domain.StatePending:    {hcloud.ServerStatusInitializing, hcloud.ServerStatusStarting},
	domain.StateRunning:    {hcloud.ServerStatusRunning},
	domain.StateStopping:   {hcloud.ServerStatusStopping},
	domain.StateStopped:    {hcloud.ServerStatusOff},
	domain.StateTerminated: {hcloud.ServerStatusDeleting},
}

func hetznerState(s hcloud.ServerStatus) domain.LifecycleState {
	for state, statuses := range hetznerStatuses {
		for _, st := range statuses {
			if st == s {
				return state
			}
		}
	}
	return domain.StateUnknown
}

// ListResources returns all servers whose status maps to one of states.
func (h *HetznerProvider) ListResources(ctx context.Context, states []domain.LifecycleState) ([]domain.Resource, error) {
	var statuses []hcloud.ServerStatus
	for _, s := range states {
		statuses = append(statuses, hetznerStatuses[s]...)
	}

	servers, err := h.client.Server.AllWithOpts(ctx, hcloud.ServerListOpts{Status: statuses})
	if err != nil {
		return nil, &domain.DiscoveryError{Provider: "hetzner", Err: classifyHcloudError(err)}
	}

	resources := make([]domain.Resource, 0, len(servers))
	for _, s := range servers {
		resources = append(resources, toHetznerResource(s))
	}
	return resources, nil
}

func toHetznerResource(s *hcloud.Server) domain.Resource {
	r := domain.Resource{
		Provider:   "hetzner",
		ID:         strconv.FormatInt(s.ID, 10),
		Name:       s.Name,
		State:      hetznerState(s.Status),
		LaunchTime: s.Created.UTC(),
		Platform:   domain.DefaultPlatform,
	}
	if r.Name == "" {
		r.Name = domain.DefaultResourceName
	}
	if !s.PublicNet.IPv4.IsUnspecified() {
		r.PublicIP = s.PublicNet.IPv4.IP.String()
	}
	if len(s.PrivateNet) > 0 && s.PrivateNet[0].IP != nil {
		r.PrivateIP = s.PrivateNet[0].IP.String()
	}
	if s.ServerType != nil {
		r.Type = s.ServerType.Name
	}
	if s.Datacenter != nil {
		r.AvailabilityZone = s.Datacenter.Name
	}
	return r
}

func hetznerMetricType(metric string) (hcloud.ServerMetricType, error) {
	switch {
	case metric == "cpu":
		return hcloud.ServerMetricCPU, nil
	case strings.HasPrefix(metric, "disk."):
		return hcloud.ServerMetricDisk, nil
	case strings.HasPrefix(metric, "network."):
		return hcloud.ServerMetricNetwork, nil
	}
	return "", fmt.Errorf("unknown hetzner metric %q", metric)
}

// GetMetricStatistics reads one hcloud metric series. hcloud serves a single
// value per step, so only the Average statistic can be answered.
func (h *HetznerProvider) GetMetricStatistics(ctx context.Context, q domain.MetricQuery) ([]domain.Observation, error) {
	for _, s := range q.Statistics {
		if s != domain.StatAverage {
			return nil, fmt.Errorf("hetzner %s: %w: %s", q.Metric, domain.ErrUnsupportedStatistic, s)
		}
	}

	raw := q.Dimension(catalog.HetznerDimensionServerID)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid server ID %q: %w", raw, err)
	}
	metricType, err := hetznerMetricType(q.Metric)
	if err != nil {
		return nil, err
	}

	step := int(q.Period / time.Second)
	if step < 1 {
		step = 1
	}
	metrics, _, err := h.client.Server.GetMetrics(ctx, &hcloud.Server{ID: id}, hcloud.ServerGetMetricsOpts{
		Types: []hcloud.ServerMetricType{metricType},
		Start: q.Start,
		End:   q.End,
		Step:  step,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get server metrics: %w", classifyHcloudError(err))
	}
	if metrics == nil {
		return nil, nil
	}

	values := metrics.TimeSeries[q.Metric]
	out := make([]domain.Observation, 0, len(values))
	for _, v := range values {
		f, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			continue
		}
		ts := time.Unix(0, int64(v.Timestamp*float64(time.Second))).UTC()
		if ts.Before(q.Start) || !ts.Before(q.End) {
			continue
		}
		obs := domain.Observation{Timestamp: ts}
		obs.Values.Set(domain.StatAverage, f)
		out = append(out, obs)
	}
	return out, nil
}

func classifyHcloudError(err error) error {
	switch {
	case hcloud.IsError(err, hcloud.ErrorCodeNotFound):
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	case hcloud.IsError(err, hcloud.ErrorCodeUnauthorized), hcloud.IsError(err, hcloud.ErrorCodeForbidden):
		return fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	case hcloud.IsError(err, hcloud.ErrorCodeRateLimitExceeded):
		return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}
	return err
}
