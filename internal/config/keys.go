package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"nathanbeddoewebdev/fleetmetrics/internal/util"
)

// KeySpec describes a single configuration key.
type KeySpec struct {
	// Name is the dotted key (e.g. "collect.lookback"). It is also the JSON
	// path in the config file.
	Name string

	// Description is a short human-readable explanation shown in help text.
	Description string

	// Default is the built-in value. Its type decides how `config set`
	// parses input: string, int, bool, time.Duration or []string.
	Default any
}

// Keys is the authoritative list of all supported configuration keys.
// To add a new option: add a field to Config and append a KeySpec here.
var Keys = []KeySpec{
	{Name: "provider", Description: "Provider collected when --provider is not specified (aws, hetzner)", Default: "aws"},
	{Name: "aws.region", Description: "AWS region for EC2 discovery and CloudWatch", Default: "us-east-1"},
	{Name: "aws.memory-namespace", Description: "CloudWatch namespace of the memory agent metrics", Default: "CWAgent"},
	{Name: "collect.lookback", Description: "Extraction window ending now", Default: time.Hour},
	{Name: "collect.period", Description: "Aggregation period requested from the telemetry source", Default: 5 * time.Minute},
	{Name: "collect.max-workers", Description: "Concurrent resource extractions", Default: 10},
	{Name: "collect.states", Description: "Lifecycle states to discover (comma separated)", Default: []string{"running", "stopped", "pending"}},
	{Name: "collect.overlap", Description: "Overlap kept with the previous window for --since-last-run", Default: 10 * time.Minute},
	{Name: "storage.endpoint", Description: "S3-compatible endpoint host, or file:///path for a local directory", Default: "s3.amazonaws.com"},
	{Name: "storage.bucket", Description: "Bucket holding the partitioned files", Default: ""},
	{Name: "storage.prefix", Description: "Key prefix under the bucket", Default: "metrics"},
	{Name: "storage.region", Description: "Bucket region", Default: ""},
	{Name: "storage.use-ssl", Description: "Use HTTPS for the storage endpoint", Default: true},
	{Name: "storage.local-copy", Description: "Directory that also receives every written file", Default: ""},
	{Name: "load.lookback-days", Description: "Days of partitions selected for loading", Default: 3},
	{Name: "load.batch-size", Description: "Rows committed per warehouse transaction", Default: 1000},
	{Name: "warehouse.driver", Description: "Warehouse driver (postgres, sqlite)", Default: "postgres"},
	{Name: "warehouse.dsn", Description: "Warehouse connection string, or file path for sqlite", Default: ""},
	{Name: "pushgateway.url", Description: "Prometheus Pushgateway receiving per-run metrics", Default: ""},
	{Name: "redis.addr", Description: "Redis address for the run lease; empty disables the lease", Default: ""},
	{Name: "redis.lease-ttl", Description: "Expiry of a held run lease", Default: 30 * time.Minute},
	{Name: "log.level", Description: "Log level (debug, info, warn, error)", Default: "info"},
	{Name: "serve.addr", Description: "Listen address of the read API", Default: ":8080"},
	{Name: "resources.cache-ttl", Description: "How long `resources list` reuses a directory listing", Default: 5 * time.Minute},
	{Name: "resources.cache-dir", Description: "Directory of cached listings; empty uses the user cache dir", Default: ""},
}

// Lookup returns the KeySpec for the given name, or nil if not found.
// The name is matched case-insensitively after trimming whitespace.
func Lookup(name string) *KeySpec {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for i := range Keys {
		if Keys[i].Name == normalized {
			return &Keys[i]
		}
	}
	return nil
}

// KeyNames returns the names of all registered keys.
func KeyNames() []string {
	names := make([]string, len(Keys))
	for i, k := range Keys {
		names[i] = k.Name
	}
	return names
}

// KeysHelp builds a formatted block listing all available keys and their
// descriptions, suitable for inclusion in Cobra Long help text.
func KeysHelp() string {
	if len(Keys) == 0 {
		return ""
	}

	maxLen := 0
	for _, k := range Keys {
		if len(k.Name) > maxLen {
			maxLen = len(k.Name)
		}
	}

	var b strings.Builder
	b.WriteString("Available keys:\n")
	for _, k := range Keys {
		fmt.Fprintf(&b, "  %-*s   %s\n", maxLen, k.Name, k.Description)
	}
	return b.String()
}

// parse converts CLI input into the value stored in the file.
func (k KeySpec) parse(value string) (any, error) {
	value = strings.TrimSpace(value)
	switch k.Default.(type) {
	case int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("want an integer: %w", err)
		}
		if n < 0 {
			return nil, fmt.Errorf("must not be negative")
		}
		return n, nil
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("want true or false: %w", err)
		}
		return b, nil
	case time.Duration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, err
		}
		if d <= 0 {
			return nil, fmt.Errorf("must be positive")
		}
		// Stored as text so the file stays readable.
		return d.String(), nil
	case []string:
		return util.SplitList(value), nil
	default:
		return value, nil
	}
}

// format renders a resolved value for display.
func (k KeySpec) format(v any) string {
	switch k.Default.(type) {
	case time.Duration:
		return cast.ToDuration(v).String()
	case []string:
		return strings.Join(cast.ToStringSlice(v), ",")
	default:
		return cast.ToString(v)
	}
}
