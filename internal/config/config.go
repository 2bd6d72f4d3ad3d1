// Package config handles layered configuration for fleetmetrics.
//
// Values resolve in increasing priority: built-in defaults, the JSON file at
// ~/.config/fleetmetrics/config.json (or the platform-equivalent path
// returned by os.UserConfigDir), then FLEETMETRICS_* environment variables.
// Command flags override all of these at the call site.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	appDir    = "fleetmetrics"
	fileName  = "config.json"
	envPrefix = "FLEETMETRICS"
)

// pathOverride, when non-empty, replaces the default config file path.
// Intended for testing. Use SetPath / ResetPath to manage.
var pathOverride string

// SetPath overrides the config file path. Intended for testing.
func SetPath(p string) { pathOverride = p }

// ResetPath clears the path override, reverting to the default. Intended for testing.
func ResetPath() { pathOverride = "" }

// Config is the effective configuration of one invocation.
type Config struct {
	Provider    string            `mapstructure:"provider"`
	AWS         AWSConfig         `mapstructure:"aws"`
	Collect     CollectConfig     `mapstructure:"collect"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Load        LoadConfig        `mapstructure:"load"`
	Warehouse   WarehouseConfig   `mapstructure:"warehouse"`
	Pushgateway PushgatewayConfig `mapstructure:"pushgateway"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Log         LogConfig         `mapstructure:"log"`
	Serve       ServeConfig       `mapstructure:"serve"`
	Resources   ResourcesConfig   `mapstructure:"resources"`
}

type AWSConfig struct {
	Region          string `mapstructure:"region"`
	MemoryNamespace string `mapstructure:"memory-namespace"`
}

type CollectConfig struct {
	Lookback   time.Duration `mapstructure:"lookback"`
	Period     time.Duration `mapstructure:"period"`
	MaxWorkers int           `mapstructure:"max-workers"`
	States     []string      `mapstructure:"states"`
	Overlap    time.Duration `mapstructure:"overlap"`
}

type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use-ssl"`
	LocalCopy string `mapstructure:"local-copy"`
}

type LoadConfig struct {
	LookbackDays int `mapstructure:"lookback-days"`
	BatchSize    int `mapstructure:"batch-size"`
}

type WarehouseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type PushgatewayConfig struct {
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	LeaseTTL time.Duration `mapstructure:"lease-ttl"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

type ResourcesConfig struct {
	CacheTTL time.Duration `mapstructure:"cache-ttl"`
	CacheDir string        `mapstructure:"cache-dir"`
}

// Path returns the absolute path to the config file.
// If SetPath has been called, that value is returned instead.
func Path() (string, error) {
	if pathOverride != "" {
		return pathOverride, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: unable to determine config directory: %w", err)
	}
	return filepath.Join(base, appDir, fileName), nil
}

// Load returns the effective configuration. A missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit file path. An empty path uses Path().
func LoadFrom(path string) (*Config, error) {
	v, err := layered(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to decode: %w", err)
	}
	return &cfg, nil
}

// layered builds a viper instance with defaults, the file and the
// environment.
func layered(path string) (*viper.Viper, error) {
	v := viper.New()
	for _, k := range Keys {
		v.SetDefault(k.Name, k.Default)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := readFile(v, path); err != nil {
		return nil, err
	}
	return v, nil
}

// fileOnly builds a viper instance holding just the persisted file, so that
// writing it back never captures defaults or environment values.
func fileOnly(path string) (*viper.Viper, string, error) {
	if path == "" {
		var err error
		if path, err = Path(); err != nil {
			return nil, "", err
		}
	}
	v := viper.New()
	if err := readFile(v, path); err != nil {
		return nil, "", err
	}
	return v, path, nil
}

func readFile(v *viper.Viper, path string) error {
	if path == "" {
		var err error
		if path, err = Path(); err != nil {
			return err
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: failed to stat %s: %w", path, err)
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	return nil
}

// Get returns the effective value of key as a display string.
func Get(key string) (string, error) {
	return GetFrom("", key)
}

// GetFrom is Get with an explicit file path.
func GetFrom(path, key string) (string, error) {
	spec := Lookup(key)
	if spec == nil {
		return "", unknownKey(key)
	}
	v, err := layered(path)
	if err != nil {
		return "", err
	}
	return spec.format(v.Get(spec.Name)), nil
}

// Set validates value for key and persists it to the config file,
// creating the parent directory if needed.
func Set(key, value string) error {
	return SetIn("", key, value)
}

// SetIn is Set with an explicit file path.
func SetIn(path, key, value string) error {
	spec := Lookup(key)
	if spec == nil {
		return unknownKey(key)
	}
	parsed, err := spec.parse(value)
	if err != nil {
		return fmt.Errorf("config: invalid value for %s: %w", spec.Name, err)
	}

	v, path, err := fileOnly(path)
	if err != nil {
		return err
	}
	v.Set(spec.Name, parsed)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: failed to create directory %s: %w", dir, err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}
	return nil
}

func unknownKey(key string) error {
	return fmt.Errorf("config: unknown key %q (available: %s)", key, strings.Join(KeyNames(), ", "))
}
