// Package app builds the collaborators a command needs from the effective
// configuration: logger, credential store, provider, object storage,
// warehouse, run ledger and run lease.
package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nathanbeddoewebdev/fleetmetrics/internal/config"
	"nathanbeddoewebdev/fleetmetrics/internal/discoverycache"
	"nathanbeddoewebdev/fleetmetrics/internal/domain"
	"nathanbeddoewebdev/fleetmetrics/internal/jobmetrics"
	"nathanbeddoewebdev/fleetmetrics/internal/lease"
	"nathanbeddoewebdev/fleetmetrics/internal/logger"
	"nathanbeddoewebdev/fleetmetrics/internal/objectstore"
	platformproviders "nathanbeddoewebdev/fleetmetrics/internal/platform/providers"
	"nathanbeddoewebdev/fleetmetrics/internal/providers"
	"nathanbeddoewebdev/fleetmetrics/internal/runlog"
	"nathanbeddoewebdev/fleetmetrics/internal/services/auth"
	"nathanbeddoewebdev/fleetmetrics/internal/util"
	"nathanbeddoewebdev/fleetmetrics/internal/warehouse"
)

// storeOverride, when set, replaces the keychain store. Intended for testing.
var storeOverride auth.Store

// SetAuthStore overrides the credential store. Intended for testing.
func SetAuthStore(s auth.Store) { storeOverride = s }

// ResetAuthStore reverts to the OS keychain. Intended for testing.
func ResetAuthStore() { storeOverride = nil }

// AuthStore returns the credential store in effect.
func AuthStore() auth.Store {
	if storeOverride != nil {
		return storeOverride
	}
	return auth.DefaultStore()
}

// App is the per-invocation environment of a command.
type App struct {
	Config *config.Config
	Log    *zap.Logger
	Auth   auth.Store
}

// FromCommand loads configuration honoring the persistent --config and
// --log-level flags when the command tree defines them. Logs go to the
// command's stderr.
func FromCommand(cmd *cobra.Command) (*App, error) {
	return New(flagString(cmd, "config"), flagString(cmd, "log-level"), cmd.ErrOrStderr())
}

// New loads the configuration at path (empty for the default location) and
// builds a JSON logger writing to w. A non-empty level overrides log.level.
func New(path, level string, w io.Writer) (*App, error) {
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, err
	}
	if level == "" {
		level = cfg.Log.Level
	}
	log, err := logger.NewWithWriter(level, w)
	if err != nil {
		return nil, err
	}
	return &App{Config: cfg, Log: log, Auth: AuthStore()}, nil
}

func flagString(cmd *cobra.Command, name string) string {
	if f := cmd.Flag(name); f != nil {
		return strings.TrimSpace(f.Value.String())
	}
	return ""
}

// Close flushes the logger.
func (a *App) Close() {
	logger.Flush(a.Log)
}

// ProviderName returns name, or the configured default when name is empty.
func (a *App) ProviderName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = a.Config.Provider
	}
	return name
}

// Provider resolves a registered provider with stored credentials.
func (a *App) Provider(name string) (domain.Provider, error) {
	return providers.Get(name, a.Auth, providers.Settings{Region: a.Config.AWS.Region})
}

// ObjectStore returns the configured object storage. S3 keys come from the
// "storage" credential spec; without them the endpoint is used anonymously.
func (a *App) ObjectStore() (objectstore.Store, error) {
	sc := a.Config.Storage
	cfg := objectstore.Config{
		Endpoint: sc.Endpoint,
		Region:   sc.Region,
		UseSSL:   sc.UseSSL,
	}
	if !strings.HasPrefix(sc.Endpoint, "file://") {
		creds, err := platformproviders.Lookup("storage").ResolveOptional(a.Auth)
		if err != nil {
			return nil, fmt.Errorf("storage auth: %w", err)
		}
		cfg.AccessKey = creds["accesskey"]
		cfg.SecretKey = creds["secretkey"]
	}
	return objectstore.New(cfg)
}

// Bucket returns the configured bucket or an error when it is unset.
func (a *App) Bucket() (string, error) {
	b := strings.TrimSpace(a.Config.Storage.Bucket)
	if b == "" {
		return "", fmt.Errorf("storage.bucket is not set (run: fleetmetrics config set storage.bucket NAME)")
	}
	if err := util.ValidateBucketName(b); err != nil {
		return "", err
	}
	return b, nil
}

// Warehouse opens the configured warehouse.
func (a *App) Warehouse() (*warehouse.Warehouse, error) {
	wc := a.Config.Warehouse
	if strings.TrimSpace(wc.DSN) == "" {
		return nil, fmt.Errorf("warehouse.dsn is not set (run: fleetmetrics config set warehouse.dsn DSN)")
	}
	return warehouse.Open(wc.Driver, wc.DSN, a.Log)
}

// DiscoveryCache returns the on-disk cache of directory listings.
func (a *App) DiscoveryCache() *discoverycache.Cache {
	dir := strings.TrimSpace(a.Config.Resources.CacheDir)
	if dir == "" {
		dir = discoverycache.DefaultDir()
	}
	return discoverycache.New(dir, a.Config.Resources.CacheTTL)
}

// Runs opens the local run ledger.
func (a *App) Runs() (*runlog.SQLiteRepository, error) {
	return runlog.Open()
}

// Locker returns the run lease backend, a no-op when redis.addr is unset.
func (a *App) Locker(ctx context.Context) (lease.Locker, error) {
	return lease.New(ctx, a.Config.Redis.Addr, a.Config.Redis.LeaseTTL, a.Log)
}

// PushMetrics pushes m to the configured Pushgateway. Without one it does
// nothing. Push failures are logged, never returned.
func (a *App) PushMetrics(ctx context.Context, m *jobmetrics.Metrics, job string, grouping map[string]string) {
	url := strings.TrimSpace(a.Config.Pushgateway.URL)
	if url == "" || m == nil {
		return
	}
	if err := m.Push(ctx, url, job, grouping); err != nil {
		a.Log.Warn("pushgateway push failed", zap.String("url", url), zap.Error(err))
	}
}
