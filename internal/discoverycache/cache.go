// Package discoverycache keeps the last directory listing per provider and
// state filter on disk, so repeated `resources list` calls do not hit the
// provider API every time.
package discoverycache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"
)

const defaultMaxStale = 24 * time.Hour

// Listing is a directory result with the time it was fetched.
type Listing struct {
	Resources []domain.Resource `json:"resources"`
	FetchedAt time.Time         `json:"fetched_at"`
	// Stale is set when the listing is older than the TTL and was served
	// because a live listing failed.
	Stale bool `json:"-"`
}

// Cache stores listings as JSON files under dir.
type Cache struct {
	dir      string
	ttl      time.Duration
	maxStale time.Duration
}

// New returns a cache rooted at dir. Listings younger than ttl are served
// without calling the provider. A zero ttl disables caching.
func New(dir string, ttl time.Duration) *Cache {
	return &Cache{dir: dir, ttl: ttl, maxStale: defaultMaxStale}
}

// DefaultDir is the cache directory under the OS user cache dir.
func DefaultDir() string {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "fleetmetrics", "discovery")
}

// Key identifies the listing of provider filtered by states. State order
// does not matter.
func Key(provider string, states []domain.LifecycleState) string {
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = string(s)
	}
	slices.Sort(names)
	return provider + "_" + strings.Join(slices.Compact(names), "-")
}

// Resources returns the cached listing for key when it is fresh, otherwise
// calls list and stores the result. When list fails and an entry younger
// than the stale limit exists, that entry is returned with Stale set.
func (c *Cache) Resources(ctx context.Context, key string, list func(context.Context) ([]domain.Resource, error)) (Listing, error) {
	if c == nil || c.dir == "" || c.ttl <= 0 {
		resources, err := list(ctx)
		return Listing{Resources: resources, FetchedAt: time.Now()}, err
	}

	cached, ok := c.read(key)
	age := time.Since(cached.FetchedAt)
	if ok && age >= 0 && age <= c.ttl {
		return cached, nil
	}

	resources, err := list(ctx)
	if err != nil {
		if ok && ctx.Err() == nil && age <= c.maxStale {
			cached.Stale = true
			return cached, nil
		}
		return Listing{}, err
	}

	fresh := Listing{Resources: resources, FetchedAt: time.Now()}
	_ = c.write(key, fresh)
	return fresh, nil
}

// Invalidate removes the entry for key.
func (c *Cache) Invalidate(key string) error {
	if c == nil || c.dir == "" {
		return nil
	}
	err := os.Remove(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (c *Cache) read(key string) (Listing, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return Listing{}, false
	}
	var l Listing
	if err := json.Unmarshal(data, &l); err != nil || l.FetchedAt.IsZero() {
		return Listing{}, false
	}
	return l, true
}

func (c *Cache) write(key string, l Listing) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	payload, err := json.Marshal(l)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, sanitizeKey(key)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	return os.Rename(name, c.path(key))
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, sanitizeKey(key)+".json")
}

func sanitizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "listing"
	}
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		ch := key[i]
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '-' || ch == '_' {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}
