package providers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"
	"nathanbeddoewebdev/fleetmetrics/internal/services/auth"
	"nathanbeddoewebdev/fleetmetrics/internal/util"
)

// Settings carries the non-secret configuration a factory may need.
type Settings struct {
	Region string
}

// Factory constructs a provider.
type Factory func(store auth.Store, settings Settings) (domain.Provider, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

func Register(name string, factory Factory) {
	normalizedName := util.NormalizeKey(name)
	if normalizedName == "" {
		panic("providers: empty provider name")
	}
	if factory == nil {
		panic("providers: nil factory")
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[normalizedName]; exists {
		panic(fmt.Sprintf("providers: provider %q already registered", name))
	}

	registry[normalizedName] = factory
}

// Get builds the named provider. Factories resolve credentials eagerly, so
// a missing credential fails here rather than on the first API call.
func Get(name string, store auth.Store, settings Settings) (domain.Provider, error) {
	normalizedName := util.NormalizeKey(name)
	mu.RLock()
	factory, ok := registry[normalizedName]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("providers: unknown provider %q (registered: %s)", name, strings.Join(List(), ", "))
	}

	provider, err := factory(store, settings)
	if err != nil {
		return nil, fmt.Errorf("providers: %s: %w", normalizedName, err)
	}

	return provider, nil
}

// Registered reports whether a provider with the given name exists.
func Registered(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registry[util.NormalizeKey(name)]
	return ok
}

// Reset clears the provider registry. Intended for use in tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = map[string]Factory{}
}

// List returns registered provider names in sorted order.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
