// Package auth stores provider and storage credentials in the OS keychain.
// Multi-field credentials are stored as one entry per field under the key
// "<provider>-<field>".
package auth

import (
	"errors"

	"nathanbeddoewebdev/fleetmetrics/internal/util"
)

const ServiceName = "fleetmetrics"

var (
	ErrTokenNotFound = errors.New("auth token not found")

	// ErrKeychainUnavailable is returned when the OS keychain cannot be
	// reached, typically on headless hosts without a secret service. The
	// environment variables of each credential still work there.
	ErrKeychainUnavailable = errors.New("keychain unavailable")

	ErrEmptyToken = errors.New("credential value is empty")
)

type Store interface {
	SetToken(key string, token string) error
	GetToken(key string) (string, error)
	DeleteToken(key string) error
}

// DefaultStore returns the standard auth store backed by the OS keychain.
func DefaultStore() Store {
	return NewKeyringStore(ServiceName)
}

// NormalizeProvider normalizes a keychain key for consistent lookup.
func NormalizeProvider(key string) string {
	return util.NormalizeKey(key)
}
