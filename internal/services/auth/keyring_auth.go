package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

type KeyringStore struct {
	serviceName string
}

func NewKeyringStore(serviceName string) *KeyringStore {
	if serviceName == "" {
		serviceName = ServiceName
	}
	return &KeyringStore{serviceName: serviceName}
}

func (k *KeyringStore) SetToken(key string, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	return k.wrap(keyring.Set(k.serviceName, NormalizeProvider(key), token))
}

func (k *KeyringStore) GetToken(key string) (string, error) {
	token, err := keyring.Get(k.serviceName, NormalizeProvider(key))
	if err != nil {
		return "", k.wrap(err)
	}
	return token, nil
}

func (k *KeyringStore) DeleteToken(key string) error {
	return k.wrap(keyring.Delete(k.serviceName, NormalizeProvider(key)))
}

// wrap maps keyring errors onto the package errors.
func (k *KeyringStore) wrap(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, keyring.ErrNotFound):
		return ErrTokenNotFound
	default:
		return fmt.Errorf("%w (service %s): %v", ErrKeychainUnavailable, k.serviceName, err)
	}
}
