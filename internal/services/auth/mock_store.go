package auth

import (
	"slices"
	"strings"
	"sync"
)

// MockStore is an in-memory auth store for testing. Keys are normalized the
// same way as in the keychain store.
type MockStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func NewMockStore() *MockStore {
	return &MockStore{tokens: make(map[string]string)}
}

func (m *MockStore) SetToken(key string, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[NormalizeProvider(key)] = token
	return nil
}

func (m *MockStore) GetToken(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[NormalizeProvider(key)]
	if !ok {
		return "", ErrTokenNotFound
	}
	return token, nil
}

func (m *MockStore) DeleteToken(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key = NormalizeProvider(key)
	if _, ok := m.tokens[key]; !ok {
		return ErrTokenNotFound
	}
	delete(m.tokens, key)
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *MockStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.tokens))
	for k := range m.tokens {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
