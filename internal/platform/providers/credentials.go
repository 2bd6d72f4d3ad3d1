// Package providers holds credential metadata shared between the provider
// implementations, object storage and the auth subsystem.
package providers

import (
	"fmt"
	"os"
	"strings"

	"nathanbeddoewebdev/fleetmetrics/internal/util"
)

// CredentialKey describes a single credential field for a provider.
type CredentialKey struct {
	// Key is the suffix appended to the provider name to form the keychain key.
	// For single-token providers this is empty (key stored as just "<provider>").
	Key string

	// Prompt is the human-readable label shown when prompting the user.
	Prompt string

	// Secret controls whether the input should be masked.
	Secret bool

	// Env, when set and non-empty in the environment, takes precedence over
	// the keychain.
	Env string
}

// CredentialSpec describes the complete credential scheme for a provider.
type CredentialSpec struct {
	// Provider is the normalized provider name (e.g. "hetzner", "aws").
	Provider string

	// DisplayName is the human-readable provider name.
	DisplayName string

	// Keys lists each credential that must be stored.
	Keys []CredentialKey
}

// KeychainKey returns the keychain key for the given CredentialKey.
// For single-token providers (empty Key suffix), it returns the provider name.
// For multi-credential providers it returns "<provider>-<key>".
func (s CredentialSpec) KeychainKey(k CredentialKey) string {
	if k.Key == "" {
		return s.Provider
	}
	return s.Provider + "-" + k.Key
}

// TokenGetter is the read half of auth.Store.
type TokenGetter interface {
	GetToken(provider string) (string, error)
}

// Resolve returns every credential of the spec keyed by CredentialKey.Key,
// reading the environment first and the keychain second. The first missing
// credential is reported as an error.
func (s CredentialSpec) Resolve(store TokenGetter) (map[string]string, error) {
	out := make(map[string]string, len(s.Keys))
	for _, k := range s.Keys {
		if k.Env != "" {
			if v := strings.TrimSpace(os.Getenv(k.Env)); v != "" {
				out[k.Key] = v
				continue
			}
		}
		if store == nil {
			return nil, fmt.Errorf("%s: %s not set", s.DisplayName, k.Prompt)
		}
		v, err := store.GetToken(s.KeychainKey(k))
		if err != nil {
			if k.Env != "" {
				return nil, fmt.Errorf("%s %s: %w (or set %s)", s.DisplayName, strings.ToLower(k.Prompt), err, k.Env)
			}
			return nil, fmt.Errorf("%s %s: %w", s.DisplayName, strings.ToLower(k.Prompt), err)
		}
		out[k.Key] = v
	}
	return out, nil
}

// ResolveOptional is Resolve, except that a spec with no credential set
// anywhere yields an empty map. Partially set credentials are still an error.
func (s CredentialSpec) ResolveOptional(store TokenGetter) (map[string]string, error) {
	for _, k := range s.Keys {
		if k.Env != "" && strings.TrimSpace(os.Getenv(k.Env)) != "" {
			return s.Resolve(store)
		}
		if store != nil {
			if _, err := store.GetToken(s.KeychainKey(k)); err == nil {
				return s.Resolve(store)
			}
		}
	}
	return map[string]string{}, nil
}

// knownSpecs is the authoritative list of registered credential specs.
// The auth login command iterates this to know how to prompt for credentials.
var knownSpecs = []CredentialSpec{
	{
		Provider:    "hetzner",
		DisplayName: "Hetzner",
		Keys: []CredentialKey{
			{Key: "", Prompt: "API Token", Secret: true, Env: "HCLOUD_TOKEN"},
		},
	},
	{
		Provider:    "aws",
		DisplayName: "AWS",
		Keys: []CredentialKey{
			{Key: "accesskeyid", Prompt: "Access Key ID", Env: "AWS_ACCESS_KEY_ID"},
			{Key: "secretaccesskey", Prompt: "Secret Access Key", Secret: true, Env: "AWS_SECRET_ACCESS_KEY"},
		},
	},
	{
		Provider:    "storage",
		DisplayName: "Object Storage",
		Keys: []CredentialKey{
			{Key: "accesskey", Prompt: "Access Key", Env: "FLEETMETRICS_STORAGE_ACCESS_KEY"},
			{Key: "secretkey", Prompt: "Secret Key", Secret: true, Env: "FLEETMETRICS_STORAGE_SECRET_KEY"},
		},
	},
}

// Lookup returns the CredentialSpec for the given provider name,
// or nil if no spec is registered for that provider.
func Lookup(providerName string) *CredentialSpec {
	normalized := util.NormalizeKey(providerName)
	for i := range knownSpecs {
		if knownSpecs[i].Provider == normalized {
			return &knownSpecs[i]
		}
	}
	return nil
}

// All returns a copy of all registered credential specs.
func All() []CredentialSpec {
	out := make([]CredentialSpec, len(knownSpecs))
	copy(out, knownSpecs)
	return out
}
