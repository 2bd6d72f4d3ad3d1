package tui

import (
	"fmt"
	"strings"

	platformproviders "nathanbeddoewebdev/fleetmetrics/internal/platform/providers"

	"github.com/charmbracelet/huh"
)

// PromptCredentials shows one input per credential of spec and returns the
// entered values keyed by CredentialKey.Key. Secret fields are masked.
func PromptCredentials(spec platformproviders.CredentialSpec) (map[string]string, error) {
	values := make([]string, len(spec.Keys))
	fields := make([]huh.Field, 0, len(spec.Keys))
	for i, k := range spec.Keys {
		input := huh.NewInput().
			Title(fmt.Sprintf("%s %s", spec.DisplayName, k.Prompt)).
			Value(&values[i]).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("%s cannot be empty", strings.ToLower(k.Prompt))
				}
				return nil
			})
		if k.Secret {
			input = input.EchoMode(huh.EchoModePassword)
		}
		fields = append(fields, input)
	}

	if err := runForm(huh.NewGroup(fields...)); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(spec.Keys))
	for i, k := range spec.Keys {
		out[k.Key] = strings.TrimSpace(values[i])
	}
	return out, nil
}
