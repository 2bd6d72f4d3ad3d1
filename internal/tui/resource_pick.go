package tui

import (
	"fmt"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"

	"github.com/charmbracelet/huh"
)

// PickResource asks the user to choose one of the known resources and
// returns its id.
func PickResource(resources []domain.ResourceInfo) (string, error) {
	if len(resources) == 0 {
		return "", fmt.Errorf("no resources in the warehouse yet")
	}

	opts := make([]huh.Option[string], 0, len(resources))
	for _, r := range resources {
		label := fmt.Sprintf("%s  %s (%s, %s)", r.ID, r.Name, r.Type, r.Provider)
		opts = append(opts, huh.NewOption(label, r.ID))
	}

	height := min(max(len(opts), 5), 12)

	var selected string
	field := huh.NewSelect[string]().
		Title("Select a resource").
		Options(opts...).
		Value(&selected).
		Height(height)

	if err := runForm(huh.NewGroup(field)); err != nil {
		return "", err
	}
	return selected, nil
}
