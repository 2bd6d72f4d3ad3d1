// Package tui holds the interactive prompts used when a command runs in a
// terminal: spinners around slow calls, pickers and credential forms.
package tui

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
)

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("aborted by user")

func accessible() bool {
	return os.Getenv("ACCESSIBLE") != ""
}

func runForm(groups ...*huh.Group) error {
	err := huh.NewForm(groups...).WithAccessible(accessible()).Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return err
	}
	return nil
}

// WithSpinner runs fn while a spinner titled title is shown.
func WithSpinner(title string, fn func(ctx context.Context) error) error {
	err := spinner.New().
		Title(title).
		Accessible(accessible()).
		ActionWithErr(fn).
		Run()
	if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, context.Canceled) {
		return ErrAborted
	}
	return err
}
