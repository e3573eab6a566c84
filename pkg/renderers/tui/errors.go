package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrNoChoices is returned for a choice field without options or a
	// rating whose scale is empty or larger than MaxScale.
	ErrNoChoices = errors.New("tui: field has no options")
	// ErrTooManyAttempts is returned when an answer keeps failing validation.
	ErrTooManyAttempts = errors.New("tui: too many invalid attempts")
)
