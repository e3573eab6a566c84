package tui

import "github.com/goliatone/go-formsync/pkg/model"

// Theme captures optional prefixes the renderer applies to messages.
type Theme struct {
	ErrorPrefix string
	InfoPrefix  string
}

// Option configures the TUI renderer.
type Option func(*Renderer)

// WithPromptDriver overrides the prompt driver used by the renderer.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Renderer) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithPrefill offers previous answers as prompt defaults.
func WithPrefill(answers []model.Answer) Option {
	return func(r *Renderer) {
		r.prefill = answers
	}
}

// WithMaxAttempts bounds how often one field is re-prompted after a failed
// validation. Zero or less means no bound.
func WithMaxAttempts(n int) Option {
	return func(r *Renderer) {
		r.maxAttempts = n
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Renderer) {
		r.theme = theme
	}
}
