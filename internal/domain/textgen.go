package domain

import "context"

// TextGenerator turns a prompt into a few short lines of prose.
// Implementations report Available() == false when not configured; callers
// must then skip them without failing.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, maxLines int) ([]string, error)
	Available() bool
}

// AdvisorConfig holds text generator settings.
type AdvisorConfig struct {
	// Provider is "gemini" or "none"
	Provider string

	APIKey          string
	Model           string
	MaxOutputTokens int
	Temperature     float32
	TimeoutSecs     int

	// MaxLines caps the lines taken from a response.
	MaxLines int

	// Responses are memoised in the cache for CacheTTLSecs and limited to
	// QuotaPerHour generations.
	CacheTTLSecs int
	QuotaPerHour int64
}
