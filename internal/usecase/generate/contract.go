package generate

import "context"

// Provider is one chat-completion backend. Implementations wrap an
// OpenAI-compatible endpoint and must honor ctx cancellation on both calls.
type Provider interface {
	// Name identifies the provider in logs and metrics (e.g. "groq").
	Name() string
	// Model is the configured model identifier.
	Model() string
	// Generate returns the full completion for a prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// Stream delivers completion fragments through emit as they arrive.
	// A non-nil error from emit aborts the stream and is returned as is.
	Stream(ctx context.Context, prompt string, emit func(token string) error) error
	// HealthCheck probes provider availability.
	HealthCheck(ctx context.Context) error
}
