package llm

import "context"

// Provider is a chat-completion backend.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Disabled is a provider that is never available. It is used when no model
// backend is configured so every caller takes its fallback path.
type Disabled struct{}

func (Disabled) Name() string  { return "none" }
func (Disabled) Model() string { return "" }

func (Disabled) Complete(context.Context, string, GenerateOptions) (string, error) {
	return "", ErrUnavailable
}
