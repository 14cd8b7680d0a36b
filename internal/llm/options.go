package llm

// GenerateOptions holds the settings of one completion call.
type GenerateOptions struct {
	Model         string
	SystemPrompts []string
	Temperature   float64
	MaxTokens     int
}

// GenerateOption configures a completion call.
type GenerateOption func(*GenerateOptions)

// WithModel overrides the provider's default model.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts sets the system messages sent before the prompt.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature sets the sampling temperature. Lower is more deterministic.
func WithTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = t
	}
}

// WithMaxTokens bounds the length of the completion.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}
