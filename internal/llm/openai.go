package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIProvider talks to an OpenAI compatible chat completions API.
type OpenAIProvider struct {
	model  string
	client *openai.Client
}

// OpenAIParams configures an OpenAIProvider. An empty BaseURL uses the
// public API.
type OpenAIParams struct {
	APIKey  string
	BaseURL string
	Model   string
}

func NewOpenAIProvider(p OpenAIParams) (*OpenAIProvider, error) {
	if p.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(p.APIKey),
		option.WithMaxRetries(1),
	}
	if p.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(p.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{model: p.Model, client: &client}, nil
}

func (p *OpenAIProvider) Name() string  { return "openai" }
func (p *OpenAIProvider) Model() string { return p.model }

// Complete sends the system prompts and the prompt as one chat turn.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string, o GenerateOptions) (string, error) {
	model := o.Model
	if model == "" {
		model = p.model
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(o.SystemPrompts)+1)
	for _, sp := range o.SystemPrompts {
		msgs = append(msgs, openai.SystemMessage(sp))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	body := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    msgs,
		Temperature: openai.Float(o.Temperature),
	}
	if o.MaxTokens > 0 {
		body.MaxTokens = openai.Int(int64(o.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, body)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
