package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// DefaultOllamaHost is used when no host is configured.
const DefaultOllamaHost = "http://127.0.0.1:11434"

// OllamaProvider runs completions on a local Ollama server.
type OllamaProvider struct {
	model  string
	client *api.Client
}

func NewOllamaProvider(host, model string) (*OllamaProvider, error) {
	if host == "" {
		host = DefaultOllamaHost
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("ollama: parse host %q: %w", host, err)
	}
	return &OllamaProvider{
		model:  model,
		client: api.NewClient(u, http.DefaultClient),
	}, nil
}

func (p *OllamaProvider) Name() string  { return "ollama" }
func (p *OllamaProvider) Model() string { return p.model }

func (p *OllamaProvider) Complete(ctx context.Context, prompt string, o GenerateOptions) (string, error) {
	model := o.Model
	if model == "" {
		model = p.model
	}

	msgs := make([]api.Message, 0, len(o.SystemPrompts)+1)
	for _, sp := range o.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sp})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: prompt})

	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{"temperature": o.Temperature},
	}
	if o.MaxTokens > 0 {
		req.Options["num_predict"] = o.MaxTokens
	}

	var content string
	if err := p.client.Chat(ctx, req, func(cr api.ChatResponse) error {
		content += cr.Message.Content
		return nil
	}); err != nil {
		return "", err
	}
	return content, nil
}
