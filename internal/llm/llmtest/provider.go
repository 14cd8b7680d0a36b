// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"autoviz/internal/llm"
	"context"
	"strings"
	"sync"
)

// Provider answers prompts from a script. Responses are matched by the
// first Rule whose Contains appears in the prompt; Default is used otherwise.
type Provider struct {
	Rules   []Rule
	Default string
	Err     error

	mu      sync.Mutex
	prompts []string
	options []llm.GenerateOptions
}

// Rule maps a prompt fragment to a response.
type Rule struct {
	Contains string
	Response string
	Err      error
}

func (p *Provider) Name() string  { return "scripted" }
func (p *Provider) Model() string { return "scripted-model" }

func (p *Provider) Complete(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	p.options = append(p.options, opts)
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, r := range p.Rules {
		if strings.Contains(prompt, r.Contains) {
			return r.Response, r.Err
		}
	}
	return p.Default, p.Err
}

// Prompts returns the prompts received so far.
func (p *Provider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prompts...)
}

// Options returns the generation options received so far.
func (p *Provider) Options() []llm.GenerateOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.GenerateOptions(nil), p.options...)
}
