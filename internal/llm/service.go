package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"autoviz/internal/logger"

	"golang.org/x/sync/semaphore"
)

// SystemPrompt is sent with every call.
const SystemPrompt = "You are a helpful data analysis assistant."

type Config struct {
	Timeout       time.Duration
	MaxConcurrent int64
}

// Service wraps a Provider with a per-call timeout and a bound on calls in
// flight. Every failure is reported as ErrUnavailable.
type Service struct {
	config   Config
	provider Provider
	sem      *semaphore.Weighted
}

func NewService(provider Provider, cfg Config) *Service {
	if provider == nil {
		provider = Disabled{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &Service{
		config:   cfg,
		provider: provider,
		sem:      semaphore.NewWeighted(cfg.MaxConcurrent),
	}
}

// Provider returns the backend name.
func (s *Service) Provider() string { return s.provider.Name() }

// Model returns the backend's default model.
func (s *Service) Model() string { return s.provider.Model() }

// Timeout returns the per-call bound.
func (s *Service) Timeout() time.Duration { return s.config.Timeout }

type completion struct {
	text string
	err  error
}

// Complete runs one completion. The call is abandoned when the timeout
// expires even if the provider ignores ctx.
func (s *Service) Complete(ctx context.Context, prompt string, opts ...GenerateOption) (string, error) {
	o := GenerateOptions{SystemPrompts: []string{SystemPrompt}, Temperature: 0.7}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%w: waiting for a free slot: %v", ErrUnavailable, err)
	}
	defer s.sem.Release(1)

	done := make(chan completion, 1)
	start := time.Now()
	go func() {
		text, err := s.provider.Complete(ctx, prompt, o)
		done <- completion{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		logger.Warn("model call timed out", "provider", s.provider.Name(), "timeout", s.config.Timeout)
		return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, s.provider.Name(), ctx.Err())
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, ErrUnavailable) {
				return "", res.err
			}
			logger.Warn("model call failed", "provider", s.provider.Name(), "error", res.err)
			return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, s.provider.Name(), res.err)
		}
		logger.Debug("model call finished", "provider", s.provider.Name(), "duration", time.Since(start))
		return strings.TrimSpace(res.text), nil
	}
}
