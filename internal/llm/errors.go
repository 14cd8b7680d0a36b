package llm

import "errors"

var (
	// ErrUnavailable covers every way a model call can fail to produce text:
	// no provider configured, timeout, transport or API errors.
	ErrUnavailable = errors.New("language model unavailable")

	// ErrNoJSON is returned when a response holds no JSON document.
	ErrNoJSON = errors.New("no JSON found in response")
)
