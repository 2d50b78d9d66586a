package genai

import (
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
)

// ProviderError wraps a failed provider call with the HTTP status, when one was received.
type ProviderError struct {
	Provider   Provider
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// HTTPStatus returns the provider's HTTP status, or 0 for transport failures.
func (e *ProviderError) HTTPStatus() int { return e.StatusCode }

// StatusCode extracts the provider HTTP status from err, or 0 when there is none.
func StatusCode(err error) int {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.StatusCode
	}
	return 0
}

func wrapProviderError(p Provider, err error) error {
	pe := &ProviderError{Provider: p, Err: err}
	var anthropicErr *anthropic.Error
	var openaiErr *openai.Error
	switch {
	case errors.As(err, &anthropicErr):
		pe.StatusCode = anthropicErr.StatusCode
	case errors.As(err, &openaiErr):
		pe.StatusCode = openaiErr.StatusCode
	}
	return pe
}
