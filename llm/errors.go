package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// TransientError marks a failure that may succeed on retry. Status is the
// HTTP status of the chat completion call, or 0 for network failures and
// empty answers.
type TransientError struct {
	Status int
	err    error
}

func (e *TransientError) Error() string { return e.err.Error() }

func (e *TransientError) Unwrap() error { return e.err }

// NewTransientError wraps an error as retryable.
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError marks a failure that will not succeed on retry. Status is 0
// when the request never reached the API.
type FatalError struct {
	Status int
	err    error
}

func (e *FatalError) Error() string { return e.err.Error() }

func (e *FatalError) Unwrap() error { return e.err }

// NewFatalError wraps an error as non-retryable.
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal reports whether err must not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// classifyError sorts a go-openai error into transient or fatal.
//
// OpenAI answers 429 both for request rate limits and for an exhausted
// quota (code "insufficient_quota"); only the former clears up by waiting.
// 5xx answers are retried. 400 (prompt too long,
// bad model parameters), 401 (bad key), 403 (region or org not allowed)
// and 404 (unknown model) are fatal.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewFatalError(err)
	}

	var (
		status int
		code   any
	)
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status, code = apiErr.HTTPStatusCode, apiErr.Code
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return &TransientError{err: fmt.Errorf("chat completion request failed: %w", err)}
	}

	switch {
	case status == http.StatusTooManyRequests && code == "insufficient_quota":
		return &FatalError{Status: status, err: fmt.Errorf("OpenAI quota exhausted: %w", err)}
	case status == http.StatusTooManyRequests:
		return &TransientError{Status: status, err: fmt.Errorf("OpenAI rate limit: %w", err)}
	case status >= 500:
		return &TransientError{Status: status, err: fmt.Errorf("OpenAI unavailable (status %d): %w", status, err)}
	case status == http.StatusUnauthorized:
		return &FatalError{Status: status, err: fmt.Errorf("OpenAI rejected the API key: %w", err)}
	case status == http.StatusNotFound:
		return &FatalError{Status: status, err: fmt.Errorf("OpenAI model not available: %w", err)}
	default:
		return &FatalError{Status: status, err: fmt.Errorf("OpenAI API error (status %d): %w", status, err)}
	}
}
