package generation

import (
	"errors"
	"fmt"
)

var (
	// ErrCredentialsExhausted is returned when every configured key was rejected.
	ErrCredentialsExhausted = errors.New("generation: all credentials exhausted")

	// ErrMalformedResponse is returned when the service answered with
	// something that is not a product record.
	ErrMalformedResponse = errors.New("generation: malformed response")

	// ErrServiceOverloaded is returned when the service stayed unavailable
	// for every configured key.
	ErrServiceOverloaded = errors.New("generation: service overloaded")

	// ErrNoCredentials is returned when no keys are configured at all.
	ErrNoCredentials = fmt.Errorf("%w: no API keys configured", ErrCredentialsExhausted)

	// ErrEmptyInput is returned when the input has no text after cleanup.
	ErrEmptyInput = errors.New("generation: input text is empty")
)

// Error records which class of failure ended a generation and after how many
// attempts. It matches both its Kind and the last underlying error.
type Error struct {
	Kind     error
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Hint returns a message suitable for showing to the person who started the
// generation.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput):
		return "Paste some product text before generating."
	case errors.Is(err, ErrNoCredentials):
		return "No API key found. Set API_KEY (and optionally API_KEY_2, API_KEY_3) in the environment."
	case errors.Is(err, ErrCredentialsExhausted):
		return "Every configured API key was rejected. Check that the keys are valid and still have quota."
	case errors.Is(err, ErrServiceOverloaded):
		return "The AI service is busy right now. Wait a moment and try again."
	case errors.Is(err, ErrMalformedResponse):
		return "The AI service returned an unexpected answer. Try again or shorten the input text."
	default:
		return "Failed to generate content."
	}
}
