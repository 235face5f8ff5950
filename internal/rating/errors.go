package rating

import "fmt"

// ValidationError is returned when the request itself is unusable.
type ValidationError struct {
	Message string
	Details any
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ProviderError wraps a failure of the embedding model or the hosted model.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ParseError is returned when a model reply holds no usable number.
type ParseError struct {
	Reply string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no rating found in model reply %q", e.Reply)
}
