package transliteration

import "fmt"

// ValidationError reports model output containing characters a Russian
// voice cannot read.
type ValidationError struct {
	Attempts int
	Sample   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid llm response after %d attempts: %q", e.Attempts, e.Sample)
}

type TimeoutError struct {
	Attempts int
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("llm timeout after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

type APIError struct {
	Attempts int
	Err      error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api error after %d attempts: %v", e.Attempts, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}
