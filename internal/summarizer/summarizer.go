package summarizer

import (
	"context"
	"errors"
	"fmt"
)

// ErrMalformedResponse marks successful HTTP responses whose body cannot be decoded.
var ErrMalformedResponse = errors.New("malformed response")

// Input describes the payload for a summary request.
type Input struct {
	// Text contains the extracted document text.
	Text string
	// Instruction tells the model what kind of summary to produce.
	Instruction string
}

// Summarizer produces a single summary for a given input text.
type Summarizer interface {
	Summarize(ctx context.Context, input Input) (string, error)
}

// StatusError is returned when the service answers with a non-success status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Request failed with status code: %d", e.StatusCode)
}

// TransportError is returned when no response was received at all
// (connection refused, DNS, TLS, timeout).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("send request: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
