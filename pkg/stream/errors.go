package stream

import (
	"errors"
	"fmt"
)

// ErrTransport matches every transport failure with errors.Is.
var ErrTransport = errors.New("stream: transport failure")

// TransportError is a failed attempt to obtain or read a stream: a
// non-success response status or a network read error.
type TransportError struct {
	// Status is the HTTP status code, or zero for network errors.
	Status int

	// Body is the (possibly truncated) response body of a failed status.
	Body string

	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status > 0 && e.Body != "":
		return fmt.Sprintf("stream request failed with status %d: %s", e.Status, e.Body)
	case e.Status > 0:
		return fmt.Sprintf("stream request failed with status %d", e.Status)
	case e.Err != nil:
		return fmt.Sprintf("stream transport error: %v", e.Err)
	default:
		return ErrTransport.Error()
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports every TransportError as ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
