package stream

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// Request describes a single streamed call against the analysis service.
type Request struct {
	// Method is the HTTP method, GET when empty.
	Method string

	// Target is the endpoint path relative to the service base URL,
	// e.g. "/chat".
	Target string

	Query  url.Values
	Header http.Header
	Body   []byte
}

// Source opens the raw byte stream for a request.
//
// Implementations must return a *TransportError for a non-success response
// without reading the payload, and must abort the stream when ctx is
// cancelled. The caller closes the returned body.
type Source interface {
	Stream(ctx context.Context, req *Request) (io.ReadCloser, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, req *Request) (io.ReadCloser, error)

// Stream calls f(ctx, req).
func (f SourceFunc) Stream(ctx context.Context, req *Request) (io.ReadCloser, error) {
	return f(ctx, req)
}
