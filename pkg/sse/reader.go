package sse

import (
	"io"
)

// DefaultChunkSize is how many bytes TeeReader requests from its source per read.
const DefaultChunkSize = 4 * 1024

// TeeReader reads SSE events from a source io.Reader while simultaneously
// writing all raw bytes verbatim to a destination io.Writer.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────────┐
// │ TeeReader.Next() │──▶│ destination io.Writer │
// └──────────────────┘   └───────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │ Decoder, Extract │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐
// │      Event       │
// └──────────────────┘
//
// Reads are passed through the Decoder as they arrive, so events are surfaced
// as soon as their delimiter is seen regardless of how the source chunks the
// stream.
type TeeReader struct {
	src  io.Reader
	dest io.Writer

	decoder *Decoder
	chunk   []byte

	// queue holds decoded events not yet returned by Next.
	queue []*Event

	bytesRead int64
	eof       bool
}

// ReaderOption configures a TeeReader.
type ReaderOption func(*TeeReader)

// WithChunkSize sets the size of each read from the source.
// Non-positive values are ignored.
func WithChunkSize(n int) ReaderOption {
	return func(r *TeeReader) {
		if n > 0 {
			r.chunk = make([]byte, n)
		}
	}
}

// NewTeeReader returns a Reader that parses SSE events from the src io.Reader
// and writes all raw bytes through to dest. dest may be nil.
func NewTeeReader(src io.Reader, dest io.Writer, opts ...ReaderOption) *TeeReader {
	r := &TeeReader{
		src:     src,
		dest:    dest,
		decoder: NewDecoder(),
		chunk:   make([]byte, DefaultChunkSize),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Next returns the next parsed SSE event. It blocks until a complete event is
// available (terminated by a blank line in the stream).
// Next returns nil, nil when the source is exhausted. A trailing frame without
// a closing blank line is still yielded once the source ends.
//
// Next also tees all bytes to the destination writer supplied to
// NewTeeReader, before they are decoded.
func (r *TeeReader) Next() (*Event, error) {
	for {
		if len(r.queue) > 0 {
			ev := r.queue[0]
			r.queue = r.queue[1:]
			return ev, nil
		}

		if r.eof {
			return nil, nil
		}

		n, err := r.src.Read(r.chunk)
		if n > 0 {
			r.bytesRead += int64(n)

			if r.dest != nil {
				if _, werr := r.dest.Write(r.chunk[:n]); werr != nil {
					return nil, werr
				}
			}

			r.enqueue(r.decoder.Feed(r.chunk[:n]))
		}

		if err == io.EOF {
			r.eof = true
			r.enqueue(r.decoder.Flush())
			continue
		}

		if err != nil {
			return nil, err
		}
	}
}

// BytesRead reports how many raw bytes have been consumed from the source.
func (r *TeeReader) BytesRead() int64 {
	return r.bytesRead
}

func (r *TeeReader) enqueue(frames []string) {
	for _, frame := range frames {
		if data, ok := Extract(frame); ok {
			r.queue = append(r.queue, &Event{Data: data})
		}
	}
}
