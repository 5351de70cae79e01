// Package sse consumes text/event-stream responses from the analysis
// service. Bytes arrive in arbitrary chunks; a Decoder cuts them into
// blank-line delimited frames, Extract pulls the data payload out of each
// frame, and TeeReader drives both from an io.Reader while copying the raw
// stream to an optional recorder.
//
// Only the "data" field matters to revchat. "event", "id" and "retry" lines
// are ignored, as are comments.
package sse

// Event is one frame that carried at least one data line.
type Event struct {
	// Data holds the frame's data lines joined with "\n".
	Data string
}
