package sse

import (
	"bytes"
	"errors"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Delimiter separates frames in the stream: a blank line.
const Delimiter = "\n\n"

// scratchSize is the decode window handed to the UTF-8 transformer per pass.
const scratchSize = 4 * 1024

// Decoder turns a raw byte stream into text frames separated by Delimiter.
//
// Only "\n\n" ends a frame. CRLF framing ("\r\n\r\n") is not supported:
// such a stream yields nothing until Flush, which returns it as one frame.
// Extract tolerates a stray "\r" before a line's "\n", nothing more.
//
// Chunk boundaries are never assumed to align with either a frame or a
// character: an incomplete trailing UTF-8 sequence is held back until the
// next Feed, and the text after the last delimiter is retained until more
// bytes (or Flush) arrive. At every point the decoder holds exactly the suffix
// of the stream not yet resolved into complete frames.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	utf8 transform.Transformer

	// pending holds bytes not yet decoded (a split multi-byte character).
	pending []byte

	// text holds decoded text after the last emitted delimiter.
	text []byte

	scratch []byte
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{
		utf8:    unicode.UTF8.NewDecoder(),
		scratch: make([]byte, scratchSize),
	}
}

// Feed appends chunk to the buffer and returns every frame completed by it,
// in stream order. An empty chunk is a no-op.
func (d *Decoder) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}

	d.pending = append(d.pending, chunk...)
	d.decode(false)

	return d.split()
}

// Flush is called once the stream has ended. Any held bytes are decoded, with
// truncated sequences replaced by U+FFFD, and a non-empty remainder is
// returned as the final frame. The decoder is empty afterwards.
func (d *Decoder) Flush() []string {
	d.decode(true)
	frames := d.split()

	if len(d.text) > 0 {
		frames = append(frames, string(d.text))
	}

	d.text = d.text[:0]
	d.pending = d.pending[:0]
	d.utf8.Reset()

	return frames
}

// Buffered reports how many bytes and decoded text bytes are held back.
func (d *Decoder) Buffered() (undecoded, text int) {
	return len(d.pending), len(d.text)
}

// decode moves as much of pending into text as the UTF-8 decoder allows.
func (d *Decoder) decode(atEOF bool) {
	for len(d.pending) > 0 {
		nDst, nSrc, err := d.utf8.Transform(d.scratch, d.pending, atEOF)
		d.text = append(d.text, d.scratch[:nDst]...)
		d.pending = d.pending[nSrc:]

		switch {
		case err == nil:
			// All of pending was consumed.
		case errors.Is(err, transform.ErrShortDst):
			continue
		case errors.Is(err, transform.ErrShortSrc):
			// The tail is the start of a multi-byte character.
			return
		default:
			return
		}

		if nSrc == 0 && nDst == 0 {
			return
		}
	}
}

// split cuts every complete frame off the front of text.
func (d *Decoder) split() []string {
	var frames []string

	for {
		i := bytes.Index(d.text, []byte(Delimiter))
		if i < 0 {
			break
		}

		frames = append(frames, string(d.text[:i]))
		d.text = d.text[i+len(Delimiter):]
	}

	// Compact so the retained suffix does not pin the whole history.
	if len(frames) > 0 {
		d.text = append([]byte(nil), d.text...)
	}

	return frames
}
