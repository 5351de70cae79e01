// Package devserver is a local stand-in for the analysis service. It speaks
// the same chat, clear and user endpoints as the real backend and streams
// lorem ipsum replies, so the client can be exercised without it.
package devserver

import "github.com/reviewagent/revchat/pkg/sealer"

const (
	defaultWordsPerSecond = 20
	defaultReplyWords     = 40
)

// Config is the development server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8123")
	ListenAddr string

	// WordsPerSecond paces streamed replies. Non-positive streams unthrottled.
	WordsPerSecond int

	// ReplyWords is the approximate length of each streamed reply.
	ReplyWords int

	// Sealer opens passwords sent to the user endpoints. When nil passwords
	// are taken as sent.
	Sealer sealer.Sealer
}

func (c Config) withDefaults() Config {
	if c.WordsPerSecond == 0 {
		c.WordsPerSecond = defaultWordsPerSecond
	}
	if c.ReplyWords <= 0 {
		c.ReplyWords = defaultReplyWords
	}
	return c
}
