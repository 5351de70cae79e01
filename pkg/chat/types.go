// Package chat owns a conversation with the analysis service: the message
// log, the streaming flag and mode, and the single stream session feeding it.
package chat

import "errors"

// ErrAuthorizationMissing is returned when an operation needs a logged-in
// user and none is available.
var ErrAuthorizationMissing = errors.New("chat: not logged in")

// Role identifies the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Mode selects which endpoint a send goes to.
type Mode string

const (
	// ModeDirect is free-form chat.
	ModeDirect Mode = "direct"

	// ModeContextual is chat seeded with a prior analysis result.
	ModeContextual Mode = "contextual"
)

// Message is one entry of the conversation. Assistant messages grow as
// payloads arrive.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// State is a point-in-time copy of the conversation.
type State struct {
	Messages  []Message `json:"messages"`
	Mode      Mode      `json:"mode"`
	Streaming bool      `json:"streaming"`

	// HasUnread is set when a contextual chat starts while the
	// conversation is hidden.
	HasUnread bool `json:"has_unread"`

	Visible    bool `json:"visible"`
	FullScreen bool `json:"full_screen"`
}

// Last returns the final message, if any.
func (s State) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
