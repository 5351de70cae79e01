package chat

import (
	"fmt"
	"strings"
)

const (
	// DefaultContextTemplate frames an analysis as the opening user message.
	// It takes the problem and the root cause, in that order.
	DefaultContextTemplate = "I'd like to discuss this analysis result:\n\n**Problem**: %s\n\n**Root cause / solution**: %s"

	// DefaultAcknowledgement is the canned assistant reply to the framing
	// message.
	DefaultAcknowledgement = "I've understood your problem. Feel free to ask me anything."
)

// Analysis is a prior analysis result a contextual chat is seeded with.
type Analysis struct {
	Problem   string
	RootCause string
}

// ParseAnalysis splits "problem | root cause" as typed at the prompt.
func ParseAnalysis(s string) (Analysis, error) {
	problem, rootCause, ok := strings.Cut(s, "|")
	problem = strings.TrimSpace(problem)
	rootCause = strings.TrimSpace(rootCause)

	if !ok || problem == "" || rootCause == "" {
		return Analysis{}, fmt.Errorf("expected \"<problem> | <root cause>\", got %q", s)
	}

	return Analysis{Problem: problem, RootCause: rootCause}, nil
}

// Framing renders the message pair that opens a contextual chat.
type Framing struct {
	Template        string
	Acknowledgement string
}

// DefaultFraming returns the built-in framing.
func DefaultFraming() Framing {
	return Framing{
		Template:        DefaultContextTemplate,
		Acknowledgement: DefaultAcknowledgement,
	}
}

// Context renders the user message embedding a.
func (f Framing) Context(a Analysis) string {
	tmpl := f.Template
	if tmpl == "" {
		tmpl = DefaultContextTemplate
	}
	return fmt.Sprintf(tmpl, a.Problem, a.RootCause)
}

// Ack returns the assistant acknowledgement.
func (f Framing) Ack() string {
	if f.Acknowledgement == "" {
		return DefaultAcknowledgement
	}
	return f.Acknowledgement
}
