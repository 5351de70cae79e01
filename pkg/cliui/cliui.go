// Package cliui holds the terminal styling shared by revchat commands: the
// palette, a step spinner, markdown rendering and chat transcripts.
package cliui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Palette, as ANSI 256 colour codes.
const (
	colorGreen  = lipgloss.Color("82")
	colorRed    = lipgloss.Color("196")
	colorGrey   = lipgloss.Color("245")
	colorBlue   = lipgloss.Color("111")
	colorPink   = lipgloss.Color("213")
	colorOrange = lipgloss.Color("214")
	colorText   = lipgloss.Color("252")
)

var (
	KeyStyle   = lipgloss.NewStyle().Foreground(colorBlue).Bold(true)
	ValueStyle = lipgloss.NewStyle().Foreground(colorText)
	DimStyle   = lipgloss.NewStyle().Foreground(colorGrey)
	NameStyle  = lipgloss.NewStyle().Foreground(colorPink).Bold(true)
	WarnStyle  = lipgloss.NewStyle().Foreground(colorOrange)

	SuccessMark = lipgloss.NewStyle().Foreground(colorGreen).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(colorRed).Render("✗")

	spinnerStyle = lipgloss.NewStyle().Foreground(colorGreen)
)

const spinnerInterval = 80 * time.Millisecond

var spinnerFrames = []rune("⣾⣽⣻⢿⡿⣟⣯⣷")

// Spinner animates a single status line until Stop.
type Spinner struct {
	w     io.Writer
	msg   string
	start time.Time

	mu      sync.Mutex
	quit    chan struct{}
	stopped chan struct{}
}

// StartSpinner draws msg behind a spinner on w.
func StartSpinner(w io.Writer, msg string) *Spinner {
	s := &Spinner{
		w:       w,
		msg:     msg,
		start:   time.Now(),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.spin()
	return s
}

func (s *Spinner) spin() {
	defer close(s.stopped)

	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		s.mu.Lock()
		fmt.Fprintf(s.w, "\r  %s %s", spinnerStyle.Render(string(spinnerFrames[frame%len(spinnerFrames)])), s.msg)
		s.mu.Unlock()

		select {
		case <-s.quit:
			return
		case <-ticker.C:
		}
	}
}

// Stop replaces the spinner with the mark for err and the elapsed time.
// It returns err.
func (s *Spinner) Stop(err error) error {
	close(s.quit)
	<-s.stopped

	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(s.w, "\r  %s %s %s\n", Mark(err), s.msg,
		DimStyle.Render("("+FormatDuration(time.Since(s.start))+")"))

	return err
}

// Step runs fn behind a spinner and reports how it went.
func Step(w io.Writer, msg string, fn func() error) error {
	s := StartSpinner(w, msg)
	return s.Stop(fn())
}

// Mark returns ✓ for a nil error and ✗ otherwise.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration renders d as "12ms", "3.2s" or "2m05s".
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

var (
	renderersMu sync.Mutex
	renderers   = map[int]*glamour.TermRenderer{}
)

// RenderMarkdown renders content with glamour, wrapped at width columns
// (80 when width <= 0). On failure content comes back unchanged with the
// error.
func RenderMarkdown(content string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}

	renderersMu.Lock()
	defer renderersMu.Unlock()

	r, ok := renderers[width]
	if !ok {
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content, err
		}
		renderers[width] = r
	}

	out, err := r.Render(content)
	if err != nil {
		return content, err
	}
	return out, nil
}
