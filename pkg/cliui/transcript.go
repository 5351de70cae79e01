package cliui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/reviewagent/revchat/pkg/chat"
)

var (
	userLabel      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true).Render("you")
	assistantLabel = lipgloss.NewStyle().Foreground(colorPink).Bold(true).Render("revchat")
	unreadBadge    = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(colorOrange).Padding(0, 1).Render("new")
	fullScreenBox  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

// Label returns the styled speaker label for role.
func Label(role chat.Role) string {
	if role == chat.RoleUser {
		return userLabel
	}
	return assistantLabel
}

// Prompt is the input prompt for the chat REPL.
func Prompt() string {
	return userLabel + DimStyle.Render(" › ")
}

// Transcript writes every message in st. Assistant turns are rendered as
// markdown when render is true; a full screen state is boxed.
func Transcript(w io.Writer, st chat.State, width int, render bool) {
	var b strings.Builder

	if st.HasUnread {
		fmt.Fprintf(&b, "%s\n", unreadBadge)
	}

	for _, m := range st.Messages {
		body := m.Content
		if render && m.Role == chat.RoleAssistant {
			if out, err := RenderMarkdown(body, width); err == nil {
				body = strings.TrimRight(out, "\n")
			}
		}
		fmt.Fprintf(&b, "%s %s\n", Label(m.Role), body)
	}

	out := b.String()
	if st.FullScreen {
		out = fullScreenBox.Render(strings.TrimRight(out, "\n")) + "\n"
	}

	fmt.Fprint(w, out)
}
