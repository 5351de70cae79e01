package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/reviewagent/revchat/pkg/auth"
	"github.com/reviewagent/revchat/pkg/chat"
	"github.com/reviewagent/revchat/pkg/cliui"
	"github.com/reviewagent/revchat/pkg/git"
	"github.com/reviewagent/revchat/pkg/utils"
)

// contextClearer forgets the service-side conversation for a user.
type contextClearer interface {
	ClearContext(ctx context.Context, userID string) error
}

// repl drives an Orchestrator from line input and prints its notices.
type repl struct {
	o        *chat.Orchestrator
	clearer  contextClearer
	identity auth.Identity
	repo     git.Repo

	width    int
	markdown bool

	// mu serialises writes to out between the input loop and notices.
	mu  sync.Mutex
	out io.Writer

	// turnEnded is signalled once per reply that finished or failed.
	turnEnded chan struct{}
}

func newREPL(out io.Writer, width int, markdown bool) *repl {
	return &repl{
		out:       out,
		width:     width,
		markdown:  markdown,
		turnEnded: make(chan struct{}, 1),
	}
}

// Notify implements chat.Notifier.
func (r *repl) Notify(n chat.Notice) {
	switch n.Kind {
	case chat.NoticeDelta:
		if !r.markdown {
			r.printf("%s", n.Text)
		}

	case chat.NoticeTurnDone:
		if r.markdown {
			r.printReply()
		}
		r.printf("\n\n")
		r.signalTurn()

	case chat.NoticeTurnFailed:
		r.printf("\n  %s %v\n\n", cliui.FailMark, n.Err)
		r.signalTurn()

	case chat.NoticeAuthRequired:
		r.printf("  %s %s\n\n", cliui.WarnStyle.Render("!"), "Not logged in. Run 'revchat login' first.")

	case chat.NoticeUnread:
		r.printf("  %s\n", cliui.DimStyle.Render("New analysis conversation"))
	}
}

func (r *repl) signalTurn() {
	select {
	case r.turnEnded <- struct{}{}:
	default:
	}
}

func (r *repl) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func (r *repl) printReply() {
	last, ok := r.o.Snapshot().Last()
	if !ok || last.Role != chat.RoleAssistant {
		return
	}

	rendered, err := cliui.RenderMarkdown(last.Content, r.width)
	if err != nil {
		rendered = last.Content
	}
	r.printf("%s %s", cliui.Label(chat.RoleAssistant), strings.TrimRight(rendered, "\n"))
}

func (r *repl) banner(target string) {
	r.printf("\n  %s %s\n", cliui.KeyStyle.Render("Service:"), cliui.ValueStyle.Render(target))
	if r.repo.Name != "" {
		r.printf("  %s %s\n", cliui.KeyStyle.Render("Reviewing:"), cliui.ValueStyle.Render(r.repo.String()))
	}

	if id, ok := r.identity.UserID(); ok {
		r.printf("  %s %s\n", cliui.KeyStyle.Render("User:"), cliui.NameStyle.Render(id))
	} else {
		r.printf("  %s %s\n", cliui.WarnStyle.Render("!"), "Not logged in. Run 'revchat login' first.")
	}

	r.printf("  %s\n\n", cliui.DimStyle.Render("Type a message and press Enter. /help for commands, /exit or Ctrl+D to quit."))
}

func (r *repl) prompt() {
	r.printf("%s", cliui.Prompt())
}

// run reads lines from in until EOF, /exit, ctx cancellation, or an
// interrupt at the prompt. An interrupt while a reply streams cancels it.
func (r *repl) run(ctx context.Context, in io.Reader, interrupts <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	showPrompt := true
	for {
		if showPrompt {
			r.prompt()
			showPrompt = false
		}

		select {
		case <-ctx.Done():
			return nil

		case <-interrupts:
			if !r.o.Streaming() {
				r.printf("\n")
				return nil
			}
			r.o.Close()
			r.o.Open()
			r.printf("\n  %s\n\n", cliui.DimStyle.Render("(stopped)"))
			showPrompt = true

		case <-r.turnEnded:
			showPrompt = true

		case line, ok := <-lines:
			if !ok {
				return r.drain(ctx, readErr)
			}

			exit, busy := r.handle(ctx, strings.TrimSpace(line))
			if exit {
				return nil
			}
			showPrompt = !busy
		}
	}
}

// drain lets a reply in flight at end of input finish.
func (r *repl) drain(ctx context.Context, readErr <-chan error) error {
	var err error
	select {
	case err = <-readErr:
	default:
	}

	if werr := r.o.Wait(ctx); werr != nil && !errors.Is(werr, context.Canceled) {
		return werr
	}

	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// handle runs one line of input. busy reports that a reply is now
// streaming, so the prompt waits for it.
func (r *repl) handle(ctx context.Context, line string) (exit, busy bool) {
	if line == "" {
		return false, false
	}

	if !strings.HasPrefix(line, "/") {
		// The label goes out first so live deltas land after it.
		if _, ok := r.identity.UserID(); ok && !r.markdown {
			r.printf("%s ", cliui.Label(chat.RoleAssistant))
		}
		if err := r.o.SendMessage(ctx, line); err != nil {
			return false, false
		}
		return false, true
	}

	command, args, _ := strings.Cut(line, " ")
	args = strings.TrimSpace(args)

	switch command {
	case "/exit", "/quit":
		return true, false

	case "/help":
		r.printf("%s\n", cliui.DimStyle.Render(strings.Join([]string{
			"  /analysis <problem> | <root cause>",
			"  /reset",
			"  /clear",
			"  /history",
			"  /fullscreen",
			"  /exit",
		}, "\n")))

	case "/reset":
		r.o.Close()
		r.o.Reset()
		r.o.Open()
		r.printf("  %s %s\n\n", cliui.SuccessMark, "Conversation reset")

	case "/clear":
		r.clear(ctx)

	case "/analysis":
		a, err := chat.ParseAnalysis(args)
		if err != nil {
			r.printf("  %s %v\n\n", cliui.FailMark, err)
			return false, false
		}

		err = r.o.StartContextual(ctx, a)
		r.transcript()
		if err != nil && !errors.Is(err, chat.ErrAuthorizationMissing) {
			r.printf("  %s %v\n\n", cliui.FailMark, err)
		}

	case "/history":
		r.transcript()

	case "/fullscreen":
		on := r.o.ToggleFullScreen()
		r.printf("  %s %s\n\n", cliui.KeyStyle.Render("Full screen:"), cliui.ValueStyle.Render(fmt.Sprint(on)))

	default:
		r.printf("  %s unknown command %s\n\n", cliui.FailMark, cliui.NameStyle.Render(utils.Truncate(command, 24)))
	}

	return false, false
}

func (r *repl) clear(ctx context.Context) {
	id, ok := r.identity.UserID()
	if !ok {
		r.Notify(chat.Notice{Kind: chat.NoticeAuthRequired, Err: chat.ErrAuthorizationMissing})
		return
	}

	r.mu.Lock()
	err := cliui.Step(r.out, "Clearing service context", func() error {
		return r.clearer.ClearContext(ctx, id)
	})
	r.mu.Unlock()

	if err != nil {
		r.printf("  %s\n\n", cliui.DimStyle.Render(err.Error()))
		return
	}

	r.o.Close()
	r.o.Reset()
	r.o.Open()
	r.printf("\n")
}

func (r *repl) transcript() {
	st := r.o.Snapshot()

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(st.Messages) == 0 {
		fmt.Fprintf(r.out, "  %s\n\n", cliui.DimStyle.Render("No messages yet"))
		return
	}

	cliui.Transcript(r.out, st, r.width, r.markdown)
	fmt.Fprintln(r.out)
}
