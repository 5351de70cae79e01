// Package chatcmder provides the interactive chat command.
package chatcmder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/reviewagent/revchat/cmd/revchat/cmdenv"
	"github.com/reviewagent/revchat/pkg/chat"
	"github.com/reviewagent/revchat/pkg/cliui"
	"github.com/reviewagent/revchat/pkg/config"
	"github.com/reviewagent/revchat/pkg/git"
	"github.com/reviewagent/revchat/pkg/metrics"
	"github.com/reviewagent/revchat/pkg/stream"
)

type chatCommander struct {
	apiTarget     string
	timeout       string
	chunkSize     int
	userAgent     string
	cryptoKey     string
	record        string
	metricsListen string
	markdown      bool
}

var registeredFlags = []string{
	config.FlagAPITarget,
	config.FlagTimeout,
	config.FlagChunkSize,
	config.FlagUserAgent,
	config.FlagCryptoKey,
}

const chatLongDesc string = `Start an interactive chat with the analysis service.

Replies stream in as they are produced. Press Ctrl+C while a reply is
streaming to stop it; press Ctrl+C at the prompt or type /exit to quit.

Commands:
  /analysis <problem> | <root cause>   Discuss an analysis result
  /reset                               Start over in direct mode
  /clear                               Forget the service-side context
  /history                             Print the conversation
  /fullscreen                          Toggle the boxed transcript
  /help                                Show commands
  /exit                                Quit

Examples:
  revchat chat
  revchat chat --api-target http://analysis.internal:8123
  revchat chat --record session.sse --metrics-listen :9464`

const chatShortDesc string = "Interactive chat with the analysis service"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd, registeredFlags...)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("markdown") {
				cmder.markdown = term.IsTerminal(int(os.Stdout.Fd()))
			}

			return cmder.run(cmd.Context(), env)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagTimeout, &cmder.timeout)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkSize, &cmder.chunkSize)
	config.AddStringFlag(cmd, config.Flags, config.FlagUserAgent, &cmder.userAgent)
	config.AddStringFlag(cmd, config.Flags, config.FlagCryptoKey, &cmder.cryptoKey)
	cmd.Flags().StringVar(&cmder.record, "record", "", "Append the raw event stream to this file")
	cmd.Flags().StringVar(&cmder.metricsListen, "metrics-listen", "", "Serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", true, "Render finished replies as markdown (default: on for terminals)")

	return cmd
}

func (c *chatCommander) run(parent context.Context, env *cmdenv.Env) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	client, err := env.Client()
	if err != nil {
		return err
	}
	defer client.Close()

	authMgr, err := env.Auth()
	if err != nil {
		return err
	}
	go func() {
		if err := authMgr.Watch(ctx); err != nil {
			env.Logger.Warn("not watching auth file", "error", err)
		}
	}()

	sessionOpts := []stream.Option{stream.WithChunkSize(env.Config.Client.ChunkSize)}

	if c.record != "" {
		f, err := os.OpenFile(c.record, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("opening record file: %w", err)
		}
		defer f.Close()
		sessionOpts = append(sessionOpts, stream.WithRecorder(f))
	}

	var collector *metrics.Collector
	if c.metricsListen != "" {
		collector = metrics.New()
		stop := serveMetrics(c.metricsListen, collector, env)
		defer stop()
	}

	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}

	r := newREPL(os.Stdout, width, c.markdown)
	r.clearer = client
	r.identity = authMgr
	r.repo = git.Detect(ctx, "")

	r.o = chat.New(client, authMgr,
		chat.WithLogger(env.Logger),
		chat.WithNotifier(r),
		chat.WithMetrics(collector),
		chat.WithFraming(chat.Framing{
			Template:        env.Config.Chat.ContextTemplate,
			Acknowledgement: env.Config.Chat.Acknowledgement,
		}),
		chat.WithSessionOptions(sessionOpts...),
	)
	r.o.Open()
	defer r.o.Shutdown()

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	r.banner(client.BaseURL())

	return r.run(ctx, os.Stdin, interrupts)
}

func serveMetrics(addr string, collector *metrics.Collector, env *cmdenv.Env) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			env.Logger.Error("metrics server failed", "listen", addr, "error", err)
		}
	}()

	env.Logger.Info("serving metrics", "listen", addr)
	fmt.Fprintf(os.Stderr, "  %s %s\n", cliui.KeyStyle.Render("Metrics:"), cliui.DimStyle.Render("http://"+addr+"/metrics"))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
