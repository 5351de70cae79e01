// Package servecmder provides the serve command, which runs the development
// analysis server.
package servecmder

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reviewagent/revchat/cmd/revchat/cmdenv"
	"github.com/reviewagent/revchat/pkg/config"
	"github.com/reviewagent/revchat/pkg/devserver"
	"github.com/reviewagent/revchat/pkg/logger"
)

type serveCommander struct {
	listen         string
	wordsPerSecond int
	cryptoKey      string
	logLevel       string
	replyWords     int
	logFile        string
}

var registeredFlags = []string{
	config.FlagListen,
	config.FlagWordsPerSecond,
	config.FlagCryptoKey,
	config.FlagLogLevel,
}

const serveLongDesc string = `Run the development analysis server.

The server answers the same chat, context and user endpoints as the analysis
service, streaming lorem ipsum replies at a steady pace. Accounts live in
memory and are lost on exit. Point "revchat chat" at it with --api-target.

Examples:
  revchat serve
  revchat serve --listen :9000 --words-per-second 5
  revchat serve --log-file serve.jsonl`

const serveShortDesc string = "Run the development analysis server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd, registeredFlags...)
			if err != nil {
				return err
			}
			return cmder.run(env)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddIntFlag(cmd, config.Flags, config.FlagWordsPerSecond, &cmder.wordsPerSecond)
	config.AddStringFlag(cmd, config.Flags, config.FlagCryptoKey, &cmder.cryptoKey)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogLevel, &cmder.logLevel)
	cmd.Flags().IntVar(&cmder.replyWords, "reply-words", 40, "Approximate length of each streamed reply")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

func (c *serveCommander) run(env *cmdenv.Env) error {
	log := env.NewLogger("serve")

	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()

		fileLog := logger.New(
			logger.WithFormat(logger.FormatJSON),
			logger.WithLevel(env.Config.Log.Level),
			logger.WithDebug(env.Debug),
			logger.WithPrefix("serve"),
			logger.WithOutput(f),
		)
		log = logger.Tee(log, fileLog)
	}

	seal, err := env.Sealer()
	if err != nil {
		return err
	}

	server := devserver.NewServer(devserver.Config{
		ListenAddr:     env.Config.DevServer.Listen,
		WordsPerSecond: env.Config.DevServer.WordsPerSecond,
		ReplyWords:     c.replyWords,
		Sealer:         seal,
	}, log)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("development server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.Info("received signal, shutting down", slog.String("signal", sig.String()))
		return server.Shutdown()
	}
}
