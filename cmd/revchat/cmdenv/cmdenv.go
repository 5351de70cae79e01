// Package cmdenv resolves the configuration, logger and service client shared
// by revchat commands.
package cmdenv

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reviewagent/revchat/pkg/auth"
	"github.com/reviewagent/revchat/pkg/config"
	"github.com/reviewagent/revchat/pkg/logger"
	"github.com/reviewagent/revchat/pkg/sealer"
	"github.com/reviewagent/revchat/pkg/transport"
)

// Env is the resolved environment of one command invocation.
type Env struct {
	ConfigDir string
	Debug     bool
	Viper     *viper.Viper
	Config    *config.Config
	Logger    *slog.Logger
}

// Load reads the layered configuration for cmd. flags lists the registry
// keys of config.Flags registered on cmd; changed flags take precedence.
func Load(cmd *cobra.Command, flags ...string) (*Env, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, flags)

	env := &Env{
		ConfigDir: configDir,
		Debug:     debug,
		Viper:     v,
		Config:    config.Resolve(v),
	}
	env.Logger = env.NewLogger("")

	return env, nil
}

// NewLogger builds a stderr logger from the log section. --debug wins over
// log.level.
func (e *Env) NewLogger(prefix string) *slog.Logger {
	return logger.New(
		logger.WithFormat(logger.FormatFor(e.Config.Log.JSON, e.Config.Log.Pretty)),
		logger.WithLevel(e.Config.Log.Level),
		logger.WithDebug(e.Debug),
		logger.WithPrefix(prefix),
	)
}

// Sealer returns the credential sealer for crypto.key.
func (e *Env) Sealer() (sealer.Sealer, error) {
	s, err := sealer.New([]byte(e.Config.Crypto.Key))
	if err != nil {
		return nil, fmt.Errorf("crypto.key: %w", err)
	}
	return s, nil
}

// Client returns a service client configured from the client section.
func (e *Env) Client() (*transport.Client, error) {
	client, err := transport.NewClient(e.Config.Client.APITarget)
	if err != nil {
		return nil, err
	}

	timeout, err := e.Config.ClientTimeout()
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	if ua := e.Config.Client.UserAgent; ua != "" {
		client.SetUserAgent(ua)
	}

	s, err := e.Sealer()
	if err != nil {
		return nil, err
	}

	client.SetSealer(s).SetLogger(e.Logger)

	return client, nil
}

// Auth returns the identity store, hydrated from auth.toml.
func (e *Env) Auth() (*auth.Manager, error) {
	mgr, err := auth.NewManager(e.ConfigDir, e.Logger)
	if err != nil {
		return nil, fmt.Errorf("loading auth: %w", err)
	}

	if err := mgr.Hydrate(); err != nil {
		return nil, fmt.Errorf("loading auth: %w", err)
	}

	return mgr, nil
}
