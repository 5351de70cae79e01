// Package revchatcmder is the revchat root command.
package revchatcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/reviewagent/revchat/cmd/revchat/chat"
	configcmder "github.com/reviewagent/revchat/cmd/revchat/config"
	logincmder "github.com/reviewagent/revchat/cmd/revchat/login"
	servecmder "github.com/reviewagent/revchat/cmd/revchat/serve"
	versioncmder "github.com/reviewagent/revchat/cmd/version"
)

const revchatLongDesc string = `revchat is a terminal client for the code review analysis service.

Replies stream in as the service writes them. Sign in once and the identity
is reused by every chat session.

Get started:
  revchat register     Create an account
  revchat login        Sign in
  revchat chat         Start a conversation
  revchat serve        Run a local development server`

const revchatShortDesc string = "revchat - Code Review Chat"

func NewRevchatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "revchat",
		Short:         revchatShortDesc,
		Long:          revchatLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .revchat directory location")

	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(logincmder.NewLoginCmd())
	cmd.AddCommand(logincmder.NewRegisterCmd())
	cmd.AddCommand(logincmder.NewLogoutCmd())
	cmd.AddCommand(logincmder.NewWhoamiCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
