package logincmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/reviewagent/revchat/cmd/revchat/cmdenv"
	"github.com/reviewagent/revchat/pkg/cliui"
)

func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd)
			if err != nil {
				return err
			}
			return runLogout(env, cmd.OutOrStdout())
		},
	}
}

func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd)
			if err != nil {
				return err
			}
			return runWhoami(env, cmd.OutOrStdout())
		},
	}
}

func runLogout(env *cmdenv.Env, out io.Writer) error {
	authMgr, err := env.Auth()
	if err != nil {
		return err
	}

	if err := authMgr.Clear(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Logged out.\n\n", cliui.SuccessMark)
	return nil
}

func runWhoami(env *cmdenv.Env, out io.Writer) error {
	authMgr, err := env.Auth()
	if err != nil {
		return err
	}

	user, ok := authMgr.Current()
	if !ok {
		fmt.Fprintf(out, "\n  %s Not logged in.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(out, "  Use 'revchat login' to log in.\n\n")
		return nil
	}

	fmt.Fprintf(out, "\n  %s %s %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(user.Username),
		cliui.DimStyle.Render("(id "+user.ID+")"),
	)
	fmt.Fprintf(out, "  %s %s\n",
		cliui.KeyStyle.Render("Since:"),
		cliui.ValueStyle.Render(user.LoggedInAt.Local().Format("2006-01-02 15:04")),
	)
	fmt.Fprintf(out, "  %s %s\n\n",
		cliui.KeyStyle.Render("Stored in:"),
		cliui.DimStyle.Render(authMgr.GetTarget()),
	)

	return nil
}
