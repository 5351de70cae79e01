// Package logincmder provides the commands that manage the logged-in user:
// login, register, logout and whoami.
package logincmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/reviewagent/revchat/cmd/revchat/cmdenv"
	"github.com/reviewagent/revchat/pkg/cliui"
	"github.com/reviewagent/revchat/pkg/config"
	"github.com/reviewagent/revchat/pkg/transport"
)

var registeredFlags = []string{
	config.FlagAPITarget,
	config.FlagCryptoKey,
}

type loginCommander struct {
	username  string
	apiTarget string
	cryptoKey string

	in  io.Reader
	out io.Writer
}

const loginLongDesc string = `Log in to the analysis service.

The password is encrypted with crypto.key before it is sent. On success the
user id is stored in auth.toml in the .revchat/ directory and used by
"revchat chat", including sessions that are already running.

Examples:
  revchat login --username ana
  echo "$PASSWORD" | revchat login -u ana`

const registerLongDesc string = `Create an account on the analysis service.

Examples:
  revchat register --username ana`

func NewLoginCmd() *cobra.Command {
	cmder := &loginCommander{in: os.Stdin, out: os.Stdout}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the analysis service",
		Long:  loginLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd, registeredFlags...)
			if err != nil {
				return err
			}
			return cmder.runLogin(cmd.Context(), env)
		},
	}

	cmder.addFlags(cmd)

	return cmd
}

func NewRegisterCmd() *cobra.Command {
	cmder := &loginCommander{in: os.Stdin, out: os.Stdout}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the analysis service",
		Long:  registerLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd, registeredFlags...)
			if err != nil {
				return err
			}
			return cmder.runRegister(cmd.Context(), env)
		},
	}

	cmder.addFlags(cmd)

	return cmd
}

func (c *loginCommander) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&c.username, "username", "u", "", "Account name (prompted when omitted)")
	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &c.apiTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagCryptoKey, &c.cryptoKey)
}

func (c *loginCommander) runLogin(ctx context.Context, env *cmdenv.Env) error {
	if ctx == nil {
		ctx = context.Background()
	}

	username, password, err := c.readCredentials()
	if err != nil {
		return err
	}

	client, err := env.Client()
	if err != nil {
		return err
	}
	defer client.Close()

	authMgr, err := env.Auth()
	if err != nil {
		return err
	}

	var user *transport.User
	err = cliui.Step(c.out, "Logging in to "+client.BaseURL(), func() error {
		var err error
		user, err = client.Login(ctx, username, password)
		return err
	})
	if err != nil {
		return err
	}

	if err := authMgr.Save(user.ID, user.Username); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Logged in as %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(user.Username),
		cliui.DimStyle.Render("(id "+user.ID+")"),
	)

	return nil
}

func (c *loginCommander) runRegister(ctx context.Context, env *cmdenv.Env) error {
	if ctx == nil {
		ctx = context.Background()
	}

	username, password, err := c.readCredentials()
	if err != nil {
		return err
	}

	client, err := env.Client()
	if err != nil {
		return err
	}
	defer client.Close()

	err = cliui.Step(c.out, "Registering "+username, func() error {
		return client.Register(ctx, username, password)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Registered. Run %s next.\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render("revchat login -u "+username),
	)

	return nil
}

// readCredentials prompts for whatever was not given on the command line.
// Piped input supplies the username (when needed) and then the password,
// one per line.
func (c *loginCommander) readCredentials() (string, string, error) {
	f, isFile := c.in.(*os.File)
	interactive := isFile && term.IsTerminal(int(f.Fd()))

	reader := bufio.NewReader(c.in)

	username := strings.TrimSpace(c.username)
	if username == "" {
		if interactive {
			fmt.Fprint(c.out, "Username: ")
		}
		line, err := readLine(reader)
		if err != nil {
			return "", "", fmt.Errorf("reading username: %w", err)
		}
		username = strings.TrimSpace(line)
	}

	if username == "" {
		return "", "", errors.New("username cannot be empty")
	}

	var password string
	if interactive {
		fmt.Fprint(c.out, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.out) // newline after hidden input
		if err != nil {
			return "", "", fmt.Errorf("reading password: %w", err)
		}
		password = string(b)
	} else {
		line, err := readLine(reader)
		if err != nil {
			return "", "", fmt.Errorf("reading password: %w", err)
		}
		password = line
	}

	if password == "" {
		return "", "", errors.New("password cannot be empty")
	}

	return username, password, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if errors.Is(err, io.EOF) && line != "" {
		err = nil
	}
	if errors.Is(err, io.EOF) {
		return "", errors.New("no input received on stdin")
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
