// Package configcmder provides `revchat config`, which reads and edits
// config.toml in the .revchat/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reviewagent/revchat/pkg/cliui"
	"github.com/reviewagent/revchat/pkg/config"
)

const configLongDesc string = `Read and edit config.toml in the .revchat/ directory.

Values saved here are the defaults for every command. REVCHAT_* environment
variables and command flags override them for a single run.

Keys:
  client.api_target, client.timeout, client.chunk_size, client.user_agent,
  crypto.key,
  chat.context_template, chat.acknowledgement,
  devserver.listen, devserver.words_per_second,
  log.level, log.json, log.pretty

Examples:
  revchat config set client.api_target https://analysis.internal
  revchat config set client.timeout 30s
  revchat config get client.api_target
  revchat config list`

const maskedValue = "********"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and edit config.toml",
		Long:  configLongDesc,
	}

	cmd.AddCommand(newGetCmd(), newSetCmd(), newListCmd())

	return cmd
}

// openStore opens config.toml in the directory named by --config-dir.
func openStore(cmd *cobra.Command) (*config.Store, error) {
	dir, _ := cmd.Flags().GetString("config-dir")

	store, err := config.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	return store, nil
}

func checkKey(name string) error {
	if config.IsKey(name) {
		return nil
	}
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s", name, strings.Join(config.Keys(), ", "))
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return config.Keys(), cobra.ShellCompDirectiveNoFileComp
}

// display is what the commands print for value: masked for secrets and a
// placeholder when empty.
func display(name, value string) string {
	switch {
	case value == "":
		return cliui.DimStyle.Render("<not set>")
	case config.IsSecret(name):
		return cliui.DimStyle.Render(maskedValue)
	default:
		return cliui.ValueStyle.Render(value)
	}
}

func header(out io.Writer, store *config.Store) {
	fmt.Fprintf(out, "\n  %s %s\n\n", cliui.KeyStyle.Render("config.toml"), cliui.DimStyle.Render(store.Path()))
}
