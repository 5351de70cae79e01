package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reviewagent/revchat/pkg/cliui"
)

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Save one configuration value",
		Long: `Validate value and save it under key in config.toml.

Examples:
  revchat config set client.api_target https://analysis.internal
  revchat config set client.chunk_size 1024
  revchat config set log.json true`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, value := args[0], args[1]
			if err := checkKey(name); err != nil {
				return err
			}

			store, err := openStore(cmd)
			if err != nil {
				return err
			}

			if err := store.Set(name, value); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			header(out, store)
			fmt.Fprintf(out, "  %s %s = %s\n\n", cliui.SuccessMark, name, display(name, value))
			return nil
		},
	}
}
