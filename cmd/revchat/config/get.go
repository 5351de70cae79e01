package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Long: `Print the effective value of key: the one in config.toml, or the default.

Examples:
  revchat config get client.api_target
  revchat config get devserver.listen`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := checkKey(name); err != nil {
				return err
			}

			store, err := openStore(cmd)
			if err != nil {
				return err
			}

			value, err := store.Get(name)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			header(out, store)
			fmt.Fprintf(out, "  %s  %s\n\n", name, display(name, value))
			return nil
		},
	}
}
