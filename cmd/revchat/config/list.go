package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reviewagent/revchat/pkg/config"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every configuration value",
		Long: `Print every key with its effective value, grouped by config.toml section.

Examples:
  revchat config list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}

			cfg, err := store.Load()
			if err != nil {
				return err
			}

			names := config.Keys()
			width := 0
			for _, name := range names {
				width = max(width, len(name))
			}

			out := cmd.OutOrStdout()
			header(out, store)

			section := ""
			for _, name := range names {
				value, err := config.Lookup(cfg, name)
				if err != nil {
					return err
				}

				if s, _, _ := strings.Cut(name, "."); s != section {
					if section != "" {
						fmt.Fprintln(out)
					}
					section = s
				}

				fmt.Fprintf(out, "  %-*s  %s\n", width, name, display(name, value))
			}
			fmt.Fprintln(out)

			return nil
		},
	}
}
