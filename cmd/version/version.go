// Package versioncmder provides the version command.
package versioncmder

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/reviewagent/revchat/pkg/utils"
)

func NewVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the revchat version",
		Long:  "Print the version, commit and build time stamped into this binary.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, utils.Version)
				return nil
			}

			fmt.Fprintf(out, "revchat %s\n", utils.Version)
			fmt.Fprintf(out, "  commit:   %s\n", utils.Sha)
			fmt.Fprintf(out, "  built:    %s\n", utils.Buildtime)
			fmt.Fprintf(out, "  go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print only the version")

	return cmd
}
