package cli

import (
	"fmt"

	"github.com/fmueller/speech2symbol/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if full {
				fmt.Fprintln(cmd.OutOrStdout(), version.Current())
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "speech2symbol v%s\n", version.Resolve())
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Include commit, build date and Go version")
	return cmd
}
