package cli

import (
	"fmt"
	"io"

	"github.com/fmueller/speech2symbol/internal/language"
	"github.com/fmueller/speech2symbol/internal/symbols"
	"github.com/spf13/cobra"
)

func newLanguagesCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported recognition languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			current, err := language.Parse(app.cfg.Language)
			if err != nil {
				return err
			}
			printLanguages(cmd.OutOrStdout(), current)
			return nil
		},
	}
}

func newSymbolsCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "symbols",
		Short: "List spoken words and the symbols they become",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printSymbols(cmd.OutOrStdout(), app.table)
			return nil
		},
	}
}

func printSymbols(out io.Writer, table *symbols.Table) {
	for _, entry := range table.Entries() {
		fmt.Fprintf(out, "%-12s %s\n", entry.Word, entry.Symbol)
	}
}
