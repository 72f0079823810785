package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fmueller/speech2symbol/internal/symbols"
	"github.com/spf13/cobra"
)

func newConvertCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "convert [text...]",
		Short: "Replace spoken words with symbols in text from the arguments or stdin",
		Example: `  speech2symbol convert five plus five equals ten
  echo "x squared minus y" | speech2symbol convert`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), app.table.Transform(strings.Join(args, " ")))
				return err
			}
			return convertLines(cmd.InOrStdin(), cmd.OutOrStdout(), app.table)
		},
	}
}

func convertLines(in io.Reader, out io.Writer, table *symbols.Table) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if _, err := fmt.Fprintln(out, table.Transform(scanner.Text())); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}
