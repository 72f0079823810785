package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fmueller/speech2symbol/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRecordCmd(app *appState) *cobra.Command {
	var interactive bool
	var copyResult bool

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Listen once, print the text with symbols and append it to the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := withInterrupt(cmd.Context())
			defer stop()

			result, err := app.recordOnce(ctx, cmd.OutOrStdout(), interactive)
			if err != nil {
				return err
			}
			if copyResult {
				if err := app.copyText(ctx, result.Text); err == nil {
					app.log().Info("text copied to clipboard")
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&interactive, "interactive", false, "Listen until Enter is pressed instead of for --duration")
	cmd.Flags().BoolVar(&copyResult, "copy", false, "Copy the text to the clipboard")
	return cmd
}

func (a *appState) recordOnce(ctx context.Context, out io.Writer, interactive bool) (pipeline.Result, error) {
	p, err := a.newPipeline(interactive)
	if err != nil {
		return pipeline.Result{}, err
	}

	hook, finish := a.progressHook()
	p.OnStage = hook
	result, err := p.Run(ctx)
	finish()
	if err != nil {
		return pipeline.Result{}, err
	}

	return result, a.printResult(out, result)
}

func (a *appState) printResult(out io.Writer, result pipeline.Result) error {
	if _, err := fmt.Fprintln(out, result.Text); err != nil {
		return err
	}
	if result.PersistErr != nil {
		a.log().Warn("text was not saved to the journal", zap.Error(result.PersistErr))
	}
	return nil
}
