package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fmueller/speech2symbol/internal/audio"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTranscribeCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <wav-file>",
		Short: "Recognize a WAV file, print the text with symbols and append it to the journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := withInterrupt(cmd.Context())
			defer stop()
			return app.transcribeFile(ctx, cmd.OutOrStdout(), args[0])
		},
	}
}

func (a *appState) transcribeFile(ctx context.Context, out io.Writer, path string) error {
	path = filepath.Clean(path)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("audio file not found: %w", err)
	}

	clip, err := audio.ReadWAV(path)
	if err != nil {
		return err
	}

	p, err := a.newPipeline(false)
	if err != nil {
		return err
	}

	a.log().Info("recognizing...", zap.String("audio", path), zap.String("language", p.Language.Current().Name))
	stopSpinner := startSpinner(a.progressEnabled(), "Recognizing")
	started := time.Now()
	result, err := p.Process(ctx, clip)
	stopSpinner()
	if err != nil {
		a.log().Warn("recognition failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return err
	}
	a.log().Info("recognition finished", zap.Duration("elapsed", time.Since(started)))

	return a.printResult(out, result)
}
