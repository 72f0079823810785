package cli

import (
	"testing"
	"time"

	"github.com/fmueller/speech2symbol/internal/pipeline"
	"github.com/stretchr/testify/require"
)

func TestProgressIndicatorsStop(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start func() stopFunc
	}{
		{name: "spinner", start: func() stopFunc { return startSpinner(true, "Recognizing") }},
		{name: "spinner disabled", start: func() stopFunc { return startSpinner(false, "Recognizing") }},
		{name: "duration", start: func() stopFunc { return startDurationProgress(true, "Listening", 5*time.Second) }},
		{name: "duration disabled", start: func() stopFunc { return startDurationProgress(false, "Listening", 5*time.Second) }},
		{name: "zero duration", start: func() stopFunc { return startDurationProgress(true, "Listening", 0) }},
		{name: "sub-second duration", start: func() stopFunc { return startDurationProgress(true, "Listening", 500*time.Millisecond) }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stop := tt.start()
			require.NotNil(t, stop)
			stop()
			stop()
		})
	}
}

func TestProgressHookSwitchesStages(t *testing.T) {
	t.Parallel()

	app := newAppState()
	app.noProgress = true
	app.cfg.Capture.Duration = 2 * time.Second

	hook, finish := app.progressHook()
	hook(pipeline.StageListening)
	hook(pipeline.StageRecognizing)
	finish()
	finish()
}
