package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fmueller/speech2symbol/internal/audio"
	"github.com/fmueller/speech2symbol/internal/recognize"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	app         *appState
	dir         string
	journalPath string

	mu      sync.Mutex
	tones   []float64
	locales []string
	copied  []string
}

// newTestEnv returns an app that reads an isolated config file and journals
// into a temp directory. Tones are recorded instead of played.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	env := &testEnv{dir: dir, journalPath: filepath.Join(dir, "saved_text.txt")}

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("journal_path: "+env.journalPath+"\n"), 0o644))

	env.app = newAppState()
	env.app.envFile = ""
	env.app.configPath = cfgPath
	env.app.beepFn = func(freq float64, _ int) error {
		env.mu.Lock()
		defer env.mu.Unlock()
		env.tones = append(env.tones, freq)
		return nil
	}
	env.app.copyFn = func(_ context.Context, text string) error {
		env.mu.Lock()
		defer env.mu.Unlock()
		env.copied = append(env.copied, text)
		return nil
	}
	env.app.captureFn = func(context.Context, bool) (audio.Clip, error) {
		return speechClipForTest(), nil
	}
	return env
}

func (e *testEnv) saying(texts ...string) {
	queue := append([]string(nil), texts...)
	e.app.recognizerFn = func(context.Context) (recognize.Recognizer, error) {
		return recognize.Func(func(_ context.Context, _ audio.Clip, locale string) (string, error) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.locales = append(e.locales, locale)
			if len(queue) == 0 {
				return "", recognize.ErrUnintelligible
			}
			text := queue[0]
			queue = queue[1:]
			if text == "" {
				return "", recognize.ErrUnintelligible
			}
			return text, nil
		}), nil
	}
}

func (e *testEnv) playedTones() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]float64(nil), e.tones...)
}

func (e *testEnv) seenLocales() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.locales...)
}

func (e *testEnv) clipboard() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.copied...)
}

func (e *testEnv) journal(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(e.journalPath)
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	return executeApp(e.app, stdin, args)
}

func runCommand(t *testing.T, args []string) (stdout string, stderr string, err error) {
	t.Helper()
	return newTestEnv(t).run(t, "", args...)
}

func executeApp(app *appState, stdin string, args []string) (string, string, error) {
	cmd := newRootCmd(app)
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(append([]string{"--no-progress"}, args...))

	err := cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func speechClipForTest() audio.Clip {
	samples := make([]int16, 1600)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 6000
		} else {
			samples[i] = -6000
		}
	}
	return audio.PCM16(samples, 16000, 1)
}
