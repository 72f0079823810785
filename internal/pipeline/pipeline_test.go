package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fmueller/speech2symbol/internal/audio"
	"github.com/fmueller/speech2symbol/internal/feedback"
	"github.com/fmueller/speech2symbol/internal/journal"
	"github.com/fmueller/speech2symbol/internal/language"
	"github.com/fmueller/speech2symbol/internal/recognize"
	"github.com/fmueller/speech2symbol/internal/session"
	"github.com/fmueller/speech2symbol/internal/symbols"
	"github.com/stretchr/testify/require"
)

type toneLog struct {
	mu    sync.Mutex
	freqs []float64
}

func (l *toneLog) beep(freq float64, _ int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.freqs = append(l.freqs, freq)
	return nil
}

func (l *toneLog) played() []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]float64(nil), l.freqs...)
}

type fixture struct {
	pipeline *Pipeline
	session  *session.Session
	language *language.Selection
	tones    *toneLog
	journal  string
	locales  []string
}

func speechClip() audio.Clip {
	samples := make([]int16, 1600)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 8000
		} else {
			samples[i] = -8000
		}
	}
	return audio.PCM16(samples, 16000, 1)
}

func newFixture(t *testing.T, journalPath string, recognizeFn recognize.Func) *fixture {
	t.Helper()

	table, err := symbols.Default()
	require.NoError(t, err)
	lang, err := language.NewSelection("")
	require.NoError(t, err)

	f := &fixture{language: lang, tones: &toneLog{}, journal: journalPath}
	f.session = session.New(journal.New(journalPath, journal.Options{}))

	signaler := feedback.NewSignaler(feedback.DefaultTones(), true, nil)
	signaler.Beep = f.tones.beep

	f.pipeline = &Pipeline{
		Capturer: CaptureFunc(func(context.Context) (audio.Clip, error) { return speechClip(), nil }),
		Recognizer: recognize.Func(func(ctx context.Context, clip audio.Clip, locale string) (string, error) {
			f.locales = append(f.locales, locale)
			return recognizeFn(ctx, clip, locale)
		}),
		Table:       table,
		Session:     f.session,
		Language:    lang,
		Signaler:    signaler,
		SilenceGate: true,
	}
	return f
}

func saying(text string) recognize.Func {
	return func(context.Context, audio.Clip, string) (string, error) { return text, nil }
}

func TestRunRecordsTransformedUtterance(t *testing.T) {
	t.Parallel()

	journalPath := filepath.Join(t.TempDir(), "saved_text.txt")
	f := newFixture(t, journalPath, saying("five plus five equals ten"))

	result, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "five plus five equals ten", result.Raw)
	require.Equal(t, "five + five = ten", result.Text)
	require.NoError(t, result.PersistErr)

	require.Equal(t, "five + five = ten", f.session.Snapshot())
	data, err := os.ReadFile(journalPath)
	require.NoError(t, err)
	require.Equal(t, "five + five = ten\n", string(data))
	require.Equal(t, []float64{1000}, f.tones.played())
	require.Equal(t, []string{"en-IN"}, f.locales)
}

func TestRunUnintelligibleLeavesSessionUnchanged(t *testing.T) {
	t.Parallel()

	journalPath := filepath.Join(t.TempDir(), "saved_text.txt")
	f := newFixture(t, journalPath, saying("two minus one"))
	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	f.pipeline.Recognizer = recognize.Func(func(context.Context, audio.Clip, string) (string, error) {
		return "", recognize.ErrUnintelligible
	})
	_, err = f.pipeline.Run(context.Background())
	require.ErrorIs(t, err, recognize.ErrUnintelligible)

	require.Equal(t, "two - one", f.session.Snapshot())
	require.Equal(t, 1, f.session.Len())
	data, err := os.ReadFile(journalPath)
	require.NoError(t, err)
	require.Equal(t, "two - one\n", string(data))
	require.Equal(t, []float64{1000, 500}, f.tones.played())
}

func TestRunServiceUnavailableSignalsFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, filepath.Join(t.TempDir(), "saved_text.txt"), func(context.Context, audio.Clip, string) (string, error) {
		return "", recognize.ErrServiceUnavailable
	})

	_, err := f.pipeline.Run(context.Background())
	require.ErrorIs(t, err, recognize.ErrServiceUnavailable)
	require.Zero(t, f.session.Len())
	require.Equal(t, []float64{500}, f.tones.played())
}

func TestRunUsesSelectedLanguage(t *testing.T) {
	t.Parallel()

	f := newFixture(t, filepath.Join(t.TempDir(), "saved_text.txt"), saying("do plus do"))
	_, err := f.language.Set("Hindi")
	require.NoError(t, err)

	_, err = f.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"hi-IN"}, f.locales)
}

func TestRunKeepsTextWhenJournalFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	f := newFixture(t, filepath.Join(blocker, "saved_text.txt"), saying("x times y"))

	result, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.ErrorIs(t, result.PersistErr, journal.ErrWriteFailed)
	require.Equal(t, "x × y", result.Text)
	require.Equal(t, "x × y", f.session.Snapshot())
	require.Equal(t, []float64{750}, f.tones.played())
}

func TestRunSilentClipSkipsRecognizer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, filepath.Join(t.TempDir(), "saved_text.txt"), saying("should not be used"))
	f.pipeline.Capturer = CaptureFunc(func(context.Context) (audio.Clip, error) {
		return audio.PCM16(make([]int16, 16000), 16000, 1), nil
	})

	_, err := f.pipeline.Run(context.Background())
	require.ErrorIs(t, err, recognize.ErrUnintelligible)
	require.Empty(t, f.locales)
	require.Zero(t, f.session.Len())
	require.Equal(t, []float64{500}, f.tones.played())
}

func TestRunReportsStages(t *testing.T) {
	t.Parallel()

	f := newFixture(t, filepath.Join(t.TempDir(), "saved_text.txt"), saying("a"))
	var stages []Stage
	f.pipeline.OnStage = func(s Stage) { stages = append(stages, s) }

	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Stage{StageListening, StageRecognizing}, stages)
	require.Equal(t, "Listening", StageListening.String())
}

func TestRunnerCancelAbortsPendingCapture(t *testing.T) {
	t.Parallel()

	f := newFixture(t, filepath.Join(t.TempDir(), "saved_text.txt"), saying("unused"))
	started := make(chan struct{})
	f.pipeline.Capturer = CaptureFunc(func(ctx context.Context) (audio.Clip, error) {
		close(started)
		<-ctx.Done()
		return audio.Clip{}, ctx.Err()
	})

	runner := NewRunner(f.pipeline)
	job, err := runner.Start(context.Background())
	require.NoError(t, err)
	<-started

	require.True(t, runner.Busy())
	_, err = runner.Start(context.Background())
	require.ErrorIs(t, err, ErrBusy)

	require.True(t, runner.Cancel())
	_, err = job.Wait()
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, runner.Busy())
	require.False(t, runner.Cancel())

	require.Zero(t, f.session.Len())
	require.Empty(t, f.tones.played())
}

func TestRunnerStartsAgainAfterCompletion(t *testing.T) {
	t.Parallel()

	f := newFixture(t, filepath.Join(t.TempDir(), "saved_text.txt"), saying("one plus one"))
	runner := NewRunner(f.pipeline)

	for i := 0; i < 2; i++ {
		job, err := runner.Start(context.Background())
		require.NoError(t, err)
		select {
		case <-job.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("job did not finish")
		}
		result, err := job.Wait()
		require.NoError(t, err)
		require.Equal(t, "one + one", result.Text)
	}
	require.Equal(t, "one + one\none + one", f.session.Snapshot())
}
