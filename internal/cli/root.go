package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fmueller/speech2symbol/internal/audio"
	"github.com/fmueller/speech2symbol/internal/clipboard"
	"github.com/fmueller/speech2symbol/internal/config"
	"github.com/fmueller/speech2symbol/internal/feedback"
	"github.com/fmueller/speech2symbol/internal/journal"
	"github.com/fmueller/speech2symbol/internal/language"
	"github.com/fmueller/speech2symbol/internal/logging"
	"github.com/fmueller/speech2symbol/internal/pipeline"
	"github.com/fmueller/speech2symbol/internal/platform"
	"github.com/fmueller/speech2symbol/internal/recognize"
	"github.com/fmueller/speech2symbol/internal/record"
	"github.com/fmueller/speech2symbol/internal/session"
	"github.com/fmueller/speech2symbol/internal/symbols"
	"github.com/fmueller/speech2symbol/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

type appState struct {
	verbose     bool
	jsonLogs    bool
	quiet       bool
	noProgress  bool
	configPath  string
	envFile     string
	language    string
	journalPath string
	timestamps  bool
	symbolsPath string
	overrides   []string
	apiKey      string
	backend     string
	input       string
	inputFormat string
	duration    time.Duration
	silenceGate bool
	silenceDBFS float64
	noFeedback  bool

	cfg    config.Config
	table  *symbols.Table
	logger *zap.Logger
	now    func() time.Time

	captureFn    func(ctx context.Context, interactive bool) (audio.Clip, error)
	recognizerFn func(ctx context.Context) (recognize.Recognizer, error)
	beepFn       feedback.BeepFunc
	copyFn       func(ctx context.Context, text string) error
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(newAppState())
}

func newAppState() *appState {
	return &appState{
		envFile:     ".env",
		backend:     "auto",
		silenceGate: true,
		silenceDBFS: -65,
		now:         time.Now,
		copyFn:      clipboard.Copier{GOOS: runtime.GOOS}.Copy,
	}
}

func newRootCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "speech2symbol",
		Short:         "Dictate text and math by voice; spoken words like \"plus\" become symbols",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.prepare(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			interrupts, stop := notifyInterrupts()
			defer stop()
			return app.runShell(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), interrupts)
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindLoggingFlags(cmd, app)
	bindConfigFlags(cmd, app)
	bindRecognitionFlags(cmd, app)
	bindRecordingBackendFlags(cmd, app)

	cmd.AddCommand(newRecordCmd(app))
	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newConvertCmd(app))
	cmd.AddCommand(newLanguagesCmd(app))
	cmd.AddCommand(newSymbolsCmd(app))
	cmd.AddCommand(newDevicesCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.PersistentFlags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
	cmd.PersistentFlags().BoolVar(&app.quiet, "quiet", app.quiet, "Only log warnings and errors")
	cmd.PersistentFlags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
}

func bindConfigFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().StringVar(&app.configPath, "config", app.configPath, "Config file (default <config dir>/speech2symbol/config.yaml when present)")
	cmd.PersistentFlags().StringVar(&app.journalPath, "journal", app.journalPath, "File every recognized line is appended to")
	cmd.PersistentFlags().BoolVar(&app.timestamps, "journal-timestamps", app.timestamps, "Prefix journal lines with an RFC 3339 timestamp")
	cmd.PersistentFlags().StringVar(&app.symbolsPath, "symbols", app.symbolsPath, "YAML file mapping spoken words to symbols (replaces the built-in table)")
	cmd.PersistentFlags().StringArrayVar(&app.overrides, "symbol", nil, "Extra word=symbol mapping; repeatable")
	cmd.PersistentFlags().BoolVar(&app.noFeedback, "no-feedback", app.noFeedback, "Disable feedback tones")
}

func bindRecognitionFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().StringVar(&app.language, "language", app.language, "Recognition language: "+strings.Join(language.Names(), "|")+" or a locale such as hi-IN")
	cmd.PersistentFlags().StringVar(&app.apiKey, "api-key", app.apiKey, "Google Cloud Speech-to-Text API key")
	cmd.PersistentFlags().BoolVar(&app.silenceGate, "silence-gate", app.silenceGate, "Treat near-silent audio as unintelligible without calling the service")
	cmd.PersistentFlags().Float64Var(&app.silenceDBFS, "silence-threshold-dbfs", app.silenceDBFS, "Silence gate threshold in dBFS")
}

func bindRecordingBackendFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().StringVar(&app.backend, "backend", app.backend, "Recording backend: auto|pw-record|arecord|ffmpeg")
	cmd.PersistentFlags().StringVar(&app.input, "input", app.input, "Input device (run \"speech2symbol devices\" to list); e.g. node-ID (pw-record), hw:1,0 (arecord), :1 (ffmpeg)")
	cmd.PersistentFlags().StringVar(&app.inputFormat, "input-format", app.inputFormat, "Input format for ffmpeg backend (pulse|alsa)")
	cmd.PersistentFlags().DurationVar(&app.duration, "duration", app.duration, "Listen duration per capture, e.g. 5s")
}

// prepare builds the logger, configuration and symbol table. Any failure here
// aborts the command before it does work.
func (a *appState) prepare(cmd *cobra.Command) error {
	logger, err := logging.New(logging.Options{Verbose: a.verbose, JSON: a.jsonLogs, Quiet: a.quiet})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	a.logger = logger

	if a.envFile != "" {
		if err := config.LoadDotEnv(a.envFile); err != nil {
			return err
		}
	}

	cfgPath, err := a.resolveConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.applyFlagOverrides(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	table, err := symbols.LoadOrDefault(cfg.SymbolsPath)
	if err != nil {
		return err
	}
	for _, override := range a.overrides {
		word, symbol, ok := strings.Cut(override, "=")
		if !ok {
			return fmt.Errorf("invalid --symbol %q: expected word=symbol", override)
		}
		if table, err = table.WithOverride(word, symbol); err != nil {
			return err
		}
	}
	a.table = table

	a.log().Debug("configuration loaded",
		zap.String("config", cfgPath),
		zap.String("language", cfg.Language),
		zap.Int("symbols", table.Len()),
	)
	return nil
}

func (a *appState) resolveConfigPath() (string, error) {
	if strings.TrimSpace(a.configPath) != "" {
		return a.configPath, nil
	}

	path, err := platform.ResolveDefaultConfigPath()
	if err != nil {
		return "", nil
	}
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	return path, nil
}

func (a *appState) applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("language") {
		cfg.Language = a.language
	}
	if flags.Changed("journal") {
		cfg.JournalPath = a.journalPath
	}
	if flags.Changed("journal-timestamps") {
		cfg.JournalTimestamps = a.timestamps
	}
	if flags.Changed("symbols") {
		cfg.SymbolsPath = a.symbolsPath
	}
	if flags.Changed("api-key") {
		cfg.Recognizer.APIKey = a.apiKey
	}
	if flags.Changed("backend") {
		cfg.Capture.Backend = a.backend
	}
	if flags.Changed("input") {
		cfg.Capture.Input = a.input
	}
	if flags.Changed("input-format") {
		cfg.Capture.InputFormat = a.inputFormat
	}
	if flags.Changed("duration") {
		cfg.Capture.Duration = a.duration
	}
	if flags.Changed("silence-gate") {
		cfg.Capture.SilenceGate = a.silenceGate
	}
	if flags.Changed("silence-threshold-dbfs") {
		cfg.Capture.SilenceThresholdDBFS = a.silenceDBFS
	}
	if flags.Changed("no-feedback") {
		cfg.Feedback.Enabled = !a.noFeedback
	}
}

// newPipeline wires a fresh session to the journal, recognizer and capture
// backend described by the loaded configuration.
func (a *appState) newPipeline(interactive bool) (*pipeline.Pipeline, error) {
	journalPath, err := platform.ResolveJournalPath(a.cfg.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("resolve journal path: %w", err)
	}

	selection, err := language.NewSelection(a.cfg.Language)
	if err != nil {
		return nil, err
	}

	signaler := feedback.NewSignaler(feedback.DefaultTones(), a.cfg.Feedback.Enabled, a.log())
	if a.beepFn != nil {
		signaler.Beep = a.beepFn
	}

	jr := journal.New(journalPath, journal.Options{Timestamps: a.cfg.JournalTimestamps})
	sess := session.New(jr)
	a.log().Debug("session started", zap.String("session", sess.ID()), zap.String("journal", jr.Path()))

	return &pipeline.Pipeline{
		Capturer:             a.capturer(interactive),
		Recognizer:           &lazyRecognizer{build: a.buildRecognizer},
		Table:                a.table,
		Session:              sess,
		Language:             selection,
		Signaler:             signaler,
		SilenceGate:          a.cfg.Capture.SilenceGate,
		SilenceThresholdDBFS: a.cfg.Capture.SilenceThresholdDBFS,
		Logger:               a.log(),
	}, nil
}

func (a *appState) capturer(interactive bool) pipeline.Capturer {
	if a.captureFn != nil {
		return pipeline.CaptureFunc(func(ctx context.Context) (audio.Clip, error) {
			return a.captureFn(ctx, interactive)
		})
	}

	dir, err := platform.ResolveRecordingDir()
	if err != nil {
		dir = ""
	}

	return &record.Microphone{
		Backend:     a.cfg.Capture.Backend,
		Input:       a.cfg.Capture.Input,
		Format:      a.cfg.Capture.InputFormat,
		Duration:    a.cfg.Capture.Duration,
		Interactive: interactive,
		SampleRate:  a.cfg.Capture.SampleRate,
		Channels:    1,
		Dir:         dir,
		Logger:      a.log(),
	}
}

func (a *appState) buildRecognizer(ctx context.Context) (recognize.Recognizer, error) {
	if a.recognizerFn != nil {
		return a.recognizerFn(ctx)
	}

	return recognize.NewGoogle(ctx, recognize.GoogleOptions{
		APIKey:          a.cfg.Recognizer.APIKey,
		CredentialsFile: a.cfg.Recognizer.CredentialsFile,
		Endpoint:        a.cfg.Recognizer.Endpoint,
		Model:           a.cfg.Recognizer.Model,
		Timeout:         a.cfg.Recognizer.RequestTimeout,
		Logger:          a.log(),
	})
}

// lazyRecognizer defers client creation to the first request so missing
// credentials surface as a recoverable recognition failure.
type lazyRecognizer struct {
	build func(ctx context.Context) (recognize.Recognizer, error)

	mu         sync.Mutex
	recognizer recognize.Recognizer
}

func (l *lazyRecognizer) Recognize(ctx context.Context, clip audio.Clip, locale string) (string, error) {
	l.mu.Lock()
	if l.recognizer == nil {
		r, err := l.build(ctx)
		if err != nil {
			l.mu.Unlock()
			if errors.Is(err, recognize.ErrServiceUnavailable) {
				return "", err
			}
			return "", fmt.Errorf("%w: %v", recognize.ErrServiceUnavailable, err)
		}
		l.recognizer = r
	}
	r := l.recognizer
	l.mu.Unlock()

	return r.Recognize(ctx, clip, locale)
}

// progressHook shows a spinner per pipeline stage.
func (a *appState) progressHook() (func(pipeline.Stage), stopFunc) {
	var mu sync.Mutex
	stop := stopFunc(func() {})

	hook := func(stage pipeline.Stage) {
		mu.Lock()
		defer mu.Unlock()
		stop()
		if stage == pipeline.StageListening && a.cfg.Capture.Duration > 0 {
			stop = startDurationProgress(a.progressEnabled(), stage.String(), a.cfg.Capture.Duration)
			return
		}
		stop = startSpinner(a.progressEnabled(), stage.String())
	}
	finish := func() {
		mu.Lock()
		defer mu.Unlock()
		stop()
	}
	return hook, finish
}

// copyText puts text on the clipboard. Failures are reported but never fatal.
func (a *appState) copyText(ctx context.Context, text string) error {
	copyFn := a.copyFn
	if copyFn == nil {
		copyFn = clipboard.Copier{GOOS: runtime.GOOS}.Copy
	}

	err := copyFn(ctx, text)
	if errors.Is(err, clipboard.ErrUnavailable) {
		a.log().Warn("clipboard tool unavailable; install wl-copy, xclip or xsel")
	} else if err != nil {
		a.log().Warn("failed to copy to clipboard", zap.Error(err))
	}
	return err
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func (a *appState) clock() time.Time {
	if a.now == nil {
		return time.Now()
	}
	return a.now()
}

// describeFailure turns a pipeline error into the line shown in the shell.
func describeFailure(err error) string {
	if recognize.Recoverable(err) {
		reason := "Could not understand audio."
		if errors.Is(err, recognize.ErrServiceUnavailable) {
			reason = "Could not request results from the speech service: " + err.Error() + "."
		}
		return reason + ` Type "record" to try again.`
	}
	if errors.Is(err, context.Canceled) {
		return "Listening cancelled."
	}
	return "Error: " + err.Error()
}
