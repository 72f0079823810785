package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/fmueller/speech2symbol/internal/audio"
	"github.com/fmueller/speech2symbol/internal/feedback"
	"github.com/fmueller/speech2symbol/internal/journal"
	"github.com/fmueller/speech2symbol/internal/language"
	"github.com/fmueller/speech2symbol/internal/recognize"
	"github.com/fmueller/speech2symbol/internal/session"
	"github.com/fmueller/speech2symbol/internal/symbols"
	"go.uber.org/zap"
)

// DefaultSilenceThresholdDBFS is the RMS level below which a clip is treated as silence.
const DefaultSilenceThresholdDBFS = -65.0

// Capturer produces one audio clip per call.
type Capturer interface {
	Capture(ctx context.Context) (audio.Clip, error)
}

type CaptureFunc func(ctx context.Context) (audio.Clip, error)

func (f CaptureFunc) Capture(ctx context.Context) (audio.Clip, error) {
	return f(ctx)
}

type Stage int

const (
	StageListening Stage = iota
	StageRecognizing
)

func (s Stage) String() string {
	if s == StageListening {
		return "Listening"
	}
	return "Recognizing"
}

type Result struct {
	// Raw is the recognizer output before symbol substitution.
	Raw  string
	Text string
	// PersistErr is set when the text was recorded in the session but the
	// journal write failed.
	PersistErr error
}

type Pipeline struct {
	Capturer   Capturer
	Recognizer recognize.Recognizer
	Table      *symbols.Table
	Session    *session.Session
	Language   *language.Selection
	Signaler   *feedback.Signaler

	SilenceGate          bool
	SilenceThresholdDBFS float64

	// OnStage is called as the run moves between stages.
	OnStage func(Stage)
	Logger  *zap.Logger
}

// Run captures one clip and processes it.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	if p.Capturer == nil {
		return Result{}, errors.New("no audio capturer configured")
	}

	p.stage(StageListening)
	clip, err := p.Capturer.Capture(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		p.Signaler.Signal(feedback.Failure)
		return Result{}, fmt.Errorf("capture audio: %w", err)
	}

	return p.Process(ctx, clip)
}

// Process recognizes clip, rewrites the words to symbols and records the
// result in the session. A failed recognition leaves the session unchanged.
func (p *Pipeline) Process(ctx context.Context, clip audio.Clip) (Result, error) {
	logger := p.logger()

	if p.SilenceGate {
		threshold := p.SilenceThresholdDBFS
		if threshold == 0 {
			threshold = DefaultSilenceThresholdDBFS
		}
		silent, metrics, err := audio.IsSilent(clip, threshold)
		if err != nil {
			p.Signaler.Signal(feedback.Failure)
			return Result{}, fmt.Errorf("analyze audio level: %w", err)
		}
		if silent {
			logger.Debug("clip below silence threshold",
				zap.Float64("rms_dbfs", metrics.RMSdBFS),
				zap.Float64("peak_dbfs", metrics.PeakdBFS),
				zap.Float64("threshold_dbfs", threshold),
			)
			p.Signaler.Signal(feedback.Failure)
			return Result{}, fmt.Errorf("%w: no speech detected", recognize.ErrUnintelligible)
		}
	}

	locale := p.Language.Locale()
	p.stage(StageRecognizing)
	raw, err := p.Recognizer.Recognize(ctx, clip, locale)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		logger.Debug("recognition failed", zap.String("locale", locale), zap.Error(err))
		p.Signaler.Signal(feedback.Failure)
		return Result{}, err
	}

	result := Result{Raw: raw, Text: p.Table.Transform(raw)}
	if err := p.Session.Record(result.Text); err != nil {
		if !errors.Is(err, journal.ErrWriteFailed) {
			p.Signaler.Signal(feedback.Failure)
			return Result{}, err
		}
		logger.Warn("utterance recorded but not saved", zap.String("session", p.Session.ID()), zap.Error(err))
		result.PersistErr = err
		p.Signaler.Signal(feedback.Warning)
		return result, nil
	}

	logger.Debug("utterance recorded",
		zap.String("session", p.Session.ID()),
		zap.String("locale", locale),
		zap.String("raw", raw),
		zap.String("text", result.Text),
	)
	p.Signaler.Signal(feedback.Success)
	return result, nil
}

func (p *Pipeline) stage(s Stage) {
	if p.OnStage != nil {
		p.OnStage(s)
	}
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
