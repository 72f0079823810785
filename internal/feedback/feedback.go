package feedback

import (
	"time"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

type Outcome int

const (
	Success Outcome = iota
	Failure
	// Warning means the utterance was recorded but could not be persisted.
	Warning
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

type Tone struct {
	FrequencyHz float64
	Duration    time.Duration
}

type Tones struct {
	Success Tone
	Failure Tone
	Warning Tone
}

func DefaultTones() Tones {
	return Tones{
		Success: Tone{FrequencyHz: 1000, Duration: 100 * time.Millisecond},
		Failure: Tone{FrequencyHz: 500, Duration: 300 * time.Millisecond},
		Warning: Tone{FrequencyHz: 750, Duration: 200 * time.Millisecond},
	}
}

func (t Tones) For(o Outcome) Tone {
	switch o {
	case Success:
		return t.Success
	case Warning:
		return t.Warning
	default:
		return t.Failure
	}
}

// BeepFunc plays a tone; durationMS is in milliseconds.
type BeepFunc func(freq float64, durationMS int) error

// Signaler plays a short tone per outcome. Playback errors are logged and
// never returned, so a machine without an audio device keeps working.
type Signaler struct {
	Tones   Tones
	Enabled bool
	Beep    BeepFunc
	Logger  *zap.Logger
}

func NewSignaler(tones Tones, enabled bool, logger *zap.Logger) *Signaler {
	return &Signaler{Tones: tones, Enabled: enabled, Beep: beeep.Beep, Logger: logger}
}

func (s *Signaler) Signal(o Outcome) {
	if s == nil || !s.Enabled {
		return
	}

	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	beep := s.Beep
	if beep == nil {
		beep = beeep.Beep
	}

	tone := s.Tones.For(o)
	if err := beep(tone.FrequencyHz, int(tone.Duration/time.Millisecond)); err != nil {
		logger.Debug("feedback tone unavailable", zap.String("outcome", o.String()), zap.Error(err))
	}
}
