package record

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/fmueller/speech2symbol/internal/audio"
	"go.uber.org/zap"
)

// Microphone captures one clip per call through the recording backends.
type Microphone struct {
	// Backend is the preferred backend name or "auto".
	Backend     string
	Input       string
	Format      string
	Duration    time.Duration
	Interactive bool
	SampleRate  int
	Channels    int
	// Dir holds the temporary WAV file; it is removed after reading.
	Dir    string
	Logger *zap.Logger

	// Backends overrides the platform defaults.
	Backends []Backend
}

func (m *Microphone) Capture(ctx context.Context) (audio.Clip, error) {
	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	backends := m.Backends
	if backends == nil {
		backends = DefaultBackends(runtime.GOOS)
		if len(backends) == 0 {
			return audio.Clip{}, fmt.Errorf("unsupported OS: %s", runtime.GOOS)
		}
	}

	dir := m.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return audio.Clip{}, fmt.Errorf("create recording directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "capture-*.wav")
	if err != nil {
		return audio.Clip{}, fmt.Errorf("create recording file: %w", err)
	}
	path := tmp.Name()
	_ = tmp.Close()
	defer func() {
		if err := removePartialRecording(path); err != nil {
			logger.Warn("failed to remove recording", zap.String("path", path), zap.Error(err))
		}
	}()

	cfg := Config{
		OutputPath:  path,
		Duration:    m.Duration,
		Interactive: m.Interactive,
		SampleRate:  defaultSampleRate(m.SampleRate),
		Channels:    defaultChannels(m.Channels),
		Input:       m.Input,
		Format:      m.Format,
		Logger:      logger,
	}

	started := time.Now()
	backendName, err := recordWithFallback(ctx, backends, m.Backend, cfg)
	if err != nil {
		return audio.Clip{}, err
	}

	clip, err := audio.ReadWAV(path)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("read recording from %s: %w", backendName, err)
	}

	logger.Debug("capture finished",
		zap.String("backend", backendName),
		zap.Duration("elapsed", time.Since(started)),
		zap.Float64("audio_seconds", clip.Duration()),
	)
	return clip, nil
}
