package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrInteractiveRequiresTTY = errors.New("interactive recording requires terminal input")
var ErrNoBackendAvailable = errors.New("no recording backend available")
var ErrDurationRequired = errors.New("timed recording requires a positive duration")

type Config struct {
	OutputPath  string
	Duration    time.Duration
	Interactive bool
	SampleRate  int
	Channels    int
	Input       string
	Format      string
	Logger      *zap.Logger
}

// Backend records microphone audio into a WAV file with an external tool.
type Backend interface {
	Name() string
	Available() bool
	Record(ctx context.Context, cfg Config) error
	ListDevices(ctx context.Context) (string, error)
}

func DefaultBackends(goos string) []Backend {
	switch goos {
	case "linux":
		return []Backend{newPipeWireBackend(), newALSARecorderBackend(), newFFMPEGLinuxBackend()}
	case "darwin":
		return []Backend{newFFMPEGMacOSBackend()}
	default:
		return nil
	}
}

// SelectBackend returns preferred when it is set and available, or the first
// available backend for "auto".
func SelectBackend(backends []Backend, preferred string) (Backend, error) {
	ordered, err := orderBackends(backends, preferred)
	if err != nil {
		return nil, err
	}

	if isAuto(preferred) {
		for _, backend := range ordered {
			if backend.Available() {
				return backend, nil
			}
		}
		return nil, ErrNoBackendAvailable
	}

	if !ordered[0].Available() {
		return nil, fmt.Errorf("requested backend %q is not available", preferred)
	}
	return ordered[0], nil
}

// recordWithFallback tries preferred first and then every other backend,
// returning the name of the one that produced the recording.
func recordWithFallback(ctx context.Context, backends []Backend, preferred string, cfg Config) (string, error) {
	ordered, err := orderBackends(backends, preferred)
	if err != nil {
		return "", err
	}

	var errs []error
	for _, backend := range ordered {
		if !backend.Available() {
			errs = append(errs, fmt.Errorf("%s: backend is not available", backend.Name()))
			continue
		}

		err := backend.Record(ctx, cfg)
		if err == nil {
			return backend.Name(), nil
		}

		if cleanupErr := removePartialRecording(cfg.OutputPath); cleanupErr != nil {
			errs = append(errs, fmt.Errorf("%s: cleanup partial recording %q: %w", backend.Name(), cfg.OutputPath, cleanupErr))
		}

		err = fmt.Errorf("%s: %w", backend.Name(), err)
		if endsFallback(err) {
			return "", err
		}
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return "", ErrNoBackendAvailable
	}
	return "", fmt.Errorf("record audio with available backends: %w", errors.Join(errs...))
}

// endsFallback reports errors that another backend would hit as well.
func endsFallback(err error) bool {
	for _, target := range []error{context.Canceled, context.DeadlineExceeded, ErrInteractiveRequiresTTY, ErrDurationRequired} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func orderBackends(backends []Backend, preferred string) ([]Backend, error) {
	if len(backends) == 0 {
		return nil, errors.New("no backends configured")
	}
	if isAuto(preferred) {
		return backends, nil
	}

	preferredIndex := -1
	for i, backend := range backends {
		if backend.Name() == preferred {
			preferredIndex = i
			break
		}
	}
	if preferredIndex == -1 {
		return nil, fmt.Errorf("unknown backend %q", preferred)
	}

	ordered := make([]Backend, 0, len(backends))
	ordered = append(ordered, backends[preferredIndex])
	for i, backend := range backends {
		if i != preferredIndex {
			ordered = append(ordered, backend)
		}
	}
	return ordered, nil
}

func isAuto(preferred string) bool {
	preferred = strings.TrimSpace(preferred)
	return preferred == "" || preferred == "auto"
}

func removePartialRecording(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}

	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func defaultSampleRate(value int) int {
	if value <= 0 {
		return 16000
	}
	return value
}

func defaultChannels(value int) int {
	if value <= 0 {
		return 1
	}
	return value
}

func prepareOutput(cfg Config) error {
	if cfg.OutputPath == "" {
		return errors.New("output path is required")
	}
	return os.MkdirAll(filepath.Dir(filepath.Clean(cfg.OutputPath)), 0o755)
}
