package record

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type ffmpegLinuxBackend struct{}

func newFFMPEGLinuxBackend() Backend {
	return &ffmpegLinuxBackend{}
}

func (b *ffmpegLinuxBackend) Name() string {
	return "ffmpeg"
}

func (b *ffmpegLinuxBackend) Available() bool {
	return commandAvailable("ffmpeg")
}

type ffmpegSource struct {
	format string
	input  string
}

// Record tries PulseAudio first and then ALSA unless cfg.Format pins one.
func (b *ffmpegLinuxBackend) Record(ctx context.Context, cfg Config) error {
	if err := prepareOutput(cfg); err != nil {
		return err
	}

	sources := []ffmpegSource{
		{format: "pulse", input: "default"},
		{format: "alsa", input: "default"},
	}
	if cfg.Format != "" {
		input := cfg.Input
		if input == "" {
			input = "default"
		}
		sources = []ffmpegSource{{format: cfg.Format, input: input}}
	}

	var errs []error
	for _, source := range sources {
		err := runCapture(ctx, cfg, "ffmpeg", ffmpegArgs(cfg, source)...)
		if err == nil {
			return nil
		}
		if endsFallback(err) {
			return err
		}
		errs = append(errs, fmt.Errorf("ffmpeg (%s/%s): %w", source.format, source.input, err))
	}

	return errors.Join(errs...)
}

func (b *ffmpegLinuxBackend) ListDevices(ctx context.Context) (string, error) {
	var sections []string

	if commandAvailable("pactl") {
		if out, err := commandOutput(ctx, "pactl", "list", "short", "sources"); err == nil {
			sections = append(sections, "PulseAudio/PipeWire sources:\n"+out)
		} else {
			sections = append(sections, "PulseAudio/PipeWire sources: "+err.Error())
		}
	}

	if commandAvailable("arecord") {
		if out, err := commandOutput(ctx, "arecord", "-L"); err == nil {
			sections = append(sections, "ALSA devices:\n"+out)
		} else {
			sections = append(sections, "ALSA devices: "+err.Error())
		}
	}

	if len(sections) == 0 {
		return "", errors.New("no device listing command available")
	}

	return strings.Join(sections, "\n\n"), nil
}
