package record

import (
	"context"
	"math"
	"strconv"
)

type alsaBackend struct{}

func newALSARecorderBackend() Backend {
	return &alsaBackend{}
}

func (b *alsaBackend) Name() string {
	return "arecord"
}

func (b *alsaBackend) Available() bool {
	return commandAvailable("arecord")
}

func (b *alsaBackend) Record(ctx context.Context, cfg Config) error {
	if err := prepareOutput(cfg); err != nil {
		return err
	}

	var args []string
	if cfg.Duration > 0 {
		// arecord only takes whole seconds.
		args = append(args, "-d", strconv.Itoa(int(math.Ceil(cfg.Duration.Seconds()))))
	}
	args = append(args,
		"-f", "S16_LE",
		"-r", strconv.Itoa(defaultSampleRate(cfg.SampleRate)),
		"-c", strconv.Itoa(defaultChannels(cfg.Channels)),
	)
	if cfg.Input != "" {
		args = append(args, "-D", cfg.Input)
	}
	args = append(args, cfg.OutputPath)

	return runCapture(ctx, cfg, "arecord", args...)
}

func (b *alsaBackend) ListDevices(ctx context.Context) (string, error) {
	return commandOutput(ctx, "arecord", "-L")
}
