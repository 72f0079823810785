package record

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

type ffmpegMacBackend struct{}

func newFFMPEGMacOSBackend() Backend {
	return &ffmpegMacBackend{}
}

func (b *ffmpegMacBackend) Name() string {
	return "ffmpeg"
}

func (b *ffmpegMacBackend) Available() bool {
	return commandAvailable("ffmpeg")
}

func (b *ffmpegMacBackend) Record(ctx context.Context, cfg Config) error {
	if err := prepareOutput(cfg); err != nil {
		return err
	}

	input := cfg.Input
	if input == "" {
		input = ":0"
	}

	return runCapture(ctx, cfg, "ffmpeg", ffmpegArgs(cfg, ffmpegSource{format: "avfoundation", input: input})...)
}

// ListDevices reads the device list from stderr; ffmpeg exits non-zero here.
func (b *ffmpegMacBackend) ListDevices(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-f", "avfoundation", "-list_devices", "true", "-i", "")
	out, _ := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return "", fmt.Errorf("ffmpeg returned no device output")
	}
	return trimmed, nil
}

func ffmpegArgs(cfg Config, source ffmpegSource) []string {
	args := []string{"-nostdin", "-hide_banner", "-loglevel", "error", "-y", "-f", source.format, "-i", source.input}
	if cfg.Duration > 0 {
		args = append(args, "-t", strconv.FormatFloat(cfg.Duration.Seconds(), 'f', -1, 64))
	}
	return append(args,
		"-ac", strconv.Itoa(defaultChannels(cfg.Channels)),
		"-ar", strconv.Itoa(defaultSampleRate(cfg.SampleRate)),
		"-c:a", "pcm_s16le",
		cfg.OutputPath,
	)
}
