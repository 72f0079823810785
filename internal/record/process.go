package record

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"
)

// stopGracePeriod is how long a recorder gets to exit after SIGINT before it
// is killed.
var stopGracePeriod = time.Second

// runCapture starts a recorder process in the mode cfg asks for.
func runCapture(ctx context.Context, cfg Config, name string, args ...string) error {
	if !cfg.Interactive && cfg.Duration <= 0 {
		return ErrDurationRequired
	}

	var cmd *exec.Cmd
	if !cfg.Interactive {
		// Timed runs are stopped with SIGINT so the recorder can finish the WAV header.
		cmd = exec.Command(name, args...)
	} else {
		cmd = exec.CommandContext(ctx, name, args...)
	}
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if cfg.Interactive {
		return runInteractiveCommand(ctx, cmd, cfg.Logger)
	}
	return runTimedCommand(ctx, cmd, cfg.Duration, cfg.Logger)
}

func WaitForEnter(in io.Reader, out io.Writer, message string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ErrInteractiveRequiresTTY
	}

	if message != "" {
		if _, err := fmt.Fprintln(out, message); err != nil {
			return err
		}
	}

	_, err := bufio.NewReader(in).ReadString('\n')
	return err
}

func runInteractiveCommand(ctx context.Context, cmd *exec.Cmd, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	if err := WaitForEnter(os.Stdin, os.Stderr, "Listening... press Enter to stop."); err != nil {
		_ = cmd.Process.Signal(os.Interrupt)
		_ = cmd.Wait()
		return err
	}

	stopSignalSent := cmd.Process.Signal(os.Interrupt) == nil
	err := cmd.Wait()
	if err == nil {
		return nil
	}
	if stopSignalSent || stoppedBySignal(err, logger) {
		logger.Debug("recorder exited after stop signal", zap.Error(err))
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return err
	}
}

func runTimedCommand(ctx context.Context, cmd *exec.Cmd, duration time.Duration, logger *zap.Logger) error {
	if duration <= 0 {
		return cmd.Run()
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		stopSignalSent := cmd.Process.Signal(os.Interrupt) == nil
		err := stopProcess(cmd, done)
		if err == nil {
			return nil
		}
		if stopSignalSent || stoppedBySignal(err, logger) {
			logger.Debug("recorder exited after timed stop", zap.Error(err))
			return nil
		}
		return err
	case <-ctx.Done():
		_ = cmd.Process.Signal(os.Interrupt)
		_ = stopProcess(cmd, done)
		return ctx.Err()
	}
}

// stopProcess waits for an interrupted process and kills it once the grace
// period runs out.
func stopProcess(cmd *exec.Cmd, done <-chan error) error {
	grace := time.NewTimer(stopGracePeriod)
	defer grace.Stop()

	select {
	case err := <-done:
		return err
	case <-grace.C:
		_ = cmd.Process.Kill()
		return <-done
	}
}

func stoppedBySignal(err error, logger *zap.Logger) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok || !status.Signaled() {
		return false
	}
	logger.Debug("recorder stopped by signal", zap.String("signal", status.Signal().String()))
	return true
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func commandOutput(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed != "" {
			return "", fmt.Errorf("%s %s failed: %w (%s)", name, strings.Join(args, " "), err, trimmed)
		}
		return "", fmt.Errorf("%s %s failed: %w", name, strings.Join(args, " "), err)
	}
	return trimmed, nil
}
