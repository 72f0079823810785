package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

var ErrUnavailable = errors.New("no clipboard command available")

const defaultTimeout = 4 * time.Second

// tool is a clipboard writer that reads the text on stdin. Detached tools
// keep running to serve the selection, so they are started and released.
type tool struct {
	name     string
	args     []string
	detached bool
}

func toolsFor(goos string) []tool {
	if goos == "darwin" {
		return []tool{{name: "pbcopy"}}
	}
	return []tool{
		{name: "wl-copy"},
		{name: "xclip", args: []string{"-selection", "clipboard", "-in", "-silent"}, detached: true},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
	}
}

// Copier writes text to the system clipboard through the first available tool.
type Copier struct {
	GOOS    string
	Timeout time.Duration
}

func (c Copier) Copy(ctx context.Context, text string) error {
	t, err := c.detect()
	if err != nil {
		return err
	}
	if t.detached {
		return copyDetached(t, text)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	copyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(copyCtx, t.name, t.args...)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	if err := cmd.Run(); err != nil {
		if errors.Is(copyCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s timed out: %w", t.name, copyCtx.Err())
		}
		return fmt.Errorf("%s: %w", t.name, err)
	}
	return nil
}

// Tool names the command Copy would use.
func (c Copier) Tool() (string, error) {
	t, err := c.detect()
	return t.name, err
}

func (c Copier) detect() (tool, error) {
	for _, t := range toolsFor(c.GOOS) {
		if _, err := exec.LookPath(t.name); err == nil {
			return t, nil
		}
	}
	return tool{}, ErrUnavailable
}

func copyDetached(t tool, text string) error {
	cmd := exec.Command(t.name, t.args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open %s stdin: %w", t.name, err)
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start %s: %w", t.name, err)
	}

	if _, err := io.WriteString(stdin, text); err != nil {
		_ = stdin.Close()
		_ = cmd.Process.Kill()
		return fmt.Errorf("write to %s: %w", t.name, err)
	}
	if err := stdin.Close(); err != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("close %s stdin: %w", t.name, err)
	}

	return cmd.Process.Release()
}
