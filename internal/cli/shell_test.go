package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fmueller/speech2symbol/internal/audio"
	"github.com/stretchr/testify/require"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type shellHarness struct {
	t     *testing.T
	stdin *io.PipeWriter
	out   *lockedBuffer
	errCh chan error
}

func startShell(t *testing.T, env *testEnv, args ...string) *shellHarness {
	t.Helper()

	pr, pw := io.Pipe()
	h := &shellHarness{t: t, stdin: pw, out: &lockedBuffer{}, errCh: make(chan error, 1)}

	cmd := newRootCmd(env.app)
	cmd.SetIn(pr)
	cmd.SetOut(h.out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--no-progress"}, args...))

	go func() { h.errCh <- cmd.Execute() }()
	t.Cleanup(func() { _ = pw.Close() })

	h.waitFor("Type \"help\" for commands.")
	return h
}

func (h *shellHarness) send(line string) {
	h.t.Helper()
	_, err := io.WriteString(h.stdin, line+"\n")
	require.NoError(h.t, err)
}

func (h *shellHarness) waitFor(text string) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return strings.Contains(h.out.String(), text)
	}, 3*time.Second, 10*time.Millisecond, "output so far:\n%s", h.out.String())
}

func (h *shellHarness) quit() {
	h.t.Helper()
	h.send("quit")
	select {
	case err := <-h.errCh:
		require.NoError(h.t, err)
	case <-time.After(3 * time.Second):
		h.t.Fatal("shell did not exit")
	}
}

func TestParseShellCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want shellCommand
		ok   bool
	}{
		{line: "", ok: false},
		{line: "   \t ", ok: false},
		{line: "record", want: shellCommand{name: "record", args: []string{}}, ok: true},
		{line: "  EXPORT  txt  notes.txt ", want: shellCommand{name: "export", args: []string{"txt", "notes.txt"}}, ok: true},
		{line: "language Hindi", want: shellCommand{name: "language", args: []string{"Hindi"}}, ok: true},
	}

	for _, tt := range tests {
		got, ok := parseShellCommand(tt.line)
		require.Equal(t, tt.ok, ok, tt.line)
		if ok {
			require.Equal(t, tt.want, got)
		}
	}
}

func TestShellRecordShowAndClear(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.saying("five plus five equals ten", "", "two times three")
	sh := startShell(t, env)

	sh.send("record")
	sh.waitFor("five + five = ten\n")

	sh.send("record")
	sh.waitFor("Could not understand audio.")

	sh.send("record")
	sh.waitFor("two × three\n")

	sh.send("show")
	sh.waitFor("five + five = ten\ntwo × three\n")

	sh.send("clear")
	sh.waitFor("Session cleared.")
	sh.send("show")
	sh.waitFor("(session is empty)")
	sh.quit()

	require.Equal(t, "five + five = ten\ntwo × three\n", env.journal(t))
	require.Equal(t, []float64{1000, 500, 1000, 1000}, env.playedTones())
}

func TestShellLanguageSwitch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.saying("ek plus ek", "one")
	sh := startShell(t, env)

	sh.send("language Hindi")
	sh.waitFor("Language set to Hindi (hi-IN).")
	sh.send("record")
	sh.waitFor("ek + ek\n")

	sh.send("language Klingon")
	sh.waitFor("unsupported language")
	sh.send("record")
	sh.waitFor("one\n")

	sh.send("language")
	sh.waitFor("* Hindi")
	sh.quit()

	require.Equal(t, []string{"hi-IN", "hi-IN"}, env.seenLocales())
	require.Equal(t, []float64{1000, 1000, 500, 1000}, env.playedTones())
}

func TestShellExport(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.saying("a plus b", "c minus d")
	sh := startShell(t, env)

	sh.send("record")
	sh.waitFor("a + b\n")
	sh.send("record")
	sh.waitFor("c - d\n")

	target := filepath.Join(env.dir, "notes")
	sh.send("export DOCX " + target)
	sh.waitFor("Exported 2 line(s) to " + target + ".docx")

	sh.send("export odt " + target)
	sh.waitFor("invalid export format")
	sh.send("export")
	sh.waitFor("Usage: export <txt|pdf|docx> [path]")

	blocker := filepath.Join(env.dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	sh.send("export txt " + filepath.Join(blocker, "notes"))
	sh.waitFor("create export directory")
	sh.quit()

	// two recognitions, one export, then the invalid format and the unwritable path
	require.Equal(t, []float64{1000, 1000, 1000, 500, 500}, env.playedTones())

	data, err := os.ReadFile(target + ".docx")
	require.NoError(t, err)
	require.Equal(t, "a + b\nc - d", string(data))
	_, err = os.Stat(target + ".odt")
	require.True(t, os.IsNotExist(err))
}

func TestShellCancelAbortsPendingListen(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.saying("unused")
	listening := make(chan struct{}, 1)
	env.app.captureFn = func(ctx context.Context, _ bool) (audio.Clip, error) {
		listening <- struct{}{}
		<-ctx.Done()
		return audio.Clip{}, ctx.Err()
	}
	sh := startShell(t, env)

	sh.send("cancel")
	sh.waitFor("Nothing to cancel.")

	sh.send("record")
	<-listening
	sh.send("record")
	sh.waitFor("Already listening")

	sh.send("cancel")
	sh.waitFor("Listening cancelled.")
	sh.quit()

	require.Empty(t, env.seenLocales())
	require.Empty(t, env.playedTones())
	require.Empty(t, env.journal(t))
}

func TestShellHelpAndUnknownCommand(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	sh := startShell(t, env)

	sh.send("help")
	sh.waitFor("export <format> [path]")
	sh.send("dance")
	sh.waitFor(`Unknown command "dance"`)
	sh.send("symbols")
	sh.waitFor("equals")
	sh.quit()
}

func TestShellEOFWaitsForRunningCapture(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.saying("one plus one")

	stdout, _, err := env.run(t, "record\n")
	require.NoError(t, err)
	require.Contains(t, stdout, "one + one\n")
	require.Equal(t, "one + one\n", env.journal(t))
}

func TestShellInterruptQuitsWhenIdle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	require.NoError(t, env.app.prepare(newRootCmd(env.app)))

	interrupts := make(chan os.Signal, 1)
	interrupts <- os.Interrupt

	pr, pw := io.Pipe()
	defer pw.Close()
	out := &lockedBuffer{}
	err := env.app.runShell(context.Background(), pr, out, interrupts)
	require.NoError(t, err)
	require.Contains(t, out.String(), "Bye.")
}

func TestShellCopy(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.saying("one plus one", "two")
	sh := startShell(t, env)

	sh.send("copy")
	sh.waitFor("(session is empty)")

	sh.send("record")
	sh.waitFor("one + one\n")
	sh.send("record")
	sh.waitFor("two\n")
	sh.send("copy")
	sh.waitFor("Copied to clipboard.")
	sh.quit()

	require.Equal(t, []string{"one + one\ntwo"}, env.clipboard())
}
