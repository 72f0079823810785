package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/fmueller/speech2symbol/internal/feedback"
	"github.com/fmueller/speech2symbol/internal/language"
	"github.com/fmueller/speech2symbol/internal/pipeline"
	"github.com/fmueller/speech2symbol/internal/session"
	"go.uber.org/zap"
)

const shellHelp = `Commands:
  record                   listen once and add the recognized text to the session
  export <format> [path]   write the session to a file (txt|pdf|docx)
  language [name]          show or change the recognition language
  clear                    empty the session; the journal file is kept
  show                     print the session
  copy                     copy the session to the clipboard
  cancel                   stop listening
  symbols                  list spoken words and their symbols
  help                     show this help
  quit                     leave`

type shellCommand struct {
	name string
	args []string
}

func parseShellCommand(line string) (shellCommand, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return shellCommand{}, false
	}
	return shellCommand{name: strings.ToLower(fields[0]), args: fields[1:]}, true
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

type shell struct {
	app      *appState
	pipeline *pipeline.Pipeline
	runner   *pipeline.Runner
	out      io.Writer

	job          *pipeline.Job
	stopProgress stopFunc
}

// withInterrupt cancels ctx on Ctrl-C; one-shot commands then return
// context.Canceled instead of the process being killed.
func withInterrupt(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt)
}

func notifyInterrupts() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return ch, func() { signal.Stop(ch) }
}

// runShell reads commands from in until quit or EOF. Captures run on a
// pipeline job so the prompt stays responsive; an interrupt cancels the
// running capture and quits when nothing is running.
func (a *appState) runShell(ctx context.Context, in io.Reader, out io.Writer, interrupts <-chan os.Signal) error {
	p, err := a.newPipeline(false)
	if err != nil {
		return err
	}

	hook, finish := a.progressHook()
	p.OnStage = hook

	sh := &shell{
		app:          a,
		pipeline:     p,
		runner:       pipeline.NewRunner(p),
		out:          &syncWriter{w: out},
		stopProgress: finish,
	}

	done := make(chan struct{})
	defer close(done)

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	current := p.Language.Current()
	fmt.Fprintf(sh.out, "speech2symbol %s (%s). Type \"help\" for commands.\n", current.Name, current.Locale)

	for {
		var jobDone <-chan struct{}
		if sh.job != nil {
			jobDone = sh.job.Done()
		}

		select {
		case <-ctx.Done():
			sh.stop()
			return nil
		case <-interrupts:
			if sh.runner.Cancel() {
				continue
			}
			fmt.Fprintln(sh.out, "Bye.")
			return nil
		case <-jobDone:
			sh.finishJob()
		case line, ok := <-lines:
			if !ok {
				if sh.job != nil {
					<-sh.job.Done()
					sh.finishJob()
				}
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}

			cmd, ok := parseShellCommand(line)
			if !ok {
				continue
			}
			if quit := sh.execute(ctx, cmd); quit {
				sh.stop()
				fmt.Fprintln(sh.out, "Bye.")
				return nil
			}
		}
	}
}

func (s *shell) execute(ctx context.Context, cmd shellCommand) bool {
	sess := s.pipeline.Session

	switch cmd.name {
	case "record", "r":
		job, err := s.runner.Start(ctx)
		if errors.Is(err, pipeline.ErrBusy) {
			fmt.Fprintln(s.out, "Already listening; type \"cancel\" to stop.")
			return false
		}
		if err != nil {
			fmt.Fprintln(s.out, describeFailure(err))
			return false
		}
		s.job = job
		fmt.Fprintf(s.out, "Listening (%s)...\n", s.pipeline.Language.Current().Name)
	case "cancel":
		if s.runner.Cancel() {
			fmt.Fprintln(s.out, "Cancelling...")
		} else {
			fmt.Fprintln(s.out, "Nothing to cancel.")
		}
	case "export":
		s.export(sess, cmd.args)
	case "language", "lang":
		s.language(cmd.args)
	case "clear":
		sess.Clear()
		s.pipeline.Signaler.Signal(feedback.Success)
		fmt.Fprintln(s.out, "Session cleared.")
	case "show":
		if sess.Len() == 0 {
			fmt.Fprintln(s.out, "(session is empty)")
			return false
		}
		fmt.Fprintln(s.out, sess.Snapshot())
	case "copy":
		if sess.Len() == 0 {
			fmt.Fprintln(s.out, "(session is empty)")
			return false
		}
		if err := s.app.copyText(ctx, sess.Snapshot()); err != nil {
			fmt.Fprintln(s.out, "Error:", err)
			return false
		}
		fmt.Fprintln(s.out, "Copied to clipboard.")
	case "symbols":
		printSymbols(s.out, s.app.table)
	case "help", "?":
		fmt.Fprintln(s.out, shellHelp)
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(s.out, "Unknown command %q. Type \"help\" for commands.\n", cmd.name)
	}
	return false
}

func (s *shell) export(sess *session.Session, args []string) {
	if len(args) == 0 {
		fmt.Fprintf(s.out, "Usage: export <%s> [path]\n", strings.Join(session.Formats, "|"))
		return
	}

	format, err := session.ParseFormat(args[0])
	if err != nil {
		s.pipeline.Signaler.Signal(feedback.Failure)
		fmt.Fprintln(s.out, "Error:", err)
		return
	}

	path := "speech2symbol-" + s.app.clock().Format("20060102-150405")
	if len(args) > 1 {
		path = strings.Join(args[1:], " ")
	}

	written, err := sess.Export(path, format)
	if err != nil {
		s.app.log().Warn("export failed", zap.String("path", path), zap.Error(err))
		s.pipeline.Signaler.Signal(feedback.Failure)
		fmt.Fprintln(s.out, "Error:", err)
		return
	}
	s.pipeline.Signaler.Signal(feedback.Success)
	fmt.Fprintf(s.out, "Exported %d line(s) to %s\n", sess.Len(), written)
}

func (s *shell) language(args []string) {
	selection := s.pipeline.Language
	if len(args) == 0 {
		printLanguages(s.out, selection.Current())
		return
	}

	lang, err := selection.Set(strings.Join(args, " "))
	if err != nil {
		s.pipeline.Signaler.Signal(feedback.Failure)
		fmt.Fprintln(s.out, "Error:", err)
		return
	}
	s.pipeline.Signaler.Signal(feedback.Success)
	fmt.Fprintf(s.out, "Language set to %s (%s).\n", lang.Name, lang.Locale)
}

func (s *shell) finishJob() {
	job := s.job
	s.job = nil
	s.stopProgress()

	result, err := job.Wait()
	if err != nil {
		fmt.Fprintln(s.out, describeFailure(err))
		return
	}

	fmt.Fprintln(s.out, result.Text)
	if result.PersistErr != nil {
		fmt.Fprintln(s.out, "Warning: text kept in the session but not saved:", result.PersistErr)
	}
}

func (s *shell) stop() {
	if s.job == nil {
		return
	}
	s.job.Cancel()
	<-s.job.Done()
	s.job = nil
	s.stopProgress()
}

func printLanguages(out io.Writer, current language.Language) {
	for _, lang := range language.Supported() {
		marker := " "
		if lang == current {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %-8s %s\n", marker, lang.Name, lang.Locale)
	}
}
