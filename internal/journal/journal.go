package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrWriteFailed wraps every failure to append to the journal file.
var ErrWriteFailed = errors.New("journal write failed")

// Journal appends one line per utterance to a text file. The file is never
// truncated or rewritten.
type Journal struct {
	path       string
	timestamps bool
	now        func() time.Time
	mu         sync.Mutex
}

type Options struct {
	// Timestamps prefixes each line with an RFC 3339 time and a tab.
	Timestamps bool
	Now        func() time.Time
}

func New(path string, opts Options) *Journal {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Journal{path: path, timestamps: opts.Timestamps, now: now}
}

func (j *Journal) Path() string {
	return j.path
}

// Persist appends line and a newline, creating the file and its directory if needed.
func (j *Journal) Persist(line string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("%w: create directory for %s: %v", ErrWriteFailed, j.path, err)
	}

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrWriteFailed, j.path, err)
	}

	entry := flatten(line)
	if j.timestamps {
		entry = j.now().Format(time.RFC3339) + "\t" + entry
	}

	if _, err := f.WriteString(entry + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: write %s: %v", ErrWriteFailed, j.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrWriteFailed, j.path, err)
	}
	return nil
}

func flatten(line string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(line)
}
