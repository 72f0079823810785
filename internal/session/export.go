package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidFormat = errors.New("invalid export format")

// Formats lists the accepted export formats. Every format is written as the
// verbatim session text.
var Formats = []string{"txt", "pdf", "docx"}

func ParseFormat(input string) (string, error) {
	format := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(input)), ".")
	for _, candidate := range Formats {
		if format == candidate {
			return format, nil
		}
	}
	return "", fmt.Errorf("%w %q (expected one of %s)", ErrInvalidFormat, input, strings.Join(Formats, ", "))
}

// Export writes the session snapshot to path and returns the path written.
// The format's extension is appended when path has none.
func (s *Session) Export(path, format string) (string, error) {
	format, err := ParseFormat(format)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(path) == "" {
		return "", errors.New("export path is required")
	}

	if filepath.Ext(path) == "" {
		path += "." + format
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(s.Snapshot()), 0o644); err != nil {
		return "", fmt.Errorf("write export %s: %w", path, err)
	}
	return path, nil
}
