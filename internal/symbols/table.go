package symbols

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// ErrLoad marks a symbol table that could not be loaded. It is a configuration
// error: callers must not continue with an empty table.
var ErrLoad = errors.New("load symbol table")

//go:embed default.yaml
var defaultTable []byte

type Entry struct {
	Word   string
	Symbol string
}

// Table is an immutable word to symbol mapping. Lookups are case-insensitive.
type Table struct {
	entries map[string]string
}

// Default returns the table compiled into the binary.
func Default() (*Table, error) {
	return Parse(defaultTable, "embedded default")
}

// Load reads a YAML mapping of word to symbol from path.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrLoad, path, err)
	}
	return Parse(data, path)
}

// LoadOrDefault loads path when set and falls back to the embedded table otherwise.
func LoadOrDefault(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	return Load(path)
}

func Parse(data []byte, source string) (*Table, error) {
	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrLoad, source, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s contains no symbols", ErrLoad, source)
	}

	entries := make(map[string]string, len(raw))
	for word, symbol := range raw {
		key, err := normalizeWord(word)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoad, source, err)
		}
		if symbol == "" {
			return nil, fmt.Errorf("%w: %s: word %q has an empty symbol", ErrLoad, source, word)
		}
		if _, dup := entries[key]; dup {
			return nil, fmt.Errorf("%w: %s: word %q is defined more than once", ErrLoad, source, key)
		}
		entries[key] = symbol
	}

	return &Table{entries: entries}, nil
}

func (t *Table) Lookup(word string) (string, bool) {
	symbol, ok := t.entries[strings.ToLower(word)]
	return symbol, ok
}

// Resolve returns the symbol for word, or word unchanged when it has none.
func (t *Table) Resolve(word string) string {
	if symbol, ok := t.Lookup(word); ok {
		return symbol
	}
	return word
}

func (t *Table) Len() int {
	return len(t.entries)
}

// WithOverride returns a copy of t where word maps to symbol. t is not modified.
func (t *Table) WithOverride(word, symbol string) (*Table, error) {
	key, err := normalizeWord(word)
	if err != nil {
		return nil, err
	}
	if symbol == "" {
		return nil, fmt.Errorf("word %q has an empty symbol", word)
	}

	entries := make(map[string]string, len(t.entries)+1)
	for k, v := range t.entries {
		entries[k] = v
	}
	entries[key] = symbol
	return &Table{entries: entries}, nil
}

// Entries returns the table sorted by word.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for word, symbol := range t.entries {
		out = append(out, Entry{Word: word, Symbol: symbol})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Word < out[j].Word })
	return out
}

func normalizeWord(word string) (string, error) {
	if word == "" {
		return "", errors.New("empty word")
	}
	if strings.IndexFunc(word, unicode.IsSpace) >= 0 {
		return "", fmt.Errorf("word %q contains whitespace and can never match a single token", word)
	}
	return strings.ToLower(word), nil
}
