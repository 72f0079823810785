package language

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var ErrInvalidLanguage = errors.New("unsupported language")

type Language struct {
	Name   string
	Locale string
}

var supported = []Language{
	{Name: "English", Locale: "en-IN"},
	{Name: "Hindi", Locale: "hi-IN"},
	{Name: "Spanish", Locale: "es-ES"},
	{Name: "French", Locale: "fr-FR"},
	{Name: "German", Locale: "de-DE"},
	{Name: "Kannada", Locale: "kn-IN"},
}

const DefaultName = "English"

func Supported() []Language {
	out := make([]Language, len(supported))
	copy(out, supported)
	return out
}

func Names() []string {
	names := make([]string, len(supported))
	for i, lang := range supported {
		names[i] = lang.Name
	}
	return names
}

// Parse matches input against language names and locale codes, ignoring case.
func Parse(input string) (Language, error) {
	value := strings.TrimSpace(input)
	for _, lang := range supported {
		if strings.EqualFold(value, lang.Name) || strings.EqualFold(value, lang.Locale) {
			return lang, nil
		}
	}
	return Language{}, fmt.Errorf("%w %q (supported: %s)", ErrInvalidLanguage, input, strings.Join(Names(), ", "))
}

// Selection holds the current recognition language. Set only changes it for
// valid input.
type Selection struct {
	mu      sync.RWMutex
	current Language
}

func NewSelection(initial string) (*Selection, error) {
	if strings.TrimSpace(initial) == "" {
		initial = DefaultName
	}
	lang, err := Parse(initial)
	if err != nil {
		return nil, err
	}
	return &Selection{current: lang}, nil
}

func (s *Selection) Current() Language {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Selection) Locale() string {
	return s.Current().Locale
}

func (s *Selection) Set(input string) (Language, error) {
	lang, err := Parse(input)
	if err != nil {
		return s.Current(), err
	}

	s.mu.Lock()
	s.current = lang
	s.mu.Unlock()
	return lang, nil
}
