package recognize

import (
	"context"
	"errors"

	"github.com/fmueller/speech2symbol/internal/audio"
)

var (
	// ErrUnintelligible means the service answered but understood nothing.
	ErrUnintelligible = errors.New("speech is unintelligible")
	// ErrServiceUnavailable means the recognition request itself failed.
	ErrServiceUnavailable = errors.New("speech recognition service unavailable")
)

// Recognizer turns a recorded clip into text for a locale such as "en-IN".
// Failures wrap ErrUnintelligible or ErrServiceUnavailable; a cancelled ctx is
// returned as the ctx error.
type Recognizer interface {
	Recognize(ctx context.Context, clip audio.Clip, locale string) (string, error)
}

type Func func(ctx context.Context, clip audio.Clip, locale string) (string, error)

func (f Func) Recognize(ctx context.Context, clip audio.Clip, locale string) (string, error) {
	return f(ctx, clip, locale)
}

// Recoverable reports whether err is one of the recognition failures the user
// can retry from.
func Recoverable(err error) bool {
	return errors.Is(err, ErrUnintelligible) || errors.Is(err, ErrServiceUnavailable)
}
