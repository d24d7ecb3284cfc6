package grading

import (
	"errors"
	"fmt"
)

// The three failure classes a grading request can end in. A reply that
// ignores the requested layout is not among them: it degrades to sentinel
// values instead.
var (
	ErrInput            = errors.New("invalid input")
	ErrModelUnavailable = errors.New("AI model unavailable")
	ErrRender           = errors.New("report rendering failed")

	ErrEmptyReply = errors.New("AI model returned an empty response")
)

// InputError wraps ErrInput with a user facing reason.
func InputError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInput, fmt.Sprintf(format, args...))
}
