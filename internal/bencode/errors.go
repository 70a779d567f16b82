package bencode

import (
	"errors"
	"fmt"
)

// Error kinds. Every error produced while decoding wraps exactly one of them,
// so callers can test with errors.Is regardless of how much context was added.
var (
	ErrTruncated    = errors.New("truncated")
	ErrMalformed    = errors.New("malformed")
	ErrTypeMismatch = errors.New("type mismatch")
	ErrSizeMismatch = errors.New("size mismatch")
)

// SyntaxError describes a decode failure at a byte offset of the input.
type SyntaxError struct {
	Kind     error
	Offset   int
	Expected string
	Detail   string
}

func (e *SyntaxError) Error() string {
	msg := fmt.Sprintf("bencode: %v at offset %d: expected %s", e.Kind, e.Offset, e.Expected)
	if e.Detail != "" {
		msg += ", " + e.Detail
	}
	return msg
}

func (e *SyntaxError) Unwrap() error {
	return e.Kind
}

func syntaxErr(kind error, offset int, expected, format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Kind:     kind,
		Offset:   offset,
		Expected: expected,
		Detail:   fmt.Sprintf(format, args...),
	}
}
