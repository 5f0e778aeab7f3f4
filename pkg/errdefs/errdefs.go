// Package errdefs defines the error categories shared by every cryorestore package.
// Callers classify failures with errors.Is against the sentinel values; the
// constructors below wrap a sentinel with a formatted message.
package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports structurally invalid input: malformed shapes,
	// non-positive pixel sizes or cutoffs, mismatched image shapes, empty patch sets.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound reports a micrograph or metadata file that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrFormat reports a file that exists but cannot be decoded.
	ErrFormat = errors.New("format error")

	// ErrAlreadyExists reports a save target that exists while overwriting is disabled.
	ErrAlreadyExists = errors.New("already exists")
)

// InvalidArgumentf wraps ErrInvalidArgument with a formatted message.
func InvalidArgumentf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Formatf wraps ErrFormat with a formatted message.
func Formatf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}

// AlreadyExistsf wraps ErrAlreadyExists with a formatted message.
func AlreadyExistsf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrAlreadyExists, fmt.Sprintf(format, args...))
}

// IsInvalidArgument reports whether err is classified as ErrInvalidArgument.
func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }

// IsNotFound reports whether err is classified as ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
