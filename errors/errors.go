// Package errors provides error construction helpers that annotate every
// error with the file and line of its origin, which makes failures easy to
// trace when they surface far from their cause (for example a transport
// error reported from the chat loop).
package errors

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// caller returns the file base name and line of the caller two frames up.
func caller() (string, int) {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "???", 0
	}
	return filepath.Base(file), line
}

// New creates a new error annotated with the caller's file and line.
func New(format string, a ...interface{}) error {
	file, line := caller()
	return fmt.Errorf("[%s:%d] %s", file, line, fmt.Sprintf(format, a...))
}

// Wrapf adds context (including the caller's file and line) to an existing
// error. If the provided error is nil, Wrapf returns nil.
func Wrapf(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	file, line := caller()
	return fmt.Errorf("[%s:%d] %s: %w", file, line, fmt.Sprintf(format, a...), err)
}
