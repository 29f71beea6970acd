// Package errors annotates errors with the file and line they were raised at.
// Wrapped errors stay matchable with the standard errors.Is / errors.As.
package errors

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// caller returns "dir/file.go:line" for the function skip frames above it.
func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Join(filepath.Base(filepath.Dir(file)), filepath.Base(file)), line)
}

// WrapE joins a sentinel kind and the underlying cause. Both remain
// reachable through errors.Is.
func WrapE(kindErr, causeErr error) error {
	return fmt.Errorf("%s: %w: %w", caller(1), kindErr, causeErr)
}

func Wrap(err error, msg string) error {
	return fmt.Errorf("%s: %s: %w", caller(1), msg, err)
}

func Wrapf(err error, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", caller(1), fmt.Sprintf(format, args...), err)
}

func New(text string) error {
	return fmt.Errorf("%s: %s", caller(1), text)
}

func Newf(format string, args ...any) error {
	return fmt.Errorf("%s: %s", caller(1), fmt.Sprintf(format, args...))
}
