package lifecycle

import (
	"errors"
	"fmt"
)

// ValidationError reports missing or invalid input. Nothing was changed.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ConflictError reports that the requested slug is already owned by another
// item. Nothing was changed.
type ConflictError struct {
	Slug string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slug %q already exists", e.Slug)
}

// StorageIOError wraps a database or file-system failure. Callers should log
// it and show a generic message.
type StorageIOError struct {
	Op  string
	Err error
}

func (e *StorageIOError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageIOError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is a *ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsStorage reports whether err is a *StorageIOError.
func IsStorage(err error) bool {
	var se *StorageIOError
	return errors.As(err, &se)
}

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func storageErr(op string, err error) error {
	return &StorageIOError{Op: op, Err: err}
}
