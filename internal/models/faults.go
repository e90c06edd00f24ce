package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a row that was absent at commit time.
	ErrNotFound = errors.New("not found")
	// ErrValidation reports caller-correctable input; it never reaches the store.
	ErrValidation = errors.New("invalid input")
	// ErrStorage reports an underlying persistence failure.
	ErrStorage = errors.New("storage failure")
)

// FaultError pairs one of the sentinel faults with operation context.
type FaultError struct {
	Kind error
	Msg  string
}

func (e *FaultError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *FaultError) Unwrap() error { return e.Kind }

// NotFoundf builds a not-found fault with context.
func NotFoundf(format string, args ...any) error {
	return &FaultError{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Validationf builds a validation fault with context.
func Validationf(format string, args ...any) error {
	return &FaultError{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// Storagef builds a storage fault with context.
func Storagef(format string, args ...any) error {
	return &FaultError{Kind: ErrStorage, Msg: fmt.Sprintf(format, args...)}
}
