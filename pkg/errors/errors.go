// Package errors wraps the standard library errors with helpers for adding
// context to an error as it travels up the stack, and for attaching messages
// that are safe to show directly to users.
package errors

import (
	goErrors "errors"
	"fmt"
)

// New returns an error that formats as the given text.
func New(format string, args ...interface{}) error {
	if len(args) == 0 {
		return goErrors.New(format)
	}
	return fmt.Errorf(format, args...)
}

// Is and As are re-exported so callers don't need to import both packages.
var (
	Is = goErrors.Is
	As = goErrors.As
)

type contextError struct {
	context string
	err     error
}

// WithContext annotates err with a short description of what was being done
// when it occurred. A nil err stays nil.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return contextError{context: context, err: err}
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err contextError) Unwrap() error {
	return err.err
}

// RootCause returns the innermost error that was wrapped with WithContext.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(contextError)
		if !ok {
			return err
		}
		err = ctxErr.err
	}
}

// FriendlyError is an error whose message is meant to be read by the user
// as-is, rather than as a chain of debugging context.
type FriendlyError struct {
	message string
}

// NewFriendlyError creates a FriendlyError from a format string.
func NewFriendlyError(format string, args ...interface{}) error {
	return FriendlyError{message: fmt.Sprintf(format, args...)}
}

func (err FriendlyError) Error() string {
	return err.message
}

// FriendlyMessage returns the message to show to the user.
func (err FriendlyError) FriendlyMessage() string {
	return err.message
}

// Friendly is implemented by errors that carry a user-facing message.
type Friendly interface {
	FriendlyMessage() string
}

// GetFriendlyMessage returns the user-facing message for err if any error in
// its context chain has one.
func GetFriendlyMessage(err error) (string, bool) {
	var friendly Friendly
	if As(err, &friendly) {
		return friendly.FriendlyMessage(), true
	}
	return "", false
}
