package errors

import (
	"fmt"
)

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// NotADirectory is returned when a path that must be a directory is
// something else.
type NotADirectory struct {
	Path string
}

func (err NotADirectory) Error() string {
	return fmt.Sprintf("%q is not a directory", err.Path)
}

// InvalidInterval is returned when the synchronization interval can't be
// parsed as a non-negative number of seconds.
type InvalidInterval struct {
	Value string
}

func (err InvalidInterval) Error() string {
	return fmt.Sprintf("invalid interval %q: must be a non-negative whole number of seconds", err.Value)
}

// OverlappingTrees is returned when the replica is inside the source or the
// source is inside the replica. Syncing them would never converge.
type OverlappingTrees struct {
	Source, Replica string
}

func (err OverlappingTrees) Error() string {
	return fmt.Sprintf("source %q and replica %q overlap", err.Source, err.Replica)
}
