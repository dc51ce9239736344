package sync

import (
	"time"
)

// Action is the kind of change that was applied to the replica.
type Action string

const (
	// FileCopied means a source file was copied to a replica path that didn't
	// exist.
	FileCopied Action = "FILE_COPIED"

	// FileUpdated means an existing replica file was overwritten because its
	// contents differed from the source.
	FileUpdated Action = "FILE_UPDATED"

	// DirectoryCreated means a directory was created in the replica.
	DirectoryCreated Action = "DIRECTORY_CREATED"

	// FileDeleted means a replica file was removed.
	FileDeleted Action = "FILE_DELETED"

	// DirectoryDeleted means a replica directory was removed along with all of
	// its contents.
	DirectoryDeleted Action = "DIRECTORY_DELETED"
)

// Event records a single change applied to the replica.
type Event struct {
	Action Action

	// Path is the absolute path of the replica entry that changed.
	Path string

	// Time is when the change finished.
	Time time.Time
}

// A Recorder is notified of every Event as soon as it happens. A Recorder
// error aborts the cycle.
type Recorder interface {
	Record(Event) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(Event) error

// Record calls f(ev).
func (f RecorderFunc) Record(ev Event) error {
	return f(ev)
}
