// Package synclog writes sync events to the log file and the console.
package synclog

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
	"github.com/sidkik/foldersync/pkg/sync"
)

// TimeFormat is the layout of the timestamp column. Timestamps are rendered
// in local time.
const TimeFormat = "2006-01-02 15:04:05"

// Log is a sync.Recorder that appends one line per event to a file, and
// echoes the same line to the console.
// The file is opened and closed for every event so that it's never held open
// between cycles, and so that it can be rotated or removed while foldersync
// is running.
type Log struct {
	fs      afero.Fs
	path    string
	console io.Writer
}

// New creates a Log that appends to `path`.
func New(fs afero.Fs, path string, console io.Writer) *Log {
	return &Log{fs: fs, path: path, console: console}
}

// Path returns the path of the log file.
func (l *Log) Path() string {
	return l.path
}

// Touch creates the log file if it doesn't exist, so that an unwritable log
// path is caught before anything is synced.
func (l *Log) Touch() error {
	f, err := l.open()
	if err != nil {
		return err
	}
	return f.Close()
}

// Record implements sync.Recorder.
func (l *Log) Record(ev sync.Event) error {
	line := FormatEvent(ev)
	if err := l.appendLine(line); err != nil {
		return errors.WithContext(err, fmt.Sprintf("append to %q", l.path))
	}

	if _, err := io.WriteString(l.console, line); err != nil {
		return errors.WithContext(err, "write to console")
	}
	return nil
}

func (l *Log) appendLine(line string) error {
	f, err := l.open()
	if err != nil {
		return err
	}

	_, err = io.WriteString(f, line)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

func (l *Log) open() (afero.File, error) {
	return l.fs.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

// FormatEvent renders an event as a newline terminated, tab separated line.
func FormatEvent(ev sync.Event) string {
	return fmt.Sprintf("%s\t%s\t%s\n", ev.Time.Local().Format(TimeFormat), ev.Action, ev.Path)
}
