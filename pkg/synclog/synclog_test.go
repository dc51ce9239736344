package synclog

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/foldersync/pkg/sync"
)

func TestRecord(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/var/log/foldersync.log", []byte("existing line\n"), 0644))

	var console bytes.Buffer
	l := New(fs, "/var/log/foldersync.log", &console)

	at := time.Date(2019, 11, 10, 9, 30, 5, 0, time.Local)
	events := []sync.Event{
		{Action: sync.FileCopied, Path: "/replica/a.txt", Time: at},
		{Action: sync.DirectoryDeleted, Path: "/replica/sub", Time: at.Add(time.Second)},
	}
	for _, ev := range events {
		require.NoError(t, l.Record(ev))
	}

	expLines := "2019-11-10 09:30:05\tFILE_COPIED\t/replica/a.txt\n" +
		"2019-11-10 09:30:06\tDIRECTORY_DELETED\t/replica/sub\n"
	assert.Equal(t, expLines, console.String())

	contents, err := afero.ReadFile(fs, l.Path())
	require.NoError(t, err)
	assert.Equal(t, "existing line\n"+expLines, string(contents))
}

func TestRecordCreatesLogFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	var console bytes.Buffer
	l := New(fs, "/new.log", &console)

	require.NoError(t, l.Touch())
	exists, err := afero.Exists(fs, "/new.log")
	require.NoError(t, err)
	assert.True(t, exists)

	ev := sync.Event{Action: sync.FileUpdated, Path: "/r/f", Time: time.Now()}
	require.NoError(t, l.Record(ev))

	contents, err := afero.ReadFile(fs, "/new.log")
	require.NoError(t, err)
	assert.Equal(t, FormatEvent(ev), string(contents))
}

func TestRecordUnwritableLog(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	var console bytes.Buffer
	l := New(fs, "/ro.log", &console)

	assert.Error(t, l.Touch())

	err := l.Record(sync.Event{Action: sync.FileDeleted, Path: "/r/f", Time: time.Now()})
	assert.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), `append to "/ro.log":`), err.Error())
	assert.Empty(t, console.String(), "nothing is printed if the log file can't be written")
}

func TestFormatEvent(t *testing.T) {
	ev := sync.Event{
		Action: sync.DirectoryCreated,
		Path:   "/replica/dir",
		Time:   time.Date(2024, 2, 29, 23, 59, 59, 0, time.Local),
	}
	assert.Equal(t, "2024-02-29 23:59:59\tDIRECTORY_CREATED\t/replica/dir\n", FormatEvent(ev))
}
