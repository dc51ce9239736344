package sync

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/foldersync/pkg/config"
	"github.com/sidkik/foldersync/pkg/errors"
	folderSync "github.com/sidkik/foldersync/pkg/sync"
)

func setupFs(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/src/sub", 0755))
	require.NoError(t, fs.MkdirAll("/replica", 0755))
	require.NoError(t, afero.WriteFile(fs, "/src/a.txt", []byte("hi"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/src/sub/b.txt", []byte("x"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/not-a-dir", []byte("x"), 0644))
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		input    string
		exp      time.Duration
		expError bool
	}{
		{input: "0", exp: 0},
		{input: "60", exp: time.Minute},
		{input: "3600", exp: time.Hour},
		{input: "4294967296", expError: true},
		{input: "-1", expError: true},
		{input: "+5", expError: true},
		{input: "1.5", expError: true},
		{input: "ten", expError: true},
		{input: "", expError: true},
	}

	for _, test := range tests {
		interval, err := parseInterval(test.input)
		if test.expError {
			assert.Equal(t, errors.InvalidInterval{Value: test.input}, err, test.input)
			continue
		}
		assert.NoError(t, err, test.input)
		assert.Equal(t, test.exp, interval, test.input)
	}
}

func TestResolveSettingsFromArgs(t *testing.T) {
	setupFs(t)

	s, err := resolveSettings([]string{"/src", "/replica/", "30", "/sync.log"},
		options{digest: "blake2b", watch: true})
	require.NoError(t, err)
	assert.Equal(t, settings{
		pair:     folderSync.TreePair{Source: "/src", Replica: "/replica"},
		interval: 30 * time.Second,
		logPath:  "/sync.log",
		digest:   folderSync.BLAKE2b,
		watch:    true,
	}, s)
}

func TestResolveSettingsErrors(t *testing.T) {
	setupFs(t)

	tests := []struct {
		name       string
		args       []string
		opts       options
		expMessage string
	}{
		{
			name:       "MissingSource",
			args:       []string{"/missing", "/replica", "30", "/sync.log"},
			expMessage: `"/missing" doesn't exist.`,
		},
		{
			name:       "ReplicaIsFile",
			args:       []string{"/src", "/not-a-dir", "30", "/sync.log"},
			expMessage: `"/not-a-dir" is not a directory.`,
		},
		{
			name:       "BadInterval",
			args:       []string{"/src", "/replica", "soon", "/sync.log"},
			expMessage: `The interval "soon" is invalid.`,
		},
		{
			name:       "Overlap",
			args:       []string{"/src", "/src/sub", "30", "/sync.log"},
			expMessage: `The source "/src" and replica "/src/sub" overlap.`,
		},
		{
			name:       "LogInsideReplica",
			args:       []string{"/src", "/replica", "30", "/replica/sync.log"},
			expMessage: `The log file "/replica/sync.log" is inside the source or replica directory.`,
		},
		{
			name:       "LogInsideSource",
			args:       []string{"/src", "/replica", "30", "/src/sub/sync.log"},
			expMessage: `The log file "/src/sub/sync.log" is inside the source or replica directory.`,
		},
		{
			name:       "BadDigest",
			args:       []string{"/src", "/replica", "30", "/sync.log"},
			opts:       options{digest: "md5"},
			expMessage: `unknown digest "md5"`,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			_, err := resolveSettings(test.args, test.opts)
			msg, ok := errors.GetFriendlyMessage(err)
			assert.True(t, ok, "%v", err)
			assert.True(t, strings.HasPrefix(msg, test.expMessage), msg)
		})
	}
}

func TestResolveSettingsFromConfig(t *testing.T) {
	setupFs(t)
	interval := 15
	parseSyncConfig = func(path string) (config.Sync, error) {
		assert.Equal(t, "/etc/foldersync.yaml", path)
		return config.Sync{
			Source:   "/src",
			Replica:  "/replica",
			Interval: &interval,
			LogFile:  "/sync.log",
			Watch:    true,
			Digest:   "blake2b",
		}, nil
	}

	s, err := resolveSettings(nil, options{configPath: "/etc/foldersync.yaml", digest: "sha512"})
	require.NoError(t, err)
	assert.Equal(t, settings{
		pair:     folderSync.TreePair{Source: "/src", Replica: "/replica"},
		interval: 15 * time.Second,
		logPath:  "/sync.log",
		digest:   folderSync.SHA512,
		watch:    true,
	}, s)

	parseSyncConfig = func(string) (config.Sync, error) {
		return config.Sync{}, errors.MissingFieldError{Field: "source"}
	}
	_, err = resolveSettings(nil, options{})
	msg, ok := errors.GetFriendlyMessage(err)
	assert.True(t, ok)
	assert.Equal(t, `The config file is missing the "source" field.`, msg)
}

func TestRunOnce(t *testing.T) {
	setupFs(t)
	var out bytes.Buffer
	stdout = &out
	clock = clockwork.NewFakeClockAt(time.Date(2019, 11, 10, 9, 30, 0, 0, time.Local))

	err := run(context.Background(), settings{
		pair:    folderSync.TreePair{Source: "/src", Replica: "/replica"},
		logPath: "/sync.log",
		once:    true,
	})
	require.NoError(t, err)

	exp := "2019-11-10 09:30:00\tFILE_COPIED\t/replica/a.txt\n" +
		"2019-11-10 09:30:00\tDIRECTORY_CREATED\t/replica/sub\n" +
		"2019-11-10 09:30:00\tFILE_COPIED\t/replica/sub/b.txt\n"
	assert.Equal(t, exp, out.String())

	logContents, err := afero.ReadFile(fs, "/sync.log")
	require.NoError(t, err)
	assert.Equal(t, exp, string(logContents))

	// A second run has nothing to do, and leaves the log alone.
	out.Reset()
	require.NoError(t, run(context.Background(), settings{
		pair:    folderSync.TreePair{Source: "/src", Replica: "/replica"},
		logPath: "/sync.log",
		once:    true,
	}))
	assert.Empty(t, out.String())
}

func TestRunLoopUntilCancelled(t *testing.T) {
	setupFs(t)
	var out bytes.Buffer
	stdout = &out
	clock = clockwork.NewFakeClock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := run(ctx, settings{
		pair:     folderSync.TreePair{Source: "/src", Replica: "/replica"},
		interval: time.Minute,
		logPath:  "/sync.log",
	})
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, 3, strings.Count(out.String(), "\n"), "the first cycle runs before waiting")
}

func TestRunWatchFallsBackToInterval(t *testing.T) {
	setupFs(t)
	stdout = &bytes.Buffer{}
	clock = clockwork.NewFakeClock()
	watch = func(string) (chan struct{}, error) {
		return nil, errors.WithContext(errors.New("too many open files"), "watch")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := run(ctx, settings{
		pair:     folderSync.TreePair{Source: "/src", Replica: "/replica"},
		interval: time.Minute,
		logPath:  "/sync.log",
		watch:    true,
	})
	assert.Equal(t, context.Canceled, err)
}

func TestRunUnwritableLog(t *testing.T) {
	setupFs(t)
	fs = afero.NewReadOnlyFs(fs)

	err := run(context.Background(), settings{
		pair:    folderSync.TreePair{Source: "/src", Replica: "/replica"},
		logPath: "/sync.log",
		once:    true,
	})
	msg, ok := errors.GetFriendlyMessage(err)
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(msg, `Failed to open the log file "/sync.log"`), msg)
}
