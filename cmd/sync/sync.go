package sync

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sidkik/foldersync/cmd/util"
	"github.com/sidkik/foldersync/pkg/config"
	"github.com/sidkik/foldersync/pkg/errors"
	"github.com/sidkik/foldersync/pkg/fswatch"
	"github.com/sidkik/foldersync/pkg/schedule"
	folderSync "github.com/sidkik/foldersync/pkg/sync"
	"github.com/sidkik/foldersync/pkg/synclog"
)

// Mocked for unit testing.
var (
	fs              afero.Fs  = afero.NewOsFs()
	stdout          io.Writer = os.Stdout
	clock                     = clockwork.NewRealClock()
	parseSyncConfig           = config.ParseSync
	watch                     = fswatch.Watch
)

type options struct {
	configPath string
	once       bool
	watch      bool
	digest     string
}

// settings is everything a sync run needs, after validation.
type settings struct {
	pair     folderSync.TreePair
	interval time.Duration
	logPath  string
	digest   folderSync.Digest
	watch    bool
	once     bool
}

// New creates a new `sync` command.
func New() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "sync [SOURCE REPLICA INTERVAL LOGFILE]",
		Short: "Mirror a source directory onto a replica directory",
		Long: "Make REPLICA an exact copy of SOURCE every INTERVAL seconds.\n" +
			"Files are copied or overwritten when their contents differ, and\n" +
			"anything in REPLICA that isn't in SOURCE is deleted. Every change\n" +
			"is printed and appended to LOGFILE.\n\n" +
			"If no arguments are given, they're read from the config file\n" +
			"(see `foldersync config`).",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 4 {
				return errors.NewFriendlyError("Expected 4 arguments " +
					"(SOURCE REPLICA INTERVAL LOGFILE), or none to use the config file.")
			}
			return nil
		},
		Run: func(_ *cobra.Command, args []string) {
			s, err := resolveSettings(args, opts)
			if err != nil {
				util.HandleFatalError(err)
			}

			if err := run(context.Background(), s); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", config.DefaultSyncConfigPath,
		"Path to the config file used when no arguments are given.")
	cmd.Flags().BoolVar(&opts.once, "once", false,
		"Run a single sync cycle and exit.")
	cmd.Flags().BoolVar(&opts.watch, "watch", false,
		"Also start a cycle as soon as the source changes, rather than only "+
			"after the interval.")
	cmd.Flags().StringVar(&opts.digest, "digest", "",
		fmt.Sprintf("Hash used to compare file contents: %q (default) or %q.",
			folderSync.SHA512, folderSync.BLAKE2b))
	return cmd
}

// resolveSettings validates the positional arguments, or the config file if
// there aren't any. Any problem is fatal before the first cycle.
func resolveSettings(args []string, opts options) (settings, error) {
	var source, replica, logPath, digest string
	var interval time.Duration
	watchChanges := opts.watch

	if len(args) == 4 {
		source, replica, logPath = args[0], args[1], args[3]
		digest = opts.digest

		var err error
		interval, err = parseInterval(args[2])
		if err != nil {
			return settings{}, friendlyStartupError(err)
		}
	} else {
		cfg, err := parseSyncConfig(opts.configPath)
		if err != nil {
			return settings{}, friendlyStartupError(errors.WithContext(err, "parse config"))
		}

		source, replica, logPath = cfg.Source, cfg.Replica, cfg.LogFile
		interval = time.Duration(*cfg.Interval) * time.Second
		watchChanges = watchChanges || cfg.Watch
		digest = cfg.Digest
		if opts.digest != "" {
			digest = opts.digest
		}
	}

	parsedDigest, err := folderSync.ParseDigest(digest)
	if err != nil {
		return settings{}, errors.NewFriendlyError("%s", err)
	}

	for _, path := range []*string{&source, &replica, &logPath} {
		expanded, err := config.ExpandPath(*path)
		if err != nil {
			return settings{}, errors.WithContext(err, "expand path")
		}
		*path = expanded
	}

	pair, err := folderSync.NewTreePair(fs, source, replica)
	if err != nil {
		return settings{}, friendlyStartupError(err)
	}

	logPath, err = filepath.Abs(logPath)
	if err != nil {
		return settings{}, errors.WithContext(err, "resolve log file path")
	}

	if pair.Contains(logPath) {
		return settings{}, errors.NewFriendlyError("The log file %q is inside "+
			"the source or replica directory.\n"+
			"Each logged change would change the replica again on the next "+
			"cycle. Use a log file outside of both directories.", logPath)
	}

	return settings{
		pair:     pair,
		interval: interval,
		logPath:  logPath,
		digest:   parsedDigest,
		watch:    watchChanges,
		once:     opts.once,
	}, nil
}

// parseInterval parses a non-negative whole number of seconds.
func parseInterval(value string) (time.Duration, error) {
	seconds, err := config.ParseInterval(value)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}

func friendlyStartupError(err error) error {
	if _, ok := errors.GetFriendlyMessage(err); ok {
		return err
	}

	switch rootCause := errors.RootCause(err).(type) {
	case errors.FileNotFound:
		return errors.NewFriendlyError("%q doesn't exist.\n"+
			"Both the source and replica directories must exist before syncing.",
			rootCause.Path)
	case errors.NotADirectory:
		return errors.NewFriendlyError("%q is not a directory.\n"+
			"Both the source and the replica must be directories.", rootCause.Path)
	case errors.InvalidInterval:
		return errors.NewFriendlyError("The interval %q is invalid.\n"+
			"It must be a whole number of seconds, such as 60.", rootCause.Value)
	case errors.MissingFieldError:
		return errors.NewFriendlyError("The config file is missing the %q "+
			"field.", rootCause.Field)
	case errors.OverlappingTrees:
		return errors.NewFriendlyError("The source %q and replica %q overlap.\n"+
			"Neither directory may be inside the other.",
			rootCause.Source, rootCause.Replica)
	}
	return err
}

func run(ctx context.Context, s settings) error {
	eventLog := synclog.New(fs, s.logPath, stdout)
	if err := eventLog.Touch(); err != nil {
		return errors.NewFriendlyError("Failed to open the log file %q:\n%s", s.logPath, err)
	}

	syncer := &folderSync.Syncer{
		Fs:       fs,
		Clock:    clock,
		Recorder: eventLog,
		Digest:   s.digest,
		Log:      log.StandardLogger(),
	}
	cycle := func() error {
		_, err := syncer.Cycle(s.pair)
		return errors.WithContext(err, "sync")
	}

	if s.once {
		return cycle()
	}

	var trigger <-chan struct{}
	if s.watch {
		trigger = watchSource(s.pair.Source)
	}

	log.WithFields(log.Fields{
		"source":   s.pair.Source,
		"replica":  s.pair.Replica,
		"interval": s.interval,
		"log":      s.logPath,
		"digest":   s.digest,
	}).Info("Starting foldersync")

	return schedule.Loop{
		Interval: s.interval,
		Clock:    clock,
		Trigger:  trigger,
		Log:      log.StandardLogger(),
	}.Run(ctx, cycle)
}

// watchSource returns a channel that receives when the source changes. If the
// source can't be watched, it returns nil and syncing falls back to only
// running on the interval.
func watchSource(source string) <-chan struct{} {
	changes, err := watch(source)
	if err == nil {
		return changes
	}

	if strings.Contains(errors.RootCause(err).Error(), "too many open files") {
		log.Warn("Too many directories for foldersync to watch for changes. " +
			"Changes will only be picked up on the regular interval.")
	} else {
		log.WithError(err).Warn("Failed to watch source for changes. " +
			"Changes will only be picked up on the regular interval.")
	}
	return nil
}
