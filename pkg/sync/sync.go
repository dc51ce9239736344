package sync

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

const (
	replicaFilePerm = 0644
	replicaDirPerm  = 0755
)

// TreePair is the source and replica roots that are kept in sync.
type TreePair struct {
	Source  string
	Replica string
}

// child returns the pair for the entry called `name` inside both sides.
func (p TreePair) child(name string) TreePair {
	return TreePair{
		Source:  filepath.Join(p.Source, name),
		Replica: filepath.Join(p.Replica, name),
	}
}

// Contains returns whether `path` is either root or inside of one.
func (p TreePair) Contains(path string) bool {
	return within(path, p.Source) || within(path, p.Replica)
}

// NewTreePair resolves both paths to absolute paths and checks that they're
// existing directories.
func NewTreePair(fs afero.Fs, source, replica string) (TreePair, error) {
	var pair TreePair
	for _, side := range []struct {
		name string
		path string
		dst  *string
	}{
		{"source", source, &pair.Source},
		{"replica", replica, &pair.Replica},
	} {
		abs, err := filepath.Abs(side.path)
		if err != nil {
			return TreePair{}, errors.WithContext(err, fmt.Sprintf("resolve %s path", side.name))
		}

		if err := checkDir(fs, abs); err != nil {
			return TreePair{}, errors.WithContext(err, fmt.Sprintf("check %s", side.name))
		}
		*side.dst = abs
	}

	if within(pair.Source, pair.Replica) || within(pair.Replica, pair.Source) {
		return TreePair{}, errors.OverlappingTrees{Source: pair.Source, Replica: pair.Replica}
	}
	return pair, nil
}

// within returns whether `path` is `dir` or is inside of it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func checkDir(fs afero.Fs, path string) error {
	fi, err := fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.FileNotFound{Path: path}
		}
		return errors.WithContext(err, "stat")
	}

	if !fi.IsDir() {
		return errors.NotADirectory{Path: path}
	}
	return nil
}

// Syncer applies the source tree to the replica tree. The zero value isn't
// usable: Fs must be set. The other fields have defaults.
type Syncer struct {
	Fs afero.Fs

	// Clock timestamps events. Defaults to the real clock.
	Clock clockwork.Clock

	// Recorder is notified of each change. Optional.
	Recorder Recorder

	// Digest is the hash used to compare file contents. Defaults to SHA512.
	Digest Digest

	// Log receives diagnostics. Defaults to the standard logrus logger.
	Log logrus.FieldLogger
}

// run holds the state of one Reconcile, Prune, or Cycle call.
type run struct {
	*Syncer
	log     logrus.FieldLogger
	events  []Event
	written int64
}

func (s *Syncer) newRun(log logrus.FieldLogger) *run {
	return &run{Syncer: s, log: log}
}

func (s *Syncer) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

func (s *Syncer) clock() clockwork.Clock {
	if s.Clock == nil {
		return clockwork.NewRealClock()
	}
	return s.Clock
}

// Reconcile makes sure every entry in sourceDir exists in replicaDir with the
// same contents. Both directories must exist.
func (s *Syncer) Reconcile(sourceDir, replicaDir string) ([]Event, error) {
	r := s.newRun(s.logger())
	err := r.walk(TreePair{Source: sourceDir, Replica: replicaDir}, reconciler{r})
	return r.events, err
}

// Prune removes every entry in replicaDir that doesn't exist in sourceDir.
// Both directories must exist.
func (s *Syncer) Prune(sourceDir, replicaDir string) ([]Event, error) {
	r := s.newRun(s.logger())
	err := r.walk(TreePair{Source: sourceDir, Replica: replicaDir}, pruner{r})
	return r.events, err
}

// Cycle runs Reconcile and then Prune over the pair. On failure, the events
// for the changes that were applied before the failure are still returned.
func (s *Syncer) Cycle(pair TreePair) ([]Event, error) {
	log := s.logger().WithField("cycle", uuid.NewString())
	r := s.newRun(log)

	start := s.clock().Now()
	log.WithFields(logrus.Fields{
		"source":  pair.Source,
		"replica": pair.Replica,
	}).Debug("Starting sync cycle")

	if err := r.walk(pair, reconciler{r}); err != nil {
		return r.events, errors.WithContext(err, "reconcile")
	}

	if err := r.walk(pair, pruner{r}); err != nil {
		return r.events, errors.WithContext(err, "prune")
	}

	entry := log.WithFields(logrus.Fields{
		"changes":  len(r.events),
		"written":  humanize.Bytes(uint64(r.written)),
		"duration": s.clock().Since(start),
	})
	if len(r.events) == 0 {
		entry.Debug("Replica already in sync")
	} else {
		entry.Info("Sync cycle complete")
	}
	return r.events, nil
}

func (r *run) emit(action Action, path string) error {
	ev := Event{Action: action, Path: path, Time: r.clock().Now()}
	r.events = append(r.events, ev)
	r.log.WithFields(logrus.Fields{
		"action": action,
		"path":   path,
	}).Debug("Applied change")

	if r.Recorder == nil {
		return nil
	}
	return errors.WithContext(r.Recorder.Record(ev), "record event")
}
