package fswatch

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

var fs = afero.NewOsFs()

// Watch watches the directory tree rooted at `root`. It sends an event on the
// returned channel whenever something within the tree changes. Bursts of
// changes are combined, so a receiver that's busy syncing sees at most one
// pending event.
func Watch(root string) (chan struct{}, error) {
	pathsToWatch, err := getPathsToWatch(root)
	if err != nil {
		return nil, errors.WithContext(err, "get paths")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	for _, path := range pathsToWatch {
		if err := watcher.Add(path); err != nil {
			// Close the watcher so that we release the file handlers for the
			// previously added paths.
			if err := watcher.Close(); err != nil {
				log.WithError(err).Warn("Failed to close file watcher")
			}

			return nil, errors.WithContext(err, fmt.Sprintf("watch %q", path))
		}
	}
	return combineUpdates(followNewDirs(watcher)), nil
}

// followNewDirs forwards the watcher's events. fsnotify doesn't watch
// recursively, so directories that are created after the watch started are
// added as they show up.
func followNewDirs(watcher *fsnotify.Watcher) <-chan fsnotify.Event {
	events := make(chan fsnotify.Event)
	go func() {
		defer close(events)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}

				if ev.Op&fsnotify.Create == fsnotify.Create {
					if fi, err := fs.Stat(ev.Name); err == nil && fi.IsDir() {
						if err := watcher.Add(ev.Name); err != nil {
							log.WithError(err).WithField("path", ev.Name).Warn(
								"Failed to watch new directory. Changes in it " +
									"will be picked up by the next scheduled sync.")
						}
					}
				}
				events <- ev

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Debug("File watcher error")
			}
		}
	}()
	return events
}

func combineUpdates(updates <-chan fsnotify.Event) chan struct{} {
	combined := make(chan struct{}, 1)
	go func() {
		for range updates {
			select {
			case combined <- struct{}{}:
			default:
			}
		}
	}()
	return combined
}

// getPathsToWatch returns `root` and every directory below it. Watching a
// directory reports changes to the files directly inside it, so files don't
// need to be watched individually.
func getPathsToWatch(root string) (paths []string, err error) {
	fi, err := fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound{Path: root}
		}
		return nil, errors.WithContext(err, "stat")
	}

	if !fi.IsDir() {
		return nil, errors.NotADirectory{Path: root}
	}

	err = afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return errors.WithContext(err, "walk error")
		}

		if fi.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}
