package sync

import (
	"fmt"

	"github.com/sidkik/foldersync/pkg/errors"
)

// pruner walks the replica and removes whatever the source doesn't have.
type pruner struct {
	*run
}

func (pruner) fromSource() bool {
	return false
}

func (r pruner) file(p TreePair, name string, source listing) error {
	if source.files.Contains(name) {
		return nil
	}
	return r.removeFile(p.Replica)
}

func (r pruner) dir(p TreePair, name string, source listing) (bool, error) {
	if source.dirs.Contains(name) {
		return true, nil
	}

	// The whole subtree goes at once, so there's nothing left to descend
	// into.
	return false, r.removeDir(p.Replica)
}

// special removes a replica symlink or special file unless the source has a
// special file of the same name, which foldersync doesn't copy.
func (r pruner) special(p TreePair, name string, source listing) error {
	if source.others.Contains(name) {
		return nil
	}
	return r.removeFile(p.Replica)
}

func (r *run) removeFile(path string) error {
	if err := r.Fs.Remove(path); err != nil {
		return errors.WithContext(err, fmt.Sprintf("remove %q", path))
	}
	return r.emit(FileDeleted, path)
}

func (r *run) removeDir(path string) error {
	if err := r.Fs.RemoveAll(path); err != nil {
		return errors.WithContext(err, fmt.Sprintf("remove directory %q", path))
	}
	return r.emit(DirectoryDeleted, path)
}
