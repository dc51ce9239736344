package sync

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

// reconciler walks the source and brings each entry over to the replica.
type reconciler struct {
	*run
}

func (reconciler) fromSource() bool {
	return true
}

func (r reconciler) file(p TreePair, name string, replica listing) error {
	switch {
	case replica.dirs.Contains(name):
		// The source has a file where the replica has a directory. Replace
		// the directory so that the replica ends up matching the source.
		if err := r.removeDir(p.Replica); err != nil {
			return err
		}
		return r.copyFile(p, FileCopied)

	case replica.others.Contains(name):
		if err := r.removeFile(p.Replica); err != nil {
			return err
		}
		return r.copyFile(p, FileCopied)

	case !replica.files.Contains(name):
		return r.copyFile(p, FileCopied)
	}

	equal, err := r.ContentEquals(p.Source, p.Replica)
	if err != nil {
		return errors.WithContext(err, fmt.Sprintf("compare %q", p.Replica))
	}

	if equal {
		return nil
	}
	return r.copyFile(p, FileUpdated)
}

func (r reconciler) dir(p TreePair, name string, replica listing) (bool, error) {
	if replica.dirs.Contains(name) {
		return true, nil
	}

	if replica.files.Contains(name) || replica.others.Contains(name) {
		if err := r.removeFile(p.Replica); err != nil {
			return false, err
		}
	}

	if err := r.Fs.Mkdir(p.Replica, replicaDirPerm); err != nil {
		return false, errors.WithContext(err, fmt.Sprintf("create directory %q", p.Replica))
	}
	return true, r.emit(DirectoryCreated, p.Replica)
}

// special leaves symlinks and other special files in the source alone.
func (r reconciler) special(p TreePair, _ string, _ listing) error {
	r.log.WithField("path", p.Source).Debug(
		"Skipping entry that is neither a regular file nor a directory")
	return nil
}

// copyFile replaces the contents of the replica file with the contents of the
// source file, creating it if necessary.
func (r *run) copyFile(p TreePair, action Action) error {
	n, err := copyContents(r.Fs, p.Source, p.Replica)
	if err != nil {
		return errors.WithContext(err, fmt.Sprintf("copy %q", p.Source))
	}

	r.written += n
	return r.emit(action, p.Replica)
}

func copyContents(fs afero.Fs, src, dst string) (int64, error) {
	in, err := fs.Open(src)
	if err != nil {
		return 0, errors.WithContext(err, "open source")
	}
	defer in.Close()

	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, replicaFilePerm)
	if err != nil {
		return 0, errors.WithContext(err, "open replica")
	}

	n, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, errors.WithContext(err, "write")
	}
	return n, nil
}
