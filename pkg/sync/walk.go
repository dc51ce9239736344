package sync

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

// visitor decides what to do with each entry during a walk.
type visitor interface {
	// fromSource returns true if the walk visits the entries of the source
	// directory, and false if it visits the entries of the replica.
	fromSource() bool

	// file is called for each regular file. `other` lists the directory on
	// the opposite side.
	file(p TreePair, name string, other listing) error

	// dir is called for each directory before its contents. The walk only
	// descends into the directory if it returns true.
	dir(p TreePair, name string, other listing) (bool, error)

	// special is called for entries that are neither regular files nor
	// directories.
	special(p TreePair, name string, other listing) error
}

// listing is the set of names in a directory, split by entry type.
type listing struct {
	files mapset.Set[string]
	dirs  mapset.Set[string]

	// others holds anything that's neither a regular file nor a directory,
	// such as symlinks.
	others mapset.Set[string]
}

func readListing(fs afero.Fs, dir string) (listing, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return listing{}, errors.WithContext(err, fmt.Sprintf("read %q", dir))
	}

	l := listing{
		files:  mapset.NewThreadUnsafeSet[string](),
		dirs:   mapset.NewThreadUnsafeSet[string](),
		others: mapset.NewThreadUnsafeSet[string](),
	}
	for _, fi := range entries {
		switch {
		case fi.Mode().IsRegular():
			l.files.Add(fi.Name())
		case fi.IsDir():
			l.dirs.Add(fi.Name())
		default:
			l.others.Add(fi.Name())
		}
	}
	return l, nil
}

// walk visits the entries of one side of `p` in a consistent order: regular
// files by name, then directories by name, recursing depth first.
func (r *run) walk(p TreePair, v visitor) error {
	driving, opposite := p.Source, p.Replica
	if !v.fromSource() {
		driving, opposite = opposite, driving
	}

	entries, err := afero.ReadDir(r.Fs, driving)
	if err != nil {
		return errors.WithContext(err, fmt.Sprintf("read %q", driving))
	}

	other, err := readListing(r.Fs, opposite)
	if err != nil {
		return err
	}

	var dirs []string
	for _, fi := range entries {
		switch {
		case fi.Mode().IsRegular():
			if err := v.file(p.child(fi.Name()), fi.Name(), other); err != nil {
				return err
			}
		case fi.IsDir():
			dirs = append(dirs, fi.Name())
		default:
			if err := v.special(p.child(fi.Name()), fi.Name(), other); err != nil {
				return err
			}
		}
	}

	for _, name := range dirs {
		child := p.child(name)
		descend, err := v.dir(child, name, other)
		if err != nil {
			return err
		}

		if descend {
			if err := r.walk(child, v); err != nil {
				return err
			}
		}
	}
	return nil
}
