package sync

import (
	"bytes"
	"crypto/sha512"
	"encoding/base64"
	"hash"
	"io"

	"github.com/spf13/afero"
	"golang.org/x/crypto/blake2b"

	"github.com/sidkik/foldersync/pkg/errors"
)

// Digest names a hash function used to fingerprint file contents. Digests are
// only ever compared within a single process, so any collision resistant
// hash works.
type Digest string

const (
	// SHA512 is the default digest.
	SHA512 Digest = "sha512"

	// BLAKE2b is BLAKE2b-256. It's usually faster than SHA512 on 64-bit
	// machines.
	BLAKE2b Digest = "blake2b"
)

// ParseDigest returns the Digest called `name`. The empty string selects
// the default.
func ParseDigest(name string) (Digest, error) {
	switch d := Digest(name); d {
	case "":
		return SHA512, nil
	case SHA512, BLAKE2b:
		return d, nil
	}
	return "", errors.New("unknown digest %q (expected %q or %q)", name, SHA512, BLAKE2b)
}

func (d Digest) newHash() hash.Hash {
	if d == BLAKE2b {
		// New256 only fails for keys longer than 64 bytes.
		h, _ := blake2b.New256(nil)
		return h
	}
	return sha512.New()
}

// HashFile returns the digest of the file at the given path, base64 encoded.
func HashFile(fs afero.Fs, digest Digest, path string) (string, error) {
	sum, err := hashFile(fs, digest, path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sum), nil
}

func hashFile(fs afero.Fs, digest Digest, path string) ([]byte, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.WithContext(err, "open")
	}
	defer f.Close()

	hasher := digest.newHash()
	if _, err := io.Copy(hasher, f); err != nil {
		return nil, errors.WithContext(err, "read")
	}
	return hasher.Sum(nil), nil
}

// ContentEquals returns whether the two files have the same contents. Files
// of different sizes are never read.
func (s *Syncer) ContentEquals(fileA, fileB string) (bool, error) {
	infoA, err := s.Fs.Stat(fileA)
	if err != nil {
		return false, errors.WithContext(err, "stat")
	}

	infoB, err := s.Fs.Stat(fileB)
	if err != nil {
		return false, errors.WithContext(err, "stat")
	}

	if infoA.Size() != infoB.Size() {
		return false, nil
	}

	sumA, err := hashFile(s.Fs, s.Digest, fileA)
	if err != nil {
		return false, errors.WithContext(err, "hash")
	}

	sumB, err := hashFile(s.Fs, s.Digest, fileB)
	if err != nil {
		return false, errors.WithContext(err, "hash")
	}
	return bytes.Equal(sumA, sumB), nil
}
