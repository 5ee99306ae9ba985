package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// LocalFS stores blobs as files under Dir.
type LocalFS struct {
	Dir string
}

// NewLocalFS returns a filesystem tier rooted at dir.
func NewLocalFS(dir string) *LocalFS {
	return &LocalFS{Dir: dir}
}

func (l *LocalFS) Name() string { return "local" }

// Path is the file backing key.
func (l *LocalFS) Path(key string) string {
	return filepath.Join(l.Dir, filepath.FromSlash(key))
}

func (l *LocalFS) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(l.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "local: read %s", key)
	}
	return data, nil
}

// Put writes to a sibling temp file and renames it into place.
func (l *LocalFS) Put(_ context.Context, key string, data []byte) error {
	path := l.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "local: create dir for %s", key)
	}
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "local: write %s", key)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return eris.Wrapf(err, "local: rename %s", key)
	}
	return nil
}
