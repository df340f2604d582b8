package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const tmpDirName = "tmp"

// FileStore keeps the value in <dir>/<key>. Writes go to a temp file in
// <dir>/tmp and are renamed into place.
type FileStore struct {
	dir string
	key string
}

// NewFileStore creates a file-backed store. The directory is created on the
// first Save.
func NewFileStore(dir, key string) (*FileStore, error) {
	if dir == "" {
		return nil, &Error{Op: "open", Key: key, Err: errors.New("empty directory")}
	}
	if key == "" || key == tmpDirName || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return nil, &Error{Op: "open", Key: key, Err: errors.New("invalid key")}
	}
	return &FileStore{dir: dir, key: key}, nil
}

// Path returns the file holding the value.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, s.key)
}

// Save implements Store.
func (s *FileStore) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: "save", Key: s.key, Err: err}
	}
	if err := s.save(data); err != nil {
		return &Error{Op: "save", Key: s.key, Err: err}
	}
	return nil
}

func (s *FileStore) save(data []byte) error {
	tmpDir := filepath.Join(s.dir, tmpDirName)
	if err := os.MkdirAll(tmpDir, 0o750); err != nil {
		return fmt.Errorf("create tmp directory: %w", err)
	}
	f, err := os.CreateTemp(tmpDir, s.key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := f.Name()

	if _, err := f.Write(data); err != nil {
		return errors.Join(fmt.Errorf("write temp file: %w", err), f.Close(), os.Remove(tmpPath))
	}
	if err := f.Sync(); err != nil {
		return errors.Join(fmt.Errorf("sync temp file: %w", err), f.Close(), os.Remove(tmpPath))
	}
	if err := f.Close(); err != nil {
		return errors.Join(fmt.Errorf("close temp file: %w", err), os.Remove(tmpPath))
	}
	if err := os.Rename(tmpPath, s.Path()); err != nil {
		return errors.Join(fmt.Errorf("rename into place: %w", err), os.Remove(tmpPath))
	}
	return nil
}

// Load implements Store.
func (s *FileStore) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "load", Key: s.key, Err: err}
	}
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, &Error{Op: "load", Key: s.key, Err: err}
	}
	return data, nil
}

// Clear implements Store.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: "clear", Key: s.key, Err: err}
	}
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &Error{Op: "clear", Key: s.key, Err: err}
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }
