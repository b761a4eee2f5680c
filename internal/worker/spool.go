package worker

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// spool stages the bytes of locally inserted files on disk until every
// configured backend holds a copy. Record ids are generated, so they are
// safe as file names.
type spool struct {
	dir string
}

func newSpool(dir string) (*spool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}
	return &spool{dir: dir}, nil
}

func (s *spool) path(collection, recordID string) string {
	return filepath.Join(s.dir, collection, recordID)
}

// put stages content under a temp name and renames it into place so a
// crash mid-write never leaves a partial spool file behind.
func (s *spool) put(collection, recordID string, content io.Reader) (int64, error) {
	target := s.path(collection, recordID)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create spool collection directory: %w", err)
	}

	tmp := target + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create spool file: %w", err)
	}

	size, err := io.Copy(f, content)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to write spool file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to sync spool file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to close spool file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to finalize spool file: %w", err)
	}

	return size, nil
}

func (s *spool) has(collection, recordID string) bool {
	_, err := os.Stat(s.path(collection, recordID))
	return err == nil
}

func (s *spool) open(collection, recordID string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(collection, recordID))
	if err != nil {
		return nil, fmt.Errorf("failed to open spool file: %w", err)
	}
	return f, nil
}

// remove deletes a staged file. Missing files are not an error.
func (s *spool) remove(collection, recordID string) error {
	err := os.Remove(s.path(collection, recordID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove spool file: %w", err)
	}
	return nil
}
