package localdisk

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/collectfs/collectfs/internal/port"
)

const (
	// fanoutDirs spreads files across subdirectories so no single
	// directory grows unbounded.
	fanoutDirs = 256

	// suppressWindow is how long a path written or removed by this
	// process keeps its filesystem events from being reported as
	// external changes.
	suppressWindow = 5 * time.Second
)

// Config tunes one local-disk backend.
type Config struct {
	// Name identifies the backend in collection configuration.
	Name string
	// Root is the directory files are stored under.
	Root string
	// FSync forces a sync before the final rename of each stored file.
	FSync bool
}

// Backend stores file bytes on the local filesystem. Its own writes go
// through a temp-file rename into hashed fan-out directories; files that
// other processes drop anywhere under the root are picked up by Watch
// and reported as external changes.
type Backend struct {
	name  string
	root  string
	fsync bool

	suppressMu sync.Mutex
	suppressed map[string]time.Time
}

// Ensure Backend implements port.StorageAdapter.
var _ port.StorageAdapter = (*Backend)(nil)

// New creates the backend and its root directory.
func New(cfg Config) (*Backend, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("localdisk backend requires a name")
	}
	if cfg.Root == "" {
		return nil, fmt.Errorf("localdisk backend %s requires a root directory", cfg.Name)
	}
	if err := os.MkdirAll(cfg.Root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &Backend{
		name:       cfg.Name,
		root:       filepath.Clean(cfg.Root),
		fsync:      cfg.FSync,
		suppressed: map[string]time.Time{},
	}, nil
}

// Name returns the backend's configured identity.
func (b *Backend) Name() string {
	return b.name
}

// Store writes the content under a hashed relative path and returns that
// path as the backend id. The write lands in a temp file first and is
// renamed into place, so readers never observe a partial file.
func (b *Backend) Store(ctx context.Context, key string, content io.Reader) (string, error) {
	rel := b.placePath(key)
	target, err := b.absPath(rel)
	if err != nil {
		return "", err
	}

	b.suppress(rel)
	b.suppress(rel + ".tmp")

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("failed to create fan-out directory: %w", err)
	}

	tmp := target + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if content != nil {
		if _, err := io.Copy(f, content); err != nil {
			f.Close()
			os.Remove(tmp)
			return "", fmt.Errorf("failed to write content: %w", err)
		}
	}
	if b.fsync {
		if err := f.Sync(); err != nil {
			f.Close()
			os.Remove(tmp)
			return "", fmt.Errorf("failed to sync file: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize file: %w", err)
	}

	return rel, nil
}

// Retrieve opens the stored file for reading.
func (b *Backend) Retrieve(ctx context.Context, backendID string) (io.ReadCloser, error) {
	target, err := b.absPath(backendID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(target)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", backendID, err)
	}
	return f, nil
}

// Remove deletes the stored file. Unknown ids are ignored.
func (b *Backend) Remove(ctx context.Context, backendID string) error {
	target, err := b.absPath(backendID)
	if err != nil {
		return err
	}

	b.suppress(backendID)
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", backendID, err)
	}
	return nil
}

// placePath maps a storage key to its fan-out relative path. The name
// part is kept, sanitized, for operator inspection; uniqueness comes
// from hashing the whole key.
func (b *Backend) placePath(key string) string {
	fan := fmt.Sprintf("%02x", murmur3.Sum32([]byte(key))%fanoutDirs)
	sum := fmt.Sprintf("%016x", murmur3.Sum64([]byte(key)))

	base := sanitize(path.Base(key))
	if base == "" {
		return fan + "/" + sum
	}
	return fan + "/" + sum + "_" + base
}

// absPath resolves a backend id against the root, rejecting ids that
// would escape it.
func (b *Backend) absPath(backendID string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(backendID))
	if rel == "." || rel == ".." || filepath.IsAbs(rel) ||
		strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid backend id %s", backendID)
	}
	return filepath.Join(b.root, rel), nil
}

// suppress marks a relative path so its own filesystem events are not
// mistaken for external changes. Stale marks are pruned as new ones land.
func (b *Backend) suppress(rel string) {
	now := time.Now()

	b.suppressMu.Lock()
	defer b.suppressMu.Unlock()

	for p, at := range b.suppressed {
		if now.Sub(at) > suppressWindow {
			delete(b.suppressed, p)
		}
	}
	b.suppressed[rel] = now
}

func (b *Backend) isSuppressed(rel string) bool {
	b.suppressMu.Lock()
	defer b.suppressMu.Unlock()

	at, ok := b.suppressed[rel]
	return ok && time.Since(at) <= suppressWindow
}

// sanitize keeps file names portable: letters, digits, dot, dash and
// underscore survive, everything else becomes an underscore.
func sanitize(s string) string {
	var out strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			out.WriteRune(r)
		} else {
			out.WriteRune('_')
		}
	}
	return strings.Trim(out.String(), ".")
}
