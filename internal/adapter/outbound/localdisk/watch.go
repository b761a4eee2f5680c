package localdisk

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/anthanhphan/gosdk/logger"
	"github.com/fsnotify/fsnotify"

	"github.com/collectfs/collectfs/internal/domain"
	"github.com/collectfs/collectfs/internal/port"
)

// settleDelay lets a burst of writes to the same file finish before the
// file is reported, so half-written external files are not imported.
const settleDelay = 200 * time.Millisecond

// Watch reports files other processes create, change, or delete under
// the root. Existing files are reported as inserts first, so a tracked
// collection converges even when files landed while nobody watched.
// The backend's own writes and removes are filtered out.
func (b *Backend) Watch(ctx context.Context, handler port.SyncHandler) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	session := &watchSession{
		backend: b,
		ctx:     ctx,
		handler: handler,
		fsw:     fsw,
		known:   map[string]struct{}{},
		pending: map[string]*time.Timer{},
	}

	go session.run()
	return nil
}

// watchSession is one Watch registration's state: the files it knows
// exist and the per-file settle timers.
type watchSession struct {
	backend *Backend
	ctx     context.Context
	handler port.SyncHandler
	fsw     *fsnotify.Watcher

	mu      sync.Mutex
	known   map[string]struct{}
	pending map[string]*time.Timer
}

func (s *watchSession) run() {
	defer s.fsw.Close()

	if err := s.scan(); err != nil {
		logger.Warnw("Initial backend scan failed", "backend", s.backend.name, "error", err)
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-s.fsw.Events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case err, ok := <-s.fsw.Errors:
			if !ok {
				return
			}
			logger.Warnw("Filesystem watcher error", "backend", s.backend.name, "error", err)
		}
	}
}

// scan registers every directory with the watcher and reports existing
// files as inserts. Already-tracked files no-op downstream.
func (s *watchSession) scan() error {
	return filepath.WalkDir(s.backend.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := s.fsw.Add(p); err != nil {
				return fmt.Errorf("failed to watch %s: %w", p, err)
			}
			return nil
		}

		rel, relErr := s.relPath(p)
		if relErr != nil || skipPath(rel) {
			return nil
		}
		s.schedule(rel)
		return nil
	})
}

func (s *watchSession) handleEvent(event fsnotify.Event) {
	rel, err := s.relPath(event.Name)
	if err != nil || skipPath(rel) {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Create):
		info, statErr := os.Stat(event.Name)
		if statErr == nil && info.IsDir() {
			// A directory moved in can carry files that fired no events.
			if err := s.fsw.Add(event.Name); err != nil {
				logger.Warnw("Failed to watch new directory", "backend", s.backend.name, "path", rel, "error", err)
			}
			s.scanDir(event.Name)
			return
		}
		s.schedule(rel)
	case event.Op.Has(fsnotify.Write):
		s.schedule(rel)
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		s.fileGone(rel)
	}
}

func (s *watchSession) scanDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		rel, err := s.relPath(filepath.Join(dir, entry.Name()))
		if err != nil || skipPath(rel) {
			continue
		}
		s.schedule(rel)
	}
}

// schedule arms or resets the settle timer for a changed file.
func (s *watchSession) schedule(rel string) {
	if s.backend.isSuppressed(rel) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.pending[rel]; ok {
		timer.Reset(settleDelay)
		return
	}
	s.pending[rel] = time.AfterFunc(settleDelay, func() {
		s.settle(rel)
	})
}

// settle reports one quiesced file as an insert or an update.
func (s *watchSession) settle(rel string) {
	s.mu.Lock()
	delete(s.pending, rel)
	s.mu.Unlock()

	if s.ctx.Err() != nil || s.backend.isSuppressed(rel) {
		return
	}

	target, err := s.backend.absPath(rel)
	if err != nil {
		return
	}
	stat, err := os.Stat(target)
	if err != nil || stat.IsDir() {
		// Gone again already; the remove event cleans up.
		return
	}

	name := displayName(rel)
	info := domain.FileInfo{
		Name:        name,
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		Size:        stat.Size(),
		UpdatedAt:   stat.ModTime().UTC(),
	}

	s.mu.Lock()
	_, existed := s.known[rel]
	s.known[rel] = struct{}{}
	s.mu.Unlock()

	if existed {
		if err := s.handler.OnUpdate(s.ctx, rel, info); err != nil {
			logger.Warnw("Failed to apply external update", "backend", s.backend.name, "backend_id", rel, "error", err)
		}
		return
	}

	f, err := os.Open(target)
	if err != nil {
		return
	}
	defer f.Close()

	if err := s.handler.OnInsert(s.ctx, rel, info, f); err != nil {
		logger.Warnw("Failed to apply external insert", "backend", s.backend.name, "backend_id", rel, "error", err)
	}
}

// fileGone reports an external deletion.
func (s *watchSession) fileGone(rel string) {
	s.mu.Lock()
	if timer, ok := s.pending[rel]; ok {
		timer.Stop()
		delete(s.pending, rel)
	}
	delete(s.known, rel)
	s.mu.Unlock()

	if s.backend.isSuppressed(rel) {
		return
	}

	if err := s.handler.OnRemove(s.ctx, rel); err != nil {
		logger.Warnw("Failed to apply external remove", "backend", s.backend.name, "backend_id", rel, "error", err)
	}
}

func (s *watchSession) relPath(abs string) (string, error) {
	rel, err := filepath.Rel(s.backend.root, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// skipPath drops in-progress temp files and hidden files.
func skipPath(rel string) bool {
	if strings.HasSuffix(rel, ".tmp") {
		return true
	}
	base := filepath.Base(rel)
	return strings.HasPrefix(base, ".")
}

// displayName recovers the original file name from a fan-out path by
// stripping the hash prefix this backend's own writes carry. A rescan
// after a restart then reports those files under their real names.
func displayName(rel string) string {
	base := filepath.Base(rel)

	sum, name, found := strings.Cut(base, "_")
	if !found || len(sum) != 16 {
		return base
	}
	for _, r := range sum {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return base
		}
	}
	return name
}
