package memback

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/collectfs/collectfs/internal/domain"
	"github.com/collectfs/collectfs/internal/port"
)

// Backend is an in-memory storage backend for development profiles and
// tests. Externally-originated changes are simulated through the Emit
// methods; Store and Remove never trigger sync events, matching the
// self-write suppression real backends implement.
type Backend struct {
	name string

	mu       sync.RWMutex
	objects  map[string][]byte
	watchers []watcher
}

type watcher struct {
	ctx     context.Context
	handler port.SyncHandler
}

// Ensure Backend implements port.StorageAdapter.
var _ port.StorageAdapter = (*Backend)(nil)

// New creates an empty in-memory backend with the given name.
func New(name string) *Backend {
	return &Backend{
		name:    name,
		objects: map[string][]byte{},
	}
}

// Name returns the backend's configured identity.
func (b *Backend) Name() string {
	return b.name
}

// Store keeps the content in memory under the key, which doubles as the
// backend id. Storing to the same key overwrites.
func (b *Backend) Store(_ context.Context, key string, content io.Reader) (string, error) {
	data := []byte{}
	if content != nil {
		var err error
		data, err = io.ReadAll(content)
		if err != nil {
			return "", fmt.Errorf("failed to read content: %w", err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return key, nil
}

// Retrieve opens the stored object for reading.
func (b *Backend) Retrieve(_ context.Context, backendID string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.objects[backendID]
	if !ok {
		return nil, fmt.Errorf("object %s not found", backendID)
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), data...))), nil
}

// Remove deletes the object. Unknown ids are ignored.
func (b *Backend) Remove(_ context.Context, backendID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, backendID)
	return nil
}

// Watch registers the handler for simulated external events until the
// context is canceled.
func (b *Backend) Watch(ctx context.Context, handler port.SyncHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.watchers = append(b.watchers, watcher{ctx: ctx, handler: handler})
	return nil
}

// Has reports whether an object exists under the backend id.
func (b *Backend) Has(backendID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.objects[backendID]
	return ok
}

// Len returns the number of stored objects.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

// EmitInsert simulates a file appearing on the backend outside this
// process: the bytes are stored and every live watcher's OnInsert runs.
func (b *Backend) EmitInsert(ctx context.Context, backendID string, info domain.FileInfo, content []byte) error {
	b.mu.Lock()
	b.objects[backendID] = append([]byte(nil), content...)
	handlers := b.liveWatchersLocked()
	b.mu.Unlock()

	for _, handler := range handlers {
		if err := handler.OnInsert(ctx, backendID, info, bytes.NewReader(content)); err != nil {
			return err
		}
	}
	return nil
}

// EmitUpdate simulates the object's content changing on the backend.
func (b *Backend) EmitUpdate(ctx context.Context, backendID string, info domain.FileInfo, content []byte) error {
	b.mu.Lock()
	b.objects[backendID] = append([]byte(nil), content...)
	handlers := b.liveWatchersLocked()
	b.mu.Unlock()

	for _, handler := range handlers {
		if err := handler.OnUpdate(ctx, backendID, info); err != nil {
			return err
		}
	}
	return nil
}

// EmitRemove simulates the object disappearing from the backend.
func (b *Backend) EmitRemove(ctx context.Context, backendID string) error {
	b.mu.Lock()
	delete(b.objects, backendID)
	handlers := b.liveWatchersLocked()
	b.mu.Unlock()

	for _, handler := range handlers {
		if err := handler.OnRemove(ctx, backendID); err != nil {
			return err
		}
	}
	return nil
}

// liveWatchersLocked snapshots handlers whose watch context is alive.
func (b *Backend) liveWatchersLocked() []port.SyncHandler {
	var handlers []port.SyncHandler
	for _, w := range b.watchers {
		if w.ctx.Err() == nil {
			handlers = append(handlers, w.handler)
		}
	}
	return handlers
}
