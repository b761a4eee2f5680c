package port

import (
	"context"
	"io"

	"github.com/collectfs/collectfs/internal/domain"
)

//go:generate mockgen -destination=./mocks/adapter_mock.go -package=mocks -source=adapter.go

// StorageAdapter is the capability contract for one physical storage
// backend. Backend ids are opaque to callers: only the adapter that
// issued an id can resolve it.
type StorageAdapter interface {
	// Name returns the backend's configured identity.
	Name() string

	// Store writes the content under a caller-suggested key and returns
	// the backend id of the stored object. Storing to the same key
	// overwrites the previous object.
	Store(ctx context.Context, key string, content io.Reader) (string, error)

	// Retrieve opens the object's bytes for reading. The caller owns the
	// returned reader and must close it.
	Retrieve(ctx context.Context, backendID string) (io.ReadCloser, error)

	// Remove deletes the object. Removing an unknown id is not an error.
	Remove(ctx context.Context, backendID string) error

	// Watch starts delivering externally-originated change events to the
	// handler. It returns once delivery is active; delivery stops when
	// the context is canceled. Events caused by this process's own Store
	// and Remove calls are suppressed.
	Watch(ctx context.Context, handler SyncHandler) error
}

// SyncHandler receives a backend's externally-originated change events.
// One implementation is bound per backend at watch registration.
type SyncHandler interface {
	// OnInsert reports a file that appeared on the backend. The content
	// reader is optional; when present it is only valid for the duration
	// of the call.
	OnInsert(ctx context.Context, backendID string, info domain.FileInfo, content io.Reader) error

	// OnUpdate reports changed content or metadata for an existing object.
	OnUpdate(ctx context.Context, backendID string, info domain.FileInfo) error

	// OnRemove reports that the object disappeared from the backend.
	OnRemove(ctx context.Context, backendID string) error
}
