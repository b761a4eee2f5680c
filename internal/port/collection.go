package port

import (
	"context"
	"io"

	"github.com/collectfs/collectfs/internal/domain"
)

//go:generate mockgen -destination=./mocks/collection_mock.go -package=mocks -source=collection.go

// FileCollection is the orchestrator surface consumed by inbound adapters.
// Every operation authorizes the caller's principal before touching state.
type FileCollection interface {
	// Name returns the collection name.
	Name() string

	// Backends returns the configured backend names in placement order.
	Backends() []string

	// Insert admits new file content: the candidate metadata must pass the
	// collection's filter rules, then a record with no copies is created.
	// Content may be nil for a metadata-only insert.
	Insert(ctx context.Context, info domain.FileInfo, content io.Reader) (*domain.FileRecord, error)

	// Update mutates a record atomically. The merged result is re-filtered;
	// a mutation producing disallowed metadata aborts without committing.
	Update(ctx context.Context, id string, mutate func(*domain.FileRecord) error) (*domain.FileRecord, error)

	// Remove deletes every record matching the selector and returns the
	// number removed. Backend bytes are cleaned up asynchronously.
	Remove(ctx context.Context, sel Selector) (int, error)

	// FindID returns the record with the given id or ErrRecordNotFound.
	FindID(ctx context.Context, id string) (*domain.FileRecord, error)

	// FindOne returns one record matching the selector or ErrRecordNotFound.
	FindOne(ctx context.Context, sel Selector) (*domain.FileRecord, error)

	// Find returns all records matching the selector.
	Find(ctx context.Context, sel Selector) ([]*domain.FileRecord, error)

	// Download streams the file's bytes from the first configured backend
	// holding a current copy and returns the number of bytes written.
	Download(ctx context.Context, id string, w io.Writer) (int64, error)
}

// CollectionResolver looks up collections by name.
type CollectionResolver interface {
	// Resolve returns the named collection.
	Resolve(name string) (FileCollection, bool)

	// Names lists registered collection names sorted.
	Names() []string
}

// CollectionObserver is notified after a record mutation commits.
// Implementations must not block; long work belongs on their own queues.
type CollectionObserver interface {
	// RecordInserted reports a committed insert. Content carries the raw
	// bytes of a local insert and is only valid for the duration of the
	// call; it is nil for inserts originating from backend sync events.
	// At most one observer per collection may consume the stream.
	RecordInserted(ctx context.Context, collection string, record *domain.FileRecord, content io.Reader)

	// RecordUpdated reports a committed update or copy-state change.
	RecordUpdated(ctx context.Context, collection string, record *domain.FileRecord)

	// RecordRemoved reports a committed removal. The record carries the
	// copies that existed at removal time so observers can clean them up.
	RecordRemoved(ctx context.Context, collection string, record *domain.FileRecord)
}
