package port

import (
	"context"
	"errors"

	"github.com/collectfs/collectfs/internal/domain"
)

//go:generate mockgen -destination=./mocks/metastore_mock.go -package=mocks -source=metastore.go

var (
	// ErrRecordNotFound is returned when no record matches an id or selector.
	ErrRecordNotFound = errors.New("file record not found")
)

// Selector matches records by dotted field paths, e.g.
// {"copies.s3.backend_id": "abc"}. An empty selector matches everything.
type Selector map[string]any

// MetadataStore is the document store holding file records. Collections
// share one store and are namespaced by name. Implementations must
// provide atomic per-record read-modify-write via Update.
type MetadataStore interface {
	// Insert persists a new record, assigns its id, and returns the id.
	Insert(ctx context.Context, collection string, record *domain.FileRecord) (string, error)

	// Get returns the record with the given id or ErrRecordNotFound.
	Get(ctx context.Context, collection, id string) (*domain.FileRecord, error)

	// Find returns all records matching the selector.
	Find(ctx context.Context, collection string, sel Selector) ([]*domain.FileRecord, error)

	// FindOne returns one matching record or ErrRecordNotFound.
	FindOne(ctx context.Context, collection string, sel Selector) (*domain.FileRecord, error)

	// Update applies mutate to the record under the store's per-record
	// atomicity. The callback receives a private copy; returning an error
	// aborts the update without committing and the error is returned
	// unwrapped. On success the committed record is returned.
	Update(ctx context.Context, collection, id string, mutate func(*domain.FileRecord) error) (*domain.FileRecord, error)

	// Remove deletes the record with the given id or returns ErrRecordNotFound.
	Remove(ctx context.Context, collection, id string) error
}
