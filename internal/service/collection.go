package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/anthanhphan/gosdk/logger"

	"github.com/collectfs/collectfs/internal/domain"
	"github.com/collectfs/collectfs/internal/port"
)

// DefaultChunkSize is the buffer size for streaming file bytes.
const DefaultChunkSize = 131072

var (
	// ErrNoBackends rejects collection construction without storage backends.
	ErrNoBackends = errors.New("collection requires at least one storage backend")

	// ErrAdmissionDenied is returned when the filter rules reject a file.
	ErrAdmissionDenied = errors.New("file rejected by admission rules")

	// ErrAuthorizationDenied is returned when no allow predicate grants the operation.
	ErrAuthorizationDenied = errors.New("operation not authorized")

	// ErrNoCopy is returned when a download finds no backend holding the bytes.
	ErrNoCopy = errors.New("no backend holds a copy of the file")
)

// SyncOptions tunes how external backend events mutate records.
type SyncOptions struct {
	// PartialCopyRemove makes an external remove drop only the reporting
	// backend's copy entry instead of the whole record. A record losing
	// its last copy is still removed, since nothing remains to regenerate
	// other copies from.
	PartialCopyRemove bool
}

// Config carries the construction-time configuration of a collection.
type Config struct {
	// Store is the metadata store backing the collection. Required.
	Store port.MetadataStore

	// Adapters lists the storage backends in placement order. At least
	// one is required and names must be unique.
	Adapters []port.StorageAdapter

	// Filter holds the admission rules; nil admits everything.
	Filter *domain.FilterRules

	// Access holds the authorization predicate lists; nil means deny-all.
	Access *AccessRules

	// ChunkSize overrides the streaming buffer size.
	ChunkSize int

	// Sync tunes external event handling.
	Sync SyncOptions
}

// Collection is the orchestrator for one file collection: it owns the
// backend set, the admission rules, and the metadata store, and funnels
// every mutation through authorization and filtering.
type Collection struct {
	name      string
	store     port.MetadataStore
	adapters  []port.StorageAdapter
	byName    map[string]port.StorageAdapter
	backends  []string
	rules     *domain.FilterRules
	access    *AccessRules
	chunkSize int
	syncOpts  SyncOptions
	pool      *sync.Pool

	obsMu     sync.RWMutex
	observers []port.CollectionObserver

	writeUseCase *writeService
	readUseCase  *readService
	syncUseCase  *syncService
}

// Ensure Collection implements port.FileCollection.
var _ port.FileCollection = (*Collection)(nil)

// New validates the configuration and builds the collection with its
// use-case services. Construction fails with ErrNoBackends when no
// storage adapter is supplied.
func New(name string, cfg Config) (*Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if len(cfg.Adapters) == 0 {
		return nil, fmt.Errorf("collection %s: %w", name, ErrNoBackends)
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("collection %s requires a metadata store", name)
	}

	byName := make(map[string]port.StorageAdapter, len(cfg.Adapters))
	backends := make([]string, 0, len(cfg.Adapters))
	for _, adapter := range cfg.Adapters {
		backend := adapter.Name()
		if backend == "" {
			return nil, fmt.Errorf("collection %s: backend with empty name", name)
		}
		if _, dup := byName[backend]; dup {
			return nil, fmt.Errorf("collection %s: duplicate backend name %s", name, backend)
		}
		byName[backend] = adapter
		backends = append(backends, backend)
	}

	rules, warnings := domain.NormalizeFilterRules(cfg.Filter)
	for _, warning := range warnings {
		logger.Warnw("Filter rule widened during normalization", "collection", name, "detail", warning)
	}

	access := cfg.Access
	if access == nil {
		access = NewAccessRules()
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	c := &Collection{
		name:      name,
		store:     cfg.Store,
		adapters:  cfg.Adapters,
		byName:    byName,
		backends:  backends,
		rules:     rules,
		access:    access,
		chunkSize: chunkSize,
		syncOpts:  cfg.Sync,
		pool: &sync.Pool{
			New: func() interface{} {
				// One reusable streaming buffer per concurrent transfer.
				b := make([]byte, chunkSize)
				return &b
			},
		},
	}

	c.writeUseCase = newWriteService(c)
	c.readUseCase = newReadService(c)
	c.syncUseCase = newSyncService(c)

	logger.Infow("Collection constructed",
		"collection", name, "backends", backends, "chunk_size", chunkSize, "filtered", rules != nil)
	return c, nil
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Backends returns the configured backend names in placement order.
func (c *Collection) Backends() []string {
	out := make([]string, len(c.backends))
	copy(out, c.backends)
	return out
}

// Adapter resolves a configured backend by name.
func (c *Collection) Adapter(backend string) (port.StorageAdapter, bool) {
	adapter, ok := c.byName[backend]
	return adapter, ok
}

// ChunkSize returns the streaming buffer size.
func (c *Collection) ChunkSize() int {
	return c.chunkSize
}

// Allows runs the collection's filter rules against candidate metadata.
// Exposed so pre-flight checks share the exact enforcement logic.
func (c *Collection) Allows(info domain.FileInfo) bool {
	return c.rules.Allows(info)
}

// Observe registers an observer for committed record mutations.
func (c *Collection) Observe(observer port.CollectionObserver) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, observer)
}

// StartSync registers a sync bridge with every backend so external
// change events flow into the collection until the context is canceled.
func (c *Collection) StartSync(ctx context.Context) error {
	for _, adapter := range c.adapters {
		backend := adapter.Name()
		if err := adapter.Watch(ctx, &backendBridge{core: c, backend: backend}); err != nil {
			return fmt.Errorf("failed to watch backend %s: %w", backend, err)
		}
		logger.Infow("Sync bridge registered", "collection", c.name, "backend", backend)
	}
	return nil
}

// SyncHandlerFor returns the sync bridge bound to one backend, for event
// sources that deliver a backend's changes out of band.
func (c *Collection) SyncHandlerFor(backend string) (port.SyncHandler, bool) {
	if _, ok := c.byName[backend]; !ok {
		return nil, false
	}
	return &backendBridge{core: c, backend: backend}, nil
}

// Insert delegates admission of new file content to the write use-case.
func (c *Collection) Insert(ctx context.Context, info domain.FileInfo, content io.Reader) (*domain.FileRecord, error) {
	return c.writeUseCase.insert(ctx, info, content)
}

// Update delegates an atomic record mutation to the write use-case.
func (c *Collection) Update(ctx context.Context, id string, mutate func(*domain.FileRecord) error) (*domain.FileRecord, error) {
	return c.writeUseCase.update(ctx, id, mutate)
}

// Remove delegates selector-based removal to the write use-case.
func (c *Collection) Remove(ctx context.Context, sel port.Selector) (int, error) {
	return c.writeUseCase.remove(ctx, sel)
}

// FindID delegates an id lookup to the read use-case.
func (c *Collection) FindID(ctx context.Context, id string) (*domain.FileRecord, error) {
	return c.readUseCase.findID(ctx, id)
}

// FindOne delegates a selector lookup to the read use-case.
func (c *Collection) FindOne(ctx context.Context, sel port.Selector) (*domain.FileRecord, error) {
	return c.readUseCase.findOne(ctx, sel)
}

// Find delegates a selector query to the read use-case.
func (c *Collection) Find(ctx context.Context, sel port.Selector) ([]*domain.FileRecord, error) {
	return c.readUseCase.find(ctx, sel)
}

// Download delegates byte streaming to the read use-case.
func (c *Collection) Download(ctx context.Context, id string, w io.Writer) (int64, error) {
	return c.readUseCase.download(ctx, id, w)
}

// Record reads one record without authorization. Trusted maintenance
// path for the replication worker.
func (c *Collection) Record(ctx context.Context, id string) (*domain.FileRecord, error) {
	return c.store.Get(ctx, c.name, id)
}

// PendingRecords lists records at least one configured backend is still
// missing a copy of. Trusted maintenance path for the replication sweep.
func (c *Collection) PendingRecords(ctx context.Context) ([]*domain.FileRecord, error) {
	records, err := c.store.Find(ctx, c.name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list records for collection %s: %w", c.name, err)
	}

	pending := make([]*domain.FileRecord, 0)
	for _, record := range records {
		if record.State(c.backends) != domain.ReplicationComplete {
			pending = append(pending, record)
		}
	}
	return pending, nil
}

// CommitCopy records that a backend now holds a current copy. Trusted
// bookkeeping path for the replication worker; the filter does not run.
func (c *Collection) CommitCopy(ctx context.Context, id, backend string, copyDesc domain.CopyDescriptor) (*domain.FileRecord, error) {
	if _, ok := c.byName[backend]; !ok {
		return nil, fmt.Errorf("unknown backend %s", backend)
	}

	updated, err := c.store.Update(ctx, c.name, id, func(r *domain.FileRecord) error {
		r.SetCopy(backend, copyDesc)
		return nil
	})
	if err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to commit copy for record %s: %w", id, err)
	}

	logger.Debugw("Copy committed",
		"collection", c.name, "record_id", id, "backend", backend, "backend_id", copyDesc.BackendID)
	c.notifyUpdated(ctx, updated)
	return updated, nil
}

// DropCopy forgets a backend's copy entry. Trusted bookkeeping path.
func (c *Collection) DropCopy(ctx context.Context, id, backend string) (*domain.FileRecord, error) {
	updated, err := c.store.Update(ctx, c.name, id, func(r *domain.FileRecord) error {
		r.DropCopy(backend)
		return nil
	})
	if err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to drop copy for record %s: %w", id, err)
	}

	c.notifyUpdated(ctx, updated)
	return updated, nil
}

// notifyInserted fans a committed insert out to the observers.
func (c *Collection) notifyInserted(ctx context.Context, record *domain.FileRecord, content io.Reader) {
	c.obsMu.RLock()
	defer c.obsMu.RUnlock()
	for _, observer := range c.observers {
		observer.RecordInserted(ctx, c.name, record, content)
	}
}

// notifyUpdated fans a committed update out to the observers.
func (c *Collection) notifyUpdated(ctx context.Context, record *domain.FileRecord) {
	c.obsMu.RLock()
	defer c.obsMu.RUnlock()
	for _, observer := range c.observers {
		observer.RecordUpdated(ctx, c.name, record)
	}
}

// notifyRemoved fans a committed removal out to the observers.
func (c *Collection) notifyRemoved(ctx context.Context, record *domain.FileRecord) {
	c.obsMu.RLock()
	defer c.obsMu.RUnlock()
	for _, observer := range c.observers {
		observer.RecordRemoved(ctx, c.name, record)
	}
}
