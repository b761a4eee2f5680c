package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/collectfs/collectfs/internal/domain"
	"github.com/collectfs/collectfs/internal/port"
)

// Store is an in-memory metadata store for development and tests.
// Records are deep-copied on the way in and out so callers never share
// memory with the store.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]*domain.FileRecord
}

// Ensure Store implements port.MetadataStore.
var _ port.MetadataStore = (*Store)(nil)

// New creates an empty in-memory metadata store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]*domain.FileRecord),
	}
}

// Insert persists a new record under a fresh uuid and returns the id.
func (s *Store) Insert(_ context.Context, collection string, record *domain.FileRecord) (string, error) {
	if record == nil {
		return "", fmt.Errorf("cannot insert nil record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.collections[collection]
	if !ok {
		records = make(map[string]*domain.FileRecord)
		s.collections[collection] = records
	}

	stored := record.Clone()
	stored.ID = uuid.NewString()
	records[stored.ID] = stored

	record.ID = stored.ID
	return stored.ID, nil
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(_ context.Context, collection, id string) (*domain.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.collections[collection][id]
	if !ok {
		return nil, port.ErrRecordNotFound
	}
	return record.Clone(), nil
}

// Find returns copies of all records matching the selector, ordered by id.
func (s *Store) Find(_ context.Context, collection string, sel port.Selector) ([]*domain.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*domain.FileRecord
	for _, record := range s.collections[collection] {
		if record.Matches(sel) {
			matches = append(matches, record.Clone())
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

// FindOne returns the first matching record by id order.
func (s *Store) FindOne(ctx context.Context, collection string, sel port.Selector) (*domain.FileRecord, error) {
	matches, err := s.Find(ctx, collection, sel)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, port.ErrRecordNotFound
	}
	return matches[0], nil
}

// Update applies mutate to a private copy under the store lock and commits
// the copy on success. The record id cannot be changed by the callback.
func (s *Store) Update(_ context.Context, collection, id string, mutate func(*domain.FileRecord) error) (*domain.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.collections[collection][id]
	if !ok {
		return nil, port.ErrRecordNotFound
	}

	updated := record.Clone()
	if err := mutate(updated); err != nil {
		return nil, err
	}
	updated.ID = id

	s.collections[collection][id] = updated
	return updated.Clone(), nil
}

// Remove deletes the record with the given id.
func (s *Store) Remove(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return port.ErrRecordNotFound
	}
	delete(s.collections[collection], id)
	return nil
}
