package redistore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/collectfs/collectfs/internal/domain"
	"github.com/collectfs/collectfs/internal/port"
)

// updateRetries bounds the optimistic-lock retry loop on contended records.
// Every conflicted round commits at least one writer, so a loop this deep
// only fails under sustained contention from more concurrent writers than
// a single record realistically sees.
const updateRetries = 16

// Store is a Redis-backed metadata store. Each record is one JSON value;
// a per-collection set indexes the record ids. Atomic read-modify-write
// is implemented with WATCH/MULTI optimistic transactions.
type Store struct {
	client *redis.Client
	prefix string
}

// Ensure Store implements port.MetadataStore.
var _ port.MetadataStore = (*Store)(nil)

// New creates a Redis metadata store. The prefix namespaces all keys so
// several deployments can share one Redis database.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "collectfs"
	}
	return &Store{client: client, prefix: prefix}
}

// recordKey returns the key holding one record's JSON document.
func (s *Store) recordKey(collection, id string) string {
	return fmt.Sprintf("%s:%s:rec:%s", s.prefix, collection, id)
}

// indexKey returns the key of the set holding a collection's record ids.
func (s *Store) indexKey(collection string) string {
	return fmt.Sprintf("%s:%s:ids", s.prefix, collection)
}

// Insert persists a new record under a fresh uuid and returns the id.
func (s *Store) Insert(ctx context.Context, collection string, record *domain.FileRecord) (string, error) {
	if record == nil {
		return "", fmt.Errorf("cannot insert nil record")
	}

	stored := record.Clone()
	stored.ID = uuid.NewString()

	payload, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.recordKey(collection, stored.ID), payload, 0)
		pipe.SAdd(ctx, s.indexKey(collection), stored.ID)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to insert record: %w", err)
	}

	record.ID = stored.ID
	return stored.ID, nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, collection, id string) (*domain.FileRecord, error) {
	payload, err := s.client.Get(ctx, s.recordKey(collection, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, port.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}

	return decodeRecord(payload)
}

// Find loads the collection's records via the id index and filters them
// against the selector client-side, ordered by id.
func (s *Store) Find(ctx context.Context, collection string, sel port.Selector) ([]*domain.FileRecord, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list collection %s: %w", collection, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(collection, id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	var matches []*domain.FileRecord
	for _, value := range values {
		payload, ok := value.(string)
		if !ok {
			// Record deleted between SMEMBERS and MGET.
			continue
		}
		record, err := decodeRecord([]byte(payload))
		if err != nil {
			return nil, err
		}
		if record.Matches(sel) {
			matches = append(matches, record)
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

// Update runs mutate inside a WATCH transaction so concurrent writers to
// the same record serialize; conflicting commits are retried with a fresh
// read. A mutate error aborts the transaction and is returned unwrapped.
func (s *Store) Update(ctx context.Context, collection, id string, mutate func(*domain.FileRecord) error) (*domain.FileRecord, error) {
	key := s.recordKey(collection, id)

	var committed *domain.FileRecord
	txn := func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return port.ErrRecordNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get record %s: %w", id, err)
		}

		record, err := decodeRecord(payload)
		if err != nil {
			return err
		}

		if err := mutate(record); err != nil {
			return err
		}
		record.ID = id

		updated, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		if err == nil {
			committed = record
		}
		return err
	}

	for attempt := 0; attempt < updateRetries; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return committed, nil
	}

	return nil, fmt.Errorf("update of record %s exhausted %d optimistic retries", id, updateRetries)
}

// Remove deletes the record and its index entry.
func (s *Store) Remove(ctx context.Context, collection, id string) error {
	var removed *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.Del(ctx, s.recordKey(collection, id))
		pipe.SRem(ctx, s.indexKey(collection), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove record %s: %w", id, err)
	}
	if removed.Val() == 0 {
		return port.ErrRecordNotFound
	}
	return nil
}

// decodeRecord unmarshals a stored record document.
func decodeRecord(payload []byte) (*domain.FileRecord, error) {
	var record domain.FileRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	if record.Copies == nil {
		record.Copies = map[string]domain.CopyDescriptor{}
	}
	return &record, nil
}
