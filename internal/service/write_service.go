package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/anthanhphan/gosdk/logger"

	"github.com/collectfs/collectfs/internal/domain"
	"github.com/collectfs/collectfs/internal/port"
)

// writeService handles the untrusted mutation paths: every insert and
// update passes authorization and the admission filter before commit.
type writeService struct {
	core *Collection
}

// newWriteService creates the write use-case service.
func newWriteService(core *Collection) *writeService {
	return &writeService{core: core}
}

// insert admits new file content and creates a record with no copies.
// The raw bytes are handed to the observers for backend placement.
func (s *writeService) insert(ctx context.Context, info domain.FileInfo, content io.Reader) (*domain.FileRecord, error) {
	record := domain.NewFileRecord(info)

	if err := s.core.access.Authorize(ctx, OpInsert, record); err != nil {
		return nil, err
	}

	if !s.core.rules.Allows(info) {
		logger.Infow("Insert rejected by admission rules",
			"collection", s.core.name, "name", info.Name, "content_type", info.ContentType, "size", info.Size)
		return nil, ErrAdmissionDenied
	}

	// The caller may have abandoned the request; nothing is committed yet.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := s.core.store.Insert(ctx, s.core.name, record)
	if err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}

	logger.Infow("File record created",
		"collection", s.core.name, "record_id", id, "name", info.Name, "size", info.Size)
	s.core.notifyInserted(ctx, record, content)
	return record, nil
}

// update applies mutate atomically and re-checks the admission filter
// against the merged result, so updates cannot smuggle in disallowed
// metadata. Copy bookkeeping cannot be forged either: mutate operates on
// everything but the id, and the merged record must still pass filtering.
func (s *writeService) update(ctx context.Context, id string, mutate func(*domain.FileRecord) error) (*domain.FileRecord, error) {
	current, err := s.core.store.Get(ctx, s.core.name, id)
	if err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load record %s: %w", id, err)
	}

	if err := s.core.access.Authorize(ctx, OpUpdate, current); err != nil {
		return nil, err
	}

	updated, err := s.core.store.Update(ctx, s.core.name, id, func(r *domain.FileRecord) error {
		if err := mutate(r); err != nil {
			return err
		}
		r.UpdatedAt = time.Now().UTC()
		if !s.core.rules.Allows(r.Info()) {
			return ErrAdmissionDenied
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAdmissionDenied) {
			logger.Infow("Update rejected by admission rules", "collection", s.core.name, "record_id", id)
			return nil, err
		}
		if errors.Is(err, port.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update record %s: %w", id, err)
	}

	logger.Debugw("File record updated", "collection", s.core.name, "record_id", id)
	s.core.notifyUpdated(ctx, updated)
	return updated, nil
}

// remove deletes every record matching the selector. Each match is
// authorized before anything is removed; backend bytes are cleaned up by
// whoever observes the removals.
func (s *writeService) remove(ctx context.Context, sel port.Selector) (int, error) {
	matches, err := s.core.store.Find(ctx, s.core.name, sel)
	if err != nil {
		return 0, fmt.Errorf("failed to find records to remove: %w", err)
	}

	for _, record := range matches {
		if err := s.core.access.Authorize(ctx, OpRemove, record); err != nil {
			return 0, err
		}
	}

	removed := 0
	for _, record := range matches {
		err := s.core.store.Remove(ctx, s.core.name, record.ID)
		if errors.Is(err, port.ErrRecordNotFound) {
			// Lost a race with another remover.
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("failed to remove record %s: %w", record.ID, err)
		}
		removed++
		s.core.notifyRemoved(ctx, record)
	}

	if removed > 0 {
		logger.Infow("File records removed", "collection", s.core.name, "count", removed)
	}
	return removed, nil
}
