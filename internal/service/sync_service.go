package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anthanhphan/gosdk/logger"

	"github.com/collectfs/collectfs/internal/domain"
	"github.com/collectfs/collectfs/internal/port"
)

// sniffLen is how many leading bytes content-type detection reads.
const sniffLen = 512

// syncService applies externally-originated backend events to records.
// These paths are trusted: the reporting backend already holds the bytes,
// so the admission filter does not re-run here. Lookup misses are benign
// races between backend and collection lifecycles and are swallowed.
type syncService struct {
	core *Collection
}

// newSyncService creates the sync use-case service.
func newSyncService(core *Collection) *syncService {
	return &syncService{core: core}
}

// applyInsert tracks a file that appeared on a backend: a new record
// mirroring the reported metadata, with exactly one copy entry for the
// reporting backend. Re-observing an already-tracked backend id is a no-op.
func (s *syncService) applyInsert(ctx context.Context, backend, backendID string, info domain.FileInfo, content io.Reader) error {
	existing, err := s.lookup(ctx, backend, backendID)
	if err != nil {
		return err
	}
	if existing != nil {
		logger.Debugw("External insert already tracked",
			"collection", s.core.name, "backend", backend, "backend_id", backendID)
		return nil
	}

	if info.ContentType == "" && content != nil {
		info.ContentType, content = sniffContentType(content)
	}

	record := domain.NewFileRecord(info)
	record.SetCopy(backend, domain.DescriptorFor(backendID, info))

	id, err := s.core.store.Insert(ctx, s.core.name, record)
	if err != nil {
		return fmt.Errorf("failed to track external insert: %w", err)
	}

	logger.Infow("External insert tracked",
		"collection", s.core.name, "record_id", id, "backend", backend, "backend_id", backendID, "name", info.Name)
	s.core.notifyInserted(ctx, record, nil)
	return nil
}

// applyUpdate overwrites the record's top-level metadata and resets the
// copies map to the reporting backend's entry alone; every other
// backend's copy becomes stale by absence and must be regenerated.
func (s *syncService) applyUpdate(ctx context.Context, backend, backendID string, info domain.FileInfo) error {
	record, err := s.lookup(ctx, backend, backendID)
	if err != nil {
		return err
	}
	if record == nil {
		logger.Debugw("External update for untracked backend id",
			"collection", s.core.name, "backend", backend, "backend_id", backendID)
		return nil
	}

	updated, err := s.core.store.Update(ctx, s.core.name, record.ID, func(r *domain.FileRecord) error {
		r.Name = info.Name
		r.ContentType = info.ContentType
		r.Size = info.Size
		r.UpdatedAt = info.UpdatedAt
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = time.Now().UTC()
		}
		r.ResetCopies(backend, domain.DescriptorFor(backendID, info))
		return nil
	})
	if err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			// Removed between lookup and commit.
			return nil
		}
		return fmt.Errorf("failed to apply external update: %w", err)
	}

	logger.Infow("External update applied",
		"collection", s.core.name, "record_id", record.ID, "backend", backend, "backend_id", backendID)
	s.core.notifyUpdated(ctx, updated)
	return nil
}

// applyRemove handles a copy disappearing from a backend. By default the
// whole record goes; with PartialCopyRemove only the reporting backend's
// copy entry is dropped and the record survives for regeneration, unless
// that entry was the last copy.
func (s *syncService) applyRemove(ctx context.Context, backend, backendID string) error {
	record, err := s.lookup(ctx, backend, backendID)
	if err != nil {
		return err
	}
	if record == nil {
		logger.Debugw("External remove for untracked backend id",
			"collection", s.core.name, "backend", backend, "backend_id", backendID)
		return nil
	}

	if s.core.syncOpts.PartialCopyRemove && len(record.Copies) > 1 {
		updated, err := s.core.store.Update(ctx, s.core.name, record.ID, func(r *domain.FileRecord) error {
			r.DropCopy(backend)
			return nil
		})
		if err != nil {
			if errors.Is(err, port.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to drop external copy: %w", err)
		}

		logger.Infow("External remove dropped single copy",
			"collection", s.core.name, "record_id", record.ID, "backend", backend)
		s.core.notifyUpdated(ctx, updated)
		return nil
	}

	err = s.core.store.Remove(ctx, s.core.name, record.ID)
	if errors.Is(err, port.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to apply external remove: %w", err)
	}

	logger.Infow("External remove deleted record",
		"collection", s.core.name, "record_id", record.ID, "backend", backend, "backend_id", backendID)
	s.core.notifyRemoved(ctx, record)
	return nil
}

// lookup finds the record tracking a backend id, nil when untracked.
func (s *syncService) lookup(ctx context.Context, backend, backendID string) (*domain.FileRecord, error) {
	sel := port.Selector{fmt.Sprintf("copies.%s.backend_id", backend): backendID}
	record, err := s.core.store.FindOne(ctx, s.core.name, sel)
	if errors.Is(err, port.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up backend id %s: %w", backendID, err)
	}
	return record, nil
}

// sniffContentType detects the content type from the stream head and
// returns a reader that still yields the full content.
func sniffContentType(content io.Reader) (string, io.Reader) {
	head := make([]byte, sniffLen)
	n, _ := io.ReadFull(content, head)
	head = head[:n]

	contentType := http.DetectContentType(head)
	return contentType, io.MultiReader(bytes.NewReader(head), content)
}

// backendBridge binds one backend's event stream to the sync use-case.
// One bridge exists per backend; the backend invokes it through the
// closed SyncHandler interface.
type backendBridge struct {
	core    *Collection
	backend string
}

// Ensure backendBridge implements port.SyncHandler.
var _ port.SyncHandler = (*backendBridge)(nil)

// OnInsert translates an external insert event into a tracked record.
func (b *backendBridge) OnInsert(ctx context.Context, backendID string, info domain.FileInfo, content io.Reader) error {
	return b.core.syncUseCase.applyInsert(ctx, b.backend, backendID, info, content)
}

// OnUpdate translates an external update event into a record rewrite.
func (b *backendBridge) OnUpdate(ctx context.Context, backendID string, info domain.FileInfo) error {
	return b.core.syncUseCase.applyUpdate(ctx, b.backend, backendID, info)
}

// OnRemove translates an external remove event into record removal.
func (b *backendBridge) OnRemove(ctx context.Context, backendID string) error {
	return b.core.syncUseCase.applyRemove(ctx, b.backend, backendID)
}
