package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/anthanhphan/gosdk/logger"

	"github.com/collectfs/collectfs/internal/domain"
	"github.com/collectfs/collectfs/internal/port"
)

// readService handles lookups and byte streaming. Fetch and download
// authorization are tracked separately from the mutation kinds.
type readService struct {
	core *Collection
}

// newReadService creates the read use-case service.
func newReadService(core *Collection) *readService {
	return &readService{core: core}
}

// findID returns the record with the given id after a fetch check.
func (s *readService) findID(ctx context.Context, id string) (*domain.FileRecord, error) {
	record, err := s.core.store.Get(ctx, s.core.name, id)
	if err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load record %s: %w", id, err)
	}

	if err := s.core.access.Authorize(ctx, OpFetch, record); err != nil {
		return nil, err
	}
	return record, nil
}

// findOne returns one record matching the selector after a fetch check.
func (s *readService) findOne(ctx context.Context, sel port.Selector) (*domain.FileRecord, error) {
	record, err := s.core.store.FindOne(ctx, s.core.name, sel)
	if err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find record: %w", err)
	}

	if err := s.core.access.Authorize(ctx, OpFetch, record); err != nil {
		return nil, err
	}
	return record, nil
}

// find returns all records matching the selector. The fetch check runs
// once at collection level before the query.
func (s *readService) find(ctx context.Context, sel port.Selector) ([]*domain.FileRecord, error) {
	if err := s.core.access.Authorize(ctx, OpFetch, nil); err != nil {
		return nil, err
	}

	records, err := s.core.store.Find(ctx, s.core.name, sel)
	if err != nil {
		return nil, fmt.Errorf("failed to find records: %w", err)
	}
	return records, nil
}

// download streams the file's bytes from the first configured backend
// holding a current copy.
func (s *readService) download(ctx context.Context, id string, w io.Writer) (int64, error) {
	record, err := s.core.store.Get(ctx, s.core.name, id)
	if err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to load record %s: %w", id, err)
	}

	if err := s.core.access.Authorize(ctx, OpDownload, record); err != nil {
		return 0, err
	}

	backend, copyDesc, ok := s.pickSource(record)
	if !ok {
		return 0, fmt.Errorf("record %s: %w", id, ErrNoCopy)
	}

	adapter, _ := s.core.Adapter(backend)
	content, err := adapter.Retrieve(ctx, copyDesc.BackendID)
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve %s from backend %s: %w", copyDesc.BackendID, backend, err)
	}
	defer func() { _ = content.Close() }()

	buffer := s.core.pool.Get().(*[]byte)
	defer s.core.pool.Put(buffer)

	written, err := io.CopyBuffer(w, content, *buffer)
	if err != nil {
		return written, fmt.Errorf("failed to stream record %s: %w", id, err)
	}

	logger.Debugw("Download served",
		"collection", s.core.name, "record_id", id, "backend", backend, "bytes", written)
	return written, nil
}

// pickSource selects the first backend in placement order with a copy.
func (s *readService) pickSource(record *domain.FileRecord) (string, domain.CopyDescriptor, bool) {
	for _, backend := range s.core.backends {
		if copyDesc, ok := record.CopyFor(backend); ok {
			return backend, copyDesc, true
		}
	}
	return "", domain.CopyDescriptor{}, false
}
