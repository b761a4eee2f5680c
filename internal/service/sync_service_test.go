package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/collectfs/collectfs/internal/adapter/outbound/memback"
	"github.com/collectfs/collectfs/internal/domain"
	"github.com/collectfs/collectfs/internal/port"
)

func TestExternalInsertTracksSingleCopy(t *testing.T) {
	local := memback.New("local")
	s3 := memback.New("s3")
	collection := newTestCollection(t, Config{}, s3, local)
	ctx := context.Background()

	if err := collection.StartSync(ctx); err != nil {
		t.Fatalf("start sync failed: %v", err)
	}

	info := domain.FileInfo{Name: "a.png", ContentType: "image/png", Size: 4, UpdatedAt: time.Now().UTC()}
	if err := s3.EmitInsert(ctx, "s3-key-1", info, []byte("data")); err != nil {
		t.Fatalf("emit insert failed: %v", err)
	}

	record, err := collection.FindOne(ctx, port.Selector{"copies.s3.backend_id": "s3-key-1"})
	if err != nil {
		t.Fatalf("record not tracked: %v", err)
	}
	if len(record.Copies) != 1 {
		t.Fatalf("expected exactly one copy entry, got %v", record.Copies)
	}
	if record.Name != "a.png" || record.Size != 4 {
		t.Fatalf("top-level metadata does not mirror info: %+v", record)
	}
	if state := record.State(collection.Backends()); state != domain.ReplicationPartial {
		t.Fatalf("state = %s, want partial", state)
	}
}

func TestExternalInsertIdempotent(t *testing.T) {
	s3 := memback.New("s3")
	collection := newTestCollection(t, Config{}, s3)
	ctx := context.Background()
	_ = collection.StartSync(ctx)

	info := domain.FileInfo{Name: "a.png", Size: 4}
	_ = s3.EmitInsert(ctx, "s3-key-1", info, []byte("data"))
	_ = s3.EmitInsert(ctx, "s3-key-1", info, []byte("data"))

	records, _ := collection.Find(ctx, nil)
	if len(records) != 1 {
		t.Fatalf("replayed insert created %d records, want 1", len(records))
	}
}

func TestExternalInsertSniffsContentType(t *testing.T) {
	s3 := memback.New("s3")
	collection := newTestCollection(t, Config{}, s3)
	ctx := context.Background()
	_ = collection.StartSync(ctx)

	// PNG magic header, no content type reported by the backend.
	payload := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	if err := s3.EmitInsert(ctx, "s3-key-1", domain.FileInfo{Name: "mystery", Size: int64(len(payload))}, payload); err != nil {
		t.Fatalf("emit insert failed: %v", err)
	}

	record, err := collection.FindOne(ctx, port.Selector{"copies.s3.backend_id": "s3-key-1"})
	if err != nil {
		t.Fatalf("record not tracked: %v", err)
	}
	if record.ContentType != "image/png" {
		t.Fatalf("sniffed content type = %q, want image/png", record.ContentType)
	}
}

func TestExternalUpdateResetsCopiesAndKeepsID(t *testing.T) {
	local := memback.New("local")
	s3 := memback.New("s3")
	collection := newTestCollection(t, Config{}, s3, local)
	ctx := context.Background()
	_ = collection.StartSync(ctx)

	_ = s3.EmitInsert(ctx, "s3-key-1", domain.FileInfo{Name: "a.png", Size: 4}, []byte("data"))
	record, _ := collection.FindOne(ctx, port.Selector{"copies.s3.backend_id": "s3-key-1"})

	// The worker replicated to local in the meantime.
	_, _ = collection.CommitCopy(ctx, record.ID, "local", domain.CopyDescriptor{BackendID: "local-1", Name: "a.png", Size: 4})

	newInfo := domain.FileInfo{Name: "a-v2.png", ContentType: "image/png", Size: 9}
	if err := s3.EmitUpdate(ctx, "s3-key-1", newInfo, []byte("data-v2..")); err != nil {
		t.Fatalf("emit update failed: %v", err)
	}

	updated, err := collection.FindID(ctx, record.ID)
	if err != nil {
		t.Fatalf("record lost after external update: %v", err)
	}
	if updated.ID != record.ID {
		t.Fatalf("record id changed: %q -> %q", record.ID, updated.ID)
	}
	if updated.Name != "a-v2.png" || updated.Size != 9 {
		t.Fatalf("metadata not overwritten: %+v", updated)
	}
	if len(updated.Copies) != 1 {
		t.Fatalf("copies not reset to reporting backend: %v", updated.Copies)
	}
	if _, stale := updated.CopyFor("local"); stale {
		t.Fatalf("local copy should be stale (absent), got %v", updated.Copies)
	}
	if state := updated.State(collection.Backends()); state != domain.ReplicationPartial {
		t.Fatalf("state = %s, want partial", state)
	}
}

func TestExternalEventsForUnknownBackendIDAreNoOps(t *testing.T) {
	s3 := memback.New("s3")
	collection := newTestCollection(t, Config{}, s3)
	ctx := context.Background()
	_ = collection.StartSync(ctx)

	if err := s3.EmitUpdate(ctx, "never-seen", domain.FileInfo{Name: "x"}, nil); err != nil {
		t.Fatalf("update miss must be swallowed, got %v", err)
	}
	if err := s3.EmitRemove(ctx, "never-seen"); err != nil {
		t.Fatalf("remove miss must be swallowed, got %v", err)
	}

	records, _ := collection.Find(ctx, nil)
	if len(records) != 0 {
		t.Fatalf("no-op events created records: %d", len(records))
	}
}

func TestExternalRemoveDeletesFullRecord(t *testing.T) {
	local := memback.New("local")
	s3 := memback.New("s3")
	collection := newTestCollection(t, Config{}, s3, local)
	observer := &recordingObserver{}
	collection.Observe(observer)
	ctx := context.Background()
	_ = collection.StartSync(ctx)

	_ = s3.EmitInsert(ctx, "s3-key-1", domain.FileInfo{Name: "a.png", Size: 4}, []byte("data"))
	record, _ := collection.FindOne(ctx, port.Selector{"copies.s3.backend_id": "s3-key-1"})
	_, _ = collection.CommitCopy(ctx, record.ID, "local", domain.CopyDescriptor{BackendID: "local-1"})

	if err := s3.EmitRemove(ctx, "s3-key-1"); err != nil {
		t.Fatalf("emit remove failed: %v", err)
	}

	if _, err := collection.FindID(ctx, record.ID); !errors.Is(err, port.ErrRecordNotFound) {
		t.Fatalf("full record must be deleted, got %v", err)
	}

	_, _, removed := observer.counts()
	if removed != 1 {
		t.Fatalf("observer saw %d removals, want 1", removed)
	}
}

func TestExternalRemoveWithPartialCopyFlag(t *testing.T) {
	local := memback.New("local")
	s3 := memback.New("s3")
	collection := newTestCollection(t, Config{Sync: SyncOptions{PartialCopyRemove: true}}, s3, local)
	ctx := context.Background()
	_ = collection.StartSync(ctx)

	_ = s3.EmitInsert(ctx, "s3-key-1", domain.FileInfo{Name: "a.png", Size: 4}, []byte("data"))
	record, _ := collection.FindOne(ctx, port.Selector{"copies.s3.backend_id": "s3-key-1"})
	_, _ = collection.CommitCopy(ctx, record.ID, "local", domain.CopyDescriptor{BackendID: "local-1"})

	if err := s3.EmitRemove(ctx, "s3-key-1"); err != nil {
		t.Fatalf("emit remove failed: %v", err)
	}

	survivor, err := collection.FindID(ctx, record.ID)
	if err != nil {
		t.Fatalf("record must survive partial remove: %v", err)
	}
	if _, gone := survivor.CopyFor("s3"); gone {
		t.Fatalf("reporting backend's copy entry must be dropped: %v", survivor.Copies)
	}
	if _, kept := survivor.CopyFor("local"); !kept {
		t.Fatalf("other backend's copy entry must survive: %v", survivor.Copies)
	}

	// Losing the last copy still deletes the record.
	localBridge, _ := collection.SyncHandlerFor("local")
	if err := localBridge.OnRemove(ctx, "local-1"); err != nil {
		t.Fatalf("last-copy remove failed: %v", err)
	}
	if _, err := collection.FindID(ctx, record.ID); !errors.Is(err, port.ErrRecordNotFound) {
		t.Fatalf("record with no copies left must be deleted, got %v", err)
	}
}

func TestTwoBackendStalenessScenario(t *testing.T) {
	local := memback.New("local")
	s3 := memback.New("s3")
	collection := newTestCollection(t, Config{}, s3, local)
	ctx := context.Background()
	_ = collection.StartSync(ctx)

	// External insert from s3 creates copies = {s3}.
	_ = s3.EmitInsert(ctx, "s3-key-1", domain.FileInfo{Name: "a.png", Size: 4}, []byte("data"))
	record, err := collection.FindOne(ctx, port.Selector{"copies.s3.backend_id": "s3-key-1"})
	if err != nil {
		t.Fatalf("insert not tracked: %v", err)
	}
	if _, ok := record.CopyFor("s3"); !ok || len(record.Copies) != 1 {
		t.Fatalf("copies after insert = %v, want only s3", record.Copies)
	}

	// Subsequent s3 update resets copies to the new s3 descriptor.
	_ = s3.EmitUpdate(ctx, "s3-key-1", domain.FileInfo{Name: "a.png", Size: 8}, []byte("data-new"))
	updated, _ := collection.FindID(ctx, record.ID)
	copyDesc, ok := updated.CopyFor("s3")
	if !ok || len(updated.Copies) != 1 {
		t.Fatalf("copies after update = %v, want only s3", updated.Copies)
	}
	if copyDesc.Size != 8 {
		t.Fatalf("descriptor not refreshed: %+v", copyDesc)
	}
	if _, stale := updated.CopyFor("local"); stale {
		t.Fatalf("local must be implicitly stale via absence")
	}
}
