package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/collectfs/collectfs/internal/domain"
	"github.com/collectfs/collectfs/internal/port"
)

func TestInsertAssignsID(t *testing.T) {
	store := New()
	ctx := context.Background()

	record := domain.NewFileRecord(domain.FileInfo{Name: "a.png", Size: 10})
	id, err := store.Insert(ctx, "photos", record)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if id == "" || record.ID != id {
		t.Fatalf("expected assigned id on record, got %q / %q", id, record.ID)
	}

	got, err := store.Get(ctx, "photos", id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "a.png" || len(got.Copies) != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	store := New()
	ctx := context.Background()

	record := domain.NewFileRecord(domain.FileInfo{Name: "a.png"})
	id, _ := store.Insert(ctx, "photos", record)

	first, _ := store.Get(ctx, "photos", id)
	first.Name = "mutated.png"
	first.SetCopy("s3", domain.CopyDescriptor{BackendID: "x"})

	second, _ := store.Get(ctx, "photos", id)
	if second.Name != "a.png" || len(second.Copies) != 0 {
		t.Fatalf("store leaked internal state: %+v", second)
	}
}

func TestFindBySelector(t *testing.T) {
	store := New()
	ctx := context.Background()

	one := domain.NewFileRecord(domain.FileInfo{Name: "a.png"})
	one.SetCopy("s3", domain.CopyDescriptor{BackendID: "s3-1"})
	_, _ = store.Insert(ctx, "photos", one)

	two := domain.NewFileRecord(domain.FileInfo{Name: "b.png"})
	_, _ = store.Insert(ctx, "photos", two)
	_, _ = store.Insert(ctx, "docs", domain.NewFileRecord(domain.FileInfo{Name: "a.png"}))

	all, err := store.Find(ctx, "photos", nil)
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 records, got %d (err=%v)", len(all), err)
	}

	matched, err := store.FindOne(ctx, "photos", port.Selector{"copies.s3.backend_id": "s3-1"})
	if err != nil {
		t.Fatalf("find one failed: %v", err)
	}
	if matched.Name != "a.png" {
		t.Fatalf("wrong record matched: %+v", matched)
	}

	if _, err := store.FindOne(ctx, "photos", port.Selector{"name": "missing.png"}); !errors.Is(err, port.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestUpdateAtomicUnderContention(t *testing.T) {
	store := New()
	ctx := context.Background()

	record := domain.NewFileRecord(domain.FileInfo{Name: "a.png", Size: 0})
	id, _ := store.Insert(ctx, "photos", record)

	const writers = 50
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_, _ = store.Update(ctx, "photos", id, func(r *domain.FileRecord) error {
				r.Size++
				return nil
			})
		}()
	}
	wg.Wait()

	got, _ := store.Get(ctx, "photos", id)
	if got.Size != writers {
		t.Fatalf("lost updates: size = %d, want %d", got.Size, writers)
	}
}

func TestUpdateAbortsWithoutCommit(t *testing.T) {
	store := New()
	ctx := context.Background()

	record := domain.NewFileRecord(domain.FileInfo{Name: "a.png", Size: 1})
	id, _ := store.Insert(ctx, "photos", record)

	boom := errors.New("rejected")
	_, err := store.Update(ctx, "photos", id, func(r *domain.FileRecord) error {
		r.Size = 999
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutate error back, got %v", err)
	}

	got, _ := store.Get(ctx, "photos", id)
	if got.Size != 1 {
		t.Fatalf("aborted update leaked: size = %d", got.Size)
	}
}

func TestUpdatePreservesID(t *testing.T) {
	store := New()
	ctx := context.Background()

	id, _ := store.Insert(ctx, "photos", domain.NewFileRecord(domain.FileInfo{Name: "a.png"}))

	updated, err := store.Update(ctx, "photos", id, func(r *domain.FileRecord) error {
		r.ID = "forged"
		return nil
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.ID != id {
		t.Fatalf("id changed across update: %q", updated.ID)
	}
}

func TestRemove(t *testing.T) {
	store := New()
	ctx := context.Background()

	id, _ := store.Insert(ctx, "photos", domain.NewFileRecord(domain.FileInfo{Name: "a.png"}))

	if err := store.Remove(ctx, "photos", id); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := store.Remove(ctx, "photos", id); !errors.Is(err, port.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if _, err := store.Get(ctx, "photos", id); !errors.Is(err, port.ErrRecordNotFound) {
		t.Fatalf("record still present after remove")
	}
}
