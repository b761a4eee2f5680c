package redistore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/collectfs/collectfs/internal/domain"
	"github.com/collectfs/collectfs/internal/port"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, "test")
}

func TestInsertGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := domain.NewFileRecord(domain.FileInfo{Name: "a.png", ContentType: "image/png", Size: 42})
	record.SetCopy("s3", domain.CopyDescriptor{BackendID: "s3-1", Name: "a.png", Size: 42})

	id, err := store.Insert(ctx, "photos", record)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := store.Get(ctx, "photos", id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "a.png" || got.Size != 42 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if copyDesc, ok := got.CopyFor("s3"); !ok || copyDesc.BackendID != "s3-1" {
		t.Fatalf("copy descriptor lost: %+v", got.Copies)
	}
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Get(context.Background(), "photos", "nope"); !errors.Is(err, port.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestFindBySelector(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	one := domain.NewFileRecord(domain.FileInfo{Name: "a.png"})
	one.SetCopy("s3", domain.CopyDescriptor{BackendID: "s3-1"})
	_, _ = store.Insert(ctx, "photos", one)
	_, _ = store.Insert(ctx, "photos", domain.NewFileRecord(domain.FileInfo{Name: "b.png"}))

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
}

func TestUpdateCommitsAndAborts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, _ := store.Insert(ctx, "photos", domain.NewFileRecord(domain.FileInfo{Name: "a.png", Size: 1}))

	updated, err := store.Update(ctx, "photos", id, func(r *domain.FileRecord) error {
		r.Size = 2
		r.SetCopy("local", domain.CopyDescriptor{BackendID: "local-1"})
		return nil
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Size != 2 || updated.ID != id {
		t.Fatalf("unexpected committed record: %+v", updated)
	}

	boom := errors.New("rejected")
	if _, err := store.Update(ctx, "photos", id, func(r *domain.FileRecord) error {
		r.Size = 999
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected mutate error back, got %v", err)
	}

	got, _ := store.Get(ctx, "photos", id)
	if got.Size != 2 {
		t.Fatalf("aborted update leaked: size = %d", got.Size)
	}
}

func TestUpdateConcurrentWriters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, _ := store.Insert(ctx, "photos", domain.NewFileRecord(domain.FileInfo{Name: "a.png", Size: 0}))

	const writers = 10
	var wg sync.WaitGroup
	wg.Add(writers)
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "photos", id, func(r *domain.FileRecord) error {
				r.Size++
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent update failed: %v", err)
		}
	}

	got, _ := store.Get(ctx, "photos", id)
	if got.Size != writers {
		t.Fatalf("lost updates: size = %d, want %d", got.Size, writers)
	}
}

func TestRemove(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, _ := store.Insert(ctx, "photos", domain.NewFileRecord(domain.FileInfo{Name: "a.png"}))

	if err := store.Remove(ctx, "photos", id); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := store.Remove(ctx, "photos", id); !errors.Is(err, port.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}

	all, _ := store.Find(ctx, "photos", nil)
	if len(all) != 0 {
		t.Fatalf("index still lists removed record")
	}
}
