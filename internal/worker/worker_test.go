package worker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/collectfs/collectfs/internal/adapter/outbound/memback"
	"github.com/collectfs/collectfs/internal/adapter/outbound/memstore"
	"github.com/collectfs/collectfs/internal/domain"
	"github.com/collectfs/collectfs/internal/port"
	"github.com/collectfs/collectfs/internal/service"
	"github.com/collectfs/collectfs/pkg/resilience"
)

// flakyBackend fails a fixed number of stores before behaving.
type flakyBackend struct {
	*memback.Backend

	mu        sync.Mutex
	remaining int
}

func (f *flakyBackend) Store(ctx context.Context, key string, content io.Reader) (string, error) {
	f.mu.Lock()
	fail := f.remaining > 0
	if fail {
		f.remaining--
	}
	f.mu.Unlock()

	if fail {
		return "", errors.New("backend unavailable")
	}
	return f.Backend.Store(ctx, key, content)
}

func newTestCollection(t *testing.T, adapters ...port.StorageAdapter) *service.Collection {
	t.Helper()

	collection, err := service.New("photos", service.Config{
		Store:    memstore.New(),
		Adapters: adapters,
		Access:   service.NewAccessRules().AllowAll(),
	})
	if err != nil {
		t.Fatalf("failed to construct collection: %v", err)
	}
	return collection
}

func newTestWorker(t *testing.T, registry *service.Registry, cfg Config) *FileWorker {
	t.Helper()

	if cfg.SpoolDir == "" {
		cfg.SpoolDir = t.TempDir()
	}
	if cfg.Backoff.Base == 0 {
		cfg.Backoff = resilience.Backoff{Base: time.Millisecond, Max: 5 * time.Millisecond, Factor: 2}
	}

	w, err := New(registry, cfg)
	if err != nil {
		t.Fatalf("failed to construct worker: %v", err)
	}
	return w
}

func waitFor(t *testing.T, what string, fn func() bool) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestWorkerReplicatesInsertToAllBackends(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	disk := memback.New("disk")
	mirror := memback.New("mirror")
	collection := newTestCollection(t, disk, mirror)

	registry := service.NewRegistry()
	registry.Register(collection)

	spoolDir := t.TempDir()
	w := newTestWorker(t, registry, Config{SpoolDir: spoolDir})
	w.Start(ctx)
	defer w.Close()
	collection.Observe(w)

	record, err := collection.Insert(ctx, domain.FileInfo{Name: "a.png", ContentType: "image/png", Size: 4},
		bytes.NewReader([]byte("pngs")))
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if got := record.State(collection.Backends()); got != domain.ReplicationPending {
		t.Fatalf("expected pending record at insert time, got %s", got)
	}

	waitFor(t, "full replication", func() bool {
		current, err := collection.Record(ctx, record.ID)
		return err == nil && current.State(collection.Backends()) == domain.ReplicationComplete
	})

	current, err := collection.Record(ctx, record.ID)
	if err != nil {
		t.Fatalf("record read failed: %v", err)
	}
	key := current.StorageKey()
	if !disk.Has(key) || !mirror.Has(key) {
		t.Fatalf("expected bytes on both backends under %s", key)
	}
	for _, backend := range collection.Backends() {
		copyDesc, ok := current.CopyFor(backend)
		if !ok {
			t.Fatalf("expected copy descriptor for %s", backend)
		}
		if copyDesc.BackendID != key {
			t.Fatalf("expected backend id %s for %s, got %s", key, backend, copyDesc.BackendID)
		}
	}

	waitFor(t, "spool cleanup", func() bool {
		_, err := os.Stat(filepath.Join(spoolDir, "photos", record.ID))
		return os.IsNotExist(err)
	})
}

func TestWorkerDeletesBackendBytesOnRemove(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	disk := memback.New("disk")
	mirror := memback.New("mirror")
	collection := newTestCollection(t, disk, mirror)

	registry := service.NewRegistry()
	registry.Register(collection)

	w := newTestWorker(t, registry, Config{})
	w.Start(ctx)
	defer w.Close()
	collection.Observe(w)

	record, err := collection.Insert(ctx, domain.FileInfo{Name: "b.png", ContentType: "image/png", Size: 4},
		bytes.NewReader([]byte("pngs")))
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	waitFor(t, "full replication", func() bool {
		current, err := collection.Record(ctx, record.ID)
		return err == nil && current.State(collection.Backends()) == domain.ReplicationComplete
	})

	removed, err := collection.Remove(ctx, port.Selector{"name": "b.png"})
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 record removed, got %d", removed)
	}

	waitFor(t, "backend byte cleanup", func() bool {
		return disk.Len() == 0 && mirror.Len() == 0
	})
}

func TestWorkerPullsFromReportingBackend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	disk := memback.New("disk")
	mirror := memback.New("mirror")
	collection := newTestCollection(t, disk, mirror)

	registry := service.NewRegistry()
	registry.Register(collection)

	w := newTestWorker(t, registry, Config{})
	w.Start(ctx)
	defer w.Close()
	collection.Observe(w)

	if err := collection.StartSync(ctx); err != nil {
		t.Fatalf("start sync failed: %v", err)
	}

	info := domain.FileInfo{Name: "ext.png", ContentType: "image/png", Size: 8}
	if err := disk.EmitInsert(ctx, "ext.png", info, []byte("external")); err != nil {
		t.Fatalf("emit insert failed: %v", err)
	}

	record, err := collection.FindOne(ctx, port.Selector{"copies.disk.backend_id": "ext.png"})
	if err != nil {
		t.Fatalf("expected record tracking the external file: %v", err)
	}

	waitFor(t, "mirror catch-up", func() bool {
		current, err := collection.Record(ctx, record.ID)
		return err == nil && current.State(collection.Backends()) == domain.ReplicationComplete
	})

	current, err := collection.Record(ctx, record.ID)
	if err != nil {
		t.Fatalf("record read failed: %v", err)
	}
	mirrorCopy, ok := current.CopyFor("mirror")
	if !ok {
		t.Fatalf("expected mirror copy descriptor")
	}
	if !mirror.Has(mirrorCopy.BackendID) {
		t.Fatalf("expected mirrored bytes under %s", mirrorCopy.BackendID)
	}

	reader, err := mirror.Retrieve(ctx, mirrorCopy.BackendID)
	if err != nil {
		t.Fatalf("mirror retrieve failed: %v", err)
	}
	defer reader.Close()
	data, _ := io.ReadAll(reader)
	if string(data) != "external" {
		t.Fatalf("expected mirrored content to match source, got %q", data)
	}
}

func TestWorkerRetriesFlakyBackend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	disk := memback.New("disk")
	flaky := &flakyBackend{Backend: memback.New("flaky"), remaining: 2}
	collection := newTestCollection(t, disk, flaky)

	registry := service.NewRegistry()
	registry.Register(collection)

	w := newTestWorker(t, registry, Config{MaxAttempts: 3, BreakerThreshold: 10})
	w.Start(ctx)
	defer w.Close()
	collection.Observe(w)

	record, err := collection.Insert(ctx, domain.FileInfo{Name: "c.png", ContentType: "image/png", Size: 4},
		bytes.NewReader([]byte("pngs")))
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	waitFor(t, "replication despite failures", func() bool {
		current, err := collection.Record(ctx, record.ID)
		return err == nil && current.State(collection.Backends()) == domain.ReplicationComplete
	})
}

func TestWorkerSweepRequeuesPartialRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	disk := memback.New("disk")
	mirror := memback.New("mirror")
	collection := newTestCollection(t, disk, mirror)

	registry := service.NewRegistry()
	registry.Register(collection)

	// External insert lands before the worker observes anything, leaving
	// a partial record only the sweep can pick up.
	if err := collection.StartSync(ctx); err != nil {
		t.Fatalf("start sync failed: %v", err)
	}
	info := domain.FileInfo{Name: "stale.png", ContentType: "image/png", Size: 5}
	if err := disk.EmitInsert(ctx, "stale.png", info, []byte("stale")); err != nil {
		t.Fatalf("emit insert failed: %v", err)
	}

	record, err := collection.FindOne(ctx, port.Selector{"copies.disk.backend_id": "stale.png"})
	if err != nil {
		t.Fatalf("expected record tracking the external file: %v", err)
	}
	if got := record.State(collection.Backends()); got != domain.ReplicationPartial {
		t.Fatalf("expected partial record before sweep, got %s", got)
	}

	w := newTestWorker(t, registry, Config{SweepInterval: 25 * time.Millisecond})
	w.Start(ctx)
	defer w.Close()

	waitFor(t, "sweep-driven catch-up", func() bool {
		current, err := collection.Record(ctx, record.ID)
		return err == nil && current.State(collection.Backends()) == domain.ReplicationComplete
	})
}
