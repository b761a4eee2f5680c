package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/anthanhphan/gosdk/logger"

	"github.com/collectfs/collectfs/internal/domain"
	"github.com/collectfs/collectfs/internal/port"
	"github.com/collectfs/collectfs/internal/service"
	"github.com/collectfs/collectfs/pkg/resilience"
)

// Config tunes the replication worker.
type Config struct {
	// Lanes is the number of serial work lanes. Jobs for one record
	// always land on the same lane, so its replication steps never
	// interleave.
	Lanes int

	// QueueSize bounds each lane's backlog.
	QueueSize int

	// MaxAttempts bounds write attempts per backend before the job is
	// abandoned and left for the sweep.
	MaxAttempts int

	// Backoff shapes the delay between attempts.
	Backoff resilience.Backoff

	// SweepInterval is the period between pending-record scans. Zero or
	// negative disables the sweep.
	SweepInterval time.Duration

	// SpoolDir is where local insert bytes are staged until every
	// backend holds a copy.
	SpoolDir string

	// BreakerThreshold is the consecutive-failure count that trips a
	// backend's breaker open.
	BreakerThreshold int

	// BreakerOpenFor is how long a tripped breaker rejects writes.
	BreakerOpenFor time.Duration
}

func (c Config) withDefaults() Config {
	if c.Lanes <= 0 {
		c.Lanes = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.SpoolDir == "" {
		c.SpoolDir = filepath.Join(os.TempDir(), "collectfs-spool")
	}
	return c
}

// FileWorker drives record state toward full replication: it observes
// committed record mutations, copies file bytes to backends that are
// missing them, and deletes backend bytes after record removal. A
// periodic sweep requeues records stuck short of full replication.
type FileWorker struct {
	registry *service.Registry
	cfg      Config
	pool     *resilience.LanePool
	spool    *spool

	breakerMu sync.Mutex
	breakers  map[string]*resilience.Breaker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Ensure FileWorker implements port.CollectionObserver.
var _ port.CollectionObserver = (*FileWorker)(nil)

// New creates the worker with its spool directory and work lanes.
func New(registry *service.Registry, cfg Config) (*FileWorker, error) {
	if registry == nil {
		return nil, fmt.Errorf("worker requires a collection registry")
	}

	cfg = cfg.withDefaults()
	sp, err := newSpool(cfg.SpoolDir)
	if err != nil {
		return nil, err
	}

	return &FileWorker{
		registry: registry,
		cfg:      cfg,
		pool:     resilience.NewLanePool(cfg.Lanes, cfg.QueueSize),
		spool:    sp,
		breakers: map[string]*resilience.Breaker{},
	}, nil
}

// Start launches the periodic sweep and binds the worker's jobs to the
// given lifecycle context. Call Start before registering the worker as
// a collection observer.
func (w *FileWorker) Start(ctx context.Context) {
	w.ctx, w.cancel = context.WithCancel(ctx)

	if w.cfg.SweepInterval > 0 {
		w.wg.Add(1)
		go w.sweepLoop(w.ctx, w.cfg.SweepInterval)
	}

	logger.Infow("Replication worker started",
		"lanes", w.cfg.Lanes, "queue_size", w.cfg.QueueSize,
		"sweep_interval", w.cfg.SweepInterval, "spool_dir", w.cfg.SpoolDir)
}

// Close stops the sweep, drains queued jobs, and waits for them.
func (w *FileWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.pool.Close()
	w.pool.Wait()
	w.wg.Wait()
}

// RecordInserted stages local insert bytes in the spool and queues
// replication. Sync-origin inserts arrive without content; their bytes
// are pulled from the reporting backend instead.
func (w *FileWorker) RecordInserted(ctx context.Context, collection string, record *domain.FileRecord, content io.Reader) {
	if content != nil {
		size, err := w.spool.put(collection, record.ID, content)
		if err != nil {
			logger.Errorw("Failed to spool inserted content",
				"collection", collection, "record_id", record.ID, "error", err)
		} else {
			logger.Debugw("Insert content spooled",
				"collection", collection, "record_id", record.ID, "bytes", size)
		}
	}
	w.enqueueReplicate(collection, record.ID)
}

// RecordUpdated queues replication so backends catch up with whatever
// the update changed, including copies reset by an external update.
func (w *FileWorker) RecordUpdated(ctx context.Context, collection string, record *domain.FileRecord) {
	w.enqueueReplicate(collection, record.ID)
}

// RecordRemoved queues deletion of the removed record's backend bytes.
func (w *FileWorker) RecordRemoved(ctx context.Context, collection string, record *domain.FileRecord) {
	// The record is gone from the store, so work from a snapshot.
	snapshot := record.Clone()
	w.submit(snapshot.ID, func() {
		w.runRemoveBytes(collection, snapshot)
	})
}

func (w *FileWorker) enqueueReplicate(collection, recordID string) {
	w.submit(recordID, func() {
		w.runReplicate(collection, recordID)
	})
}

func (w *FileWorker) submit(key string, job func()) {
	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := w.pool.Submit(ctx, key, job); err != nil {
		logger.Warnw("Worker rejected job", "key", key, "error", err)
	}
}

// runReplicate copies the record's bytes to every backend missing one.
// The record is re-read so the job acts on current state, not on the
// snapshot that queued it.
func (w *FileWorker) runReplicate(collection, recordID string) {
	col, ok := w.registry.Get(collection)
	if !ok {
		logger.Warnw("Replication job for unknown collection", "collection", collection)
		return
	}

	record, err := col.Record(w.ctx, recordID)
	if err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			logger.Debugw("Record removed before replication", "collection", collection, "record_id", recordID)
			return
		}
		logger.Warnw("Failed to read record for replication",
			"collection", collection, "record_id", recordID, "error", err)
		return
	}

	missing := record.MissingBackends(col.Backends())
	if len(missing) == 0 {
		w.finishSpool(collection, recordID)
		return
	}

	open, source := w.sourceFor(col, record)
	if open == nil {
		// Metadata-only records have no bytes anywhere and stay pending.
		logger.Debugw("No replication source for record",
			"collection", collection, "record_id", recordID, "missing", missing)
		return
	}

	for _, backend := range missing {
		if err := w.replicateTo(col, record, backend, open); err != nil {
			replicationFailuresTotal.WithLabelValues(collection, backend).Inc()
			logger.Warnw("Replication to backend failed",
				"collection", collection, "record_id", recordID,
				"backend", backend, "source", source, "error", err)
		}
	}

	record, err = col.Record(w.ctx, recordID)
	if err == nil && record.State(col.Backends()) == domain.ReplicationComplete {
		w.finishSpool(collection, recordID)
	}
}

// sourceFor picks where to read the record's bytes from: the first
// backend in placement order holding a current copy, else the spool.
func (w *FileWorker) sourceFor(col *service.Collection, record *domain.FileRecord) (func() (io.ReadCloser, error), string) {
	for _, backend := range col.Backends() {
		copyDesc, ok := record.CopyFor(backend)
		if !ok {
			continue
		}
		adapter, ok := col.Adapter(backend)
		if !ok {
			continue
		}
		backendID := copyDesc.BackendID
		return func() (io.ReadCloser, error) {
			return adapter.Retrieve(w.ctx, backendID)
		}, "backend:" + backend
	}

	if w.spool.has(col.Name(), record.ID) {
		collection, recordID := col.Name(), record.ID
		return func() (io.ReadCloser, error) {
			return w.spool.open(collection, recordID)
		}, "spool"
	}

	return nil, ""
}

// replicateTo writes the record's bytes to one backend and commits the
// resulting copy descriptor.
func (w *FileWorker) replicateTo(col *service.Collection, record *domain.FileRecord, backend string, open func() (io.ReadCloser, error)) error {
	adapter, ok := col.Adapter(backend)
	if !ok {
		return fmt.Errorf("unknown backend %s", backend)
	}

	collection := col.Name()
	breaker := w.breakerFor(collection, backend)

	var backendID string
	err := w.executeWithRetries(breaker, func(ctx context.Context) error {
		replicationAttemptsTotal.WithLabelValues(collection, backend).Inc()
		start := time.Now()

		src, err := open()
		if err != nil {
			return fmt.Errorf("failed to open replication source: %w", err)
		}
		defer src.Close()

		id, err := adapter.Store(ctx, record.StorageKey(), src)
		if err != nil {
			return fmt.Errorf("failed to store replica: %w", err)
		}

		backendID = id
		replicationDuration.WithLabelValues(collection, backend).Observe(time.Since(start).Seconds())
		return nil
	})
	if err != nil {
		return err
	}

	_, err = col.CommitCopy(w.ctx, record.ID, backend, domain.DescriptorFor(backendID, record.Info()))
	if err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			// Removed mid-replication. The bytes just written belong to
			// no record, so take them back out.
			_ = adapter.Remove(w.ctx, backendID)
			return nil
		}
		return err
	}

	logger.Infow("Replica written",
		"collection", collection, "record_id", record.ID, "backend", backend, "backend_id", backendID)
	return nil
}

// runRemoveBytes deletes the removed record's bytes from every backend
// that held a copy. Backend removes are idempotent, so a retry after a
// partial failure is safe.
func (w *FileWorker) runRemoveBytes(collection string, snapshot *domain.FileRecord) {
	col, ok := w.registry.Get(collection)
	if !ok {
		logger.Warnw("Removal job for unknown collection", "collection", collection)
		return
	}

	for backend, copyDesc := range snapshot.Copies {
		adapter, ok := col.Adapter(backend)
		if !ok {
			continue
		}

		breaker := w.breakerFor(collection, backend)
		backendID := copyDesc.BackendID
		err := w.executeWithRetries(breaker, func(ctx context.Context) error {
			return adapter.Remove(ctx, backendID)
		})
		if err != nil {
			logger.Warnw("Failed to delete backend copy, bytes left behind",
				"collection", collection, "record_id", snapshot.ID,
				"backend", backend, "backend_id", backendID, "error", err)
			continue
		}

		backendRemovalsTotal.WithLabelValues(collection, backend).Inc()
		logger.Debugw("Backend copy deleted",
			"collection", collection, "record_id", snapshot.ID, "backend", backend)
	}

	w.finishSpool(collection, snapshot.ID)
}

// executeWithRetries runs fn under the breaker with bounded attempts.
// An open breaker's retry-after extends the backoff delay.
func (w *FileWorker) executeWithRetries(breaker *resilience.Breaker, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < w.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := w.cfg.Backoff.Delay(attempt - 1)
			if retryAfter, open := resilience.OpenRetryAfter(lastErr); open && retryAfter > wait {
				wait = retryAfter
			}
			if err := resilience.SleepWithContext(w.ctx, wait); err != nil {
				return err
			}
		}

		if lastErr = breaker.Execute(w.ctx, fn); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (w *FileWorker) breakerFor(collection, backend string) *resilience.Breaker {
	key := collection + "/" + backend

	w.breakerMu.Lock()
	defer w.breakerMu.Unlock()

	if b, ok := w.breakers[key]; ok {
		return b
	}
	b := resilience.NewBreaker(resilience.BreakerConfig{
		Name:             key,
		FailureThreshold: w.cfg.BreakerThreshold,
		OpenFor:          w.cfg.BreakerOpenFor,
	})
	w.breakers[key] = b
	return b
}

func (w *FileWorker) finishSpool(collection, recordID string) {
	if err := w.spool.remove(collection, recordID); err != nil {
		logger.Warnw("Failed to clean spool file",
			"collection", collection, "record_id", recordID, "error", err)
	}
}

// sweepLoop periodically requeues records stuck short of full
// replication until the context is canceled.
func (w *FileWorker) sweepLoop(ctx context.Context, interval time.Duration) {
	defer w.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runSweep(ctx)
		}
	}
}

// runSweep scans every collection for records missing backend copies.
func (w *FileWorker) runSweep(ctx context.Context) {
	for _, col := range w.registry.All() {
		pending, err := col.PendingRecords(ctx)
		if err != nil {
			logger.Warnw("Sweep: failed to list pending records", "collection", col.Name(), "error", err)
			continue
		}
		if len(pending) == 0 {
			continue
		}

		logger.Debugw("Sweep: requeueing pending records", "collection", col.Name(), "count", len(pending))
		for _, record := range pending {
			sweepRequeuedTotal.WithLabelValues(col.Name()).Inc()
			w.enqueueReplicate(col.Name(), record.ID)
		}
	}
}
