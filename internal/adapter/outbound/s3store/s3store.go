package s3store

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/anthanhphan/gosdk/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/collectfs/collectfs/internal/domain"
	"github.com/collectfs/collectfs/internal/port"
	"github.com/collectfs/collectfs/pkg/resilience"
)

// suppressWindow is how long this backend's own writes and removes keep
// their bucket notifications from being reported as external changes.
const suppressWindow = 10 * time.Second

// Config tunes one S3-compatible backend.
type Config struct {
	// Name identifies the backend in collection configuration.
	Name string
	// Endpoint is the S3 host, e.g. "localhost:9000".
	Endpoint string
	// AccessKey and SecretKey authenticate against the endpoint.
	AccessKey string
	SecretKey string
	// Bucket holds the collection's objects. Created when missing.
	Bucket string
	// UseSSL selects https transport.
	UseSSL bool
}

// Backend stores file bytes in an S3-compatible object store. Object
// keys double as backend ids. Watch follows bucket notifications, so
// files written by other tools into the same bucket are reported as
// external changes.
type Backend struct {
	name   string
	bucket string
	client *minio.Client

	suppressMu sync.Mutex
	suppressed map[string]time.Time
}

// Ensure Backend implements port.StorageAdapter.
var _ port.StorageAdapter = (*Backend)(nil)

// New connects to the endpoint and makes sure the bucket exists.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("s3 backend requires a name")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 backend %s requires a bucket", cfg.Name)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Infow("Bucket created", "backend", cfg.Name, "bucket", cfg.Bucket)
	}

	return &Backend{
		name:       cfg.Name,
		bucket:     cfg.Bucket,
		client:     client,
		suppressed: map[string]time.Time{},
	}, nil
}

// Name returns the backend's configured identity.
func (b *Backend) Name() string {
	return b.name
}

// Store uploads the content under the storage key, which becomes the
// backend id. Unknown length streams as multipart.
func (b *Backend) Store(ctx context.Context, key string, content io.Reader) (string, error) {
	b.suppress(key)

	if content == nil {
		content = strings.NewReader("")
	}
	_, err := b.client.PutObject(ctx, b.bucket, key, content, -1, minio.PutObjectOptions{
		ContentType: mime.TypeByExtension(path.Ext(key)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return key, nil
}

// Retrieve opens the object for reading. A stat runs first so missing
// objects fail here instead of on the first read.
func (b *Backend) Retrieve(ctx context.Context, backendID string) (io.ReadCloser, error) {
	if _, err := b.client.StatObject(ctx, b.bucket, backendID, minio.StatObjectOptions{}); err != nil {
		return nil, fmt.Errorf("failed to stat object %s: %w", backendID, err)
	}

	obj, err := b.client.GetObject(ctx, b.bucket, backendID, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open object %s: %w", backendID, err)
	}
	return obj, nil
}

// Remove deletes the object. Removing an absent object succeeds.
func (b *Backend) Remove(ctx context.Context, backendID string) error {
	b.suppress(backendID)

	if err := b.client.RemoveObject(ctx, b.bucket, backendID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", backendID, err)
	}
	return nil
}

// Watch follows bucket notifications until the context is canceled.
// Existing objects are reported as inserts first; downstream tracking
// no-ops the ones it already knows.
func (b *Backend) Watch(ctx context.Context, handler port.SyncHandler) error {
	session := &watchSession{
		backend: b,
		ctx:     ctx,
		handler: handler,
		known:   map[string]struct{}{},
	}

	go session.run()
	return nil
}

func (b *Backend) suppress(key string) {
	now := time.Now()

	b.suppressMu.Lock()
	defer b.suppressMu.Unlock()

	for k, at := range b.suppressed {
		if now.Sub(at) > suppressWindow {
			delete(b.suppressed, k)
		}
	}
	b.suppressed[key] = now
}

func (b *Backend) isSuppressed(key string) bool {
	b.suppressMu.Lock()
	defer b.suppressMu.Unlock()

	at, ok := b.suppressed[key]
	return ok && time.Since(at) <= suppressWindow
}

// watchSession tracks which object keys one Watch registration has seen,
// so a created event for a known key becomes an update.
type watchSession struct {
	backend *Backend
	ctx     context.Context
	handler port.SyncHandler

	mu    sync.Mutex
	known map[string]struct{}
}

func (s *watchSession) run() {
	s.scan()

	backoff := resilience.DefaultBackoff()
	for attempt := 0; s.ctx.Err() == nil; attempt++ {
		events := s.backend.client.ListenBucketNotification(s.ctx, s.backend.bucket, "", "", []string{
			"s3:ObjectCreated:*",
			"s3:ObjectRemoved:*",
		})

		for info := range events {
			if info.Err != nil {
				logger.Warnw("Bucket notification stream error",
					"backend", s.backend.name, "bucket", s.backend.bucket, "error", info.Err)
				continue
			}
			attempt = 0
			for _, record := range info.Records {
				s.handleRecord(record.EventName, record.S3.Object.Key, record.S3.Object.Size, record.S3.Object.ContentType)
			}
		}

		// Stream ended; back off before resubscribing.
		if err := resilience.SleepWithContext(s.ctx, backoff.Delay(attempt)); err != nil {
			return
		}
	}
}

// scan imports objects already in the bucket.
func (s *watchSession) scan() {
	objects := s.backend.client.ListObjects(s.ctx, s.backend.bucket, minio.ListObjectsOptions{Recursive: true})
	for obj := range objects {
		if obj.Err != nil {
			logger.Warnw("Bucket scan error", "backend", s.backend.name, "bucket", s.backend.bucket, "error", obj.Err)
			return
		}
		s.objectWritten(obj.Key, obj.Size, obj.ContentType)
	}
}

func (s *watchSession) handleRecord(eventName, rawKey string, size int64, contentType string) {
	key, err := url.QueryUnescape(rawKey)
	if err != nil {
		key = rawKey
	}

	switch {
	case strings.HasPrefix(eventName, "s3:ObjectCreated:"):
		s.objectWritten(key, size, contentType)
	case strings.HasPrefix(eventName, "s3:ObjectRemoved:"):
		s.objectGone(key)
	}
}

func (s *watchSession) objectWritten(key string, size int64, contentType string) {
	if s.backend.isSuppressed(key) {
		s.markKnown(key)
		return
	}

	name := path.Base(key)
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(name))
	}
	info := domain.FileInfo{
		Name:        name,
		ContentType: contentType,
		Size:        size,
		UpdatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	_, existed := s.known[key]
	s.known[key] = struct{}{}
	s.mu.Unlock()

	if existed {
		if err := s.handler.OnUpdate(s.ctx, key, info); err != nil {
			logger.Warnw("Failed to apply external update", "backend", s.backend.name, "backend_id", key, "error", err)
		}
		return
	}

	// Content is only needed downstream when the type must be sniffed.
	var content io.Reader
	if info.ContentType == "" {
		obj, err := s.backend.client.GetObject(s.ctx, s.backend.bucket, key, minio.GetObjectOptions{})
		if err == nil {
			defer obj.Close()
			content = obj
		}
	}

	if err := s.handler.OnInsert(s.ctx, key, info, content); err != nil {
		logger.Warnw("Failed to apply external insert", "backend", s.backend.name, "backend_id", key, "error", err)
	}
}

func (s *watchSession) objectGone(key string) {
	s.mu.Lock()
	delete(s.known, key)
	s.mu.Unlock()

	if s.backend.isSuppressed(key) {
		return
	}

	if err := s.handler.OnRemove(s.ctx, key); err != nil {
		logger.Warnw("Failed to apply external remove", "backend", s.backend.name, "backend_id", key, "error", err)
	}
}

func (s *watchSession) markKnown(key string) {
	s.mu.Lock()
	s.known[key] = struct{}{}
	s.mu.Unlock()
}
