package natsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthanhphan/gosdk/logger"
	"github.com/nats-io/nats.go"

	"github.com/collectfs/collectfs/internal/domain"
	"github.com/collectfs/collectfs/internal/port"
	"github.com/collectfs/collectfs/internal/service"
)

// Subjects follow collectfs.sync.<collection>.<backend>.<verb>.
const subjectPrefix = "collectfs.sync"

const (
	verbInsert = "insert"
	verbUpdate = "update"
	verbRemove = "remove"
)

// syncEvent is the wire payload for externally reported backend changes.
// Insert and update carry the object's metadata; remove only needs the
// backend id.
type syncEvent struct {
	BackendID   string    `json:"backend_id"`
	Name        string    `json:"name,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Bridge feeds backend change events published on NATS into collection
// sync handlers. It serves agents that watch a backend out of process,
// such as a cron job scanning a shared drive on another host.
type Bridge struct {
	conn     *nats.Conn
	registry *service.Registry
	subs     []*nats.Subscription
}

// New creates a bridge over an established connection.
func New(conn *nats.Conn, registry *service.Registry) *Bridge {
	return &Bridge{conn: conn, registry: registry}
}

// Start subscribes one route per collection, backend, and verb.
func (b *Bridge) Start(ctx context.Context) error {
	routes, err := b.routes(ctx)
	if err != nil {
		return err
	}

	for subject, handler := range routes {
		sub, err := b.conn.Subscribe(subject, handler)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		b.subs = append(b.subs, sub)
		logger.Infow("Sync subject subscribed", "subject", subject)
	}
	return nil
}

// Close drops every subscription.
func (b *Bridge) Close() {
	for _, sub := range b.subs {
		if err := sub.Unsubscribe(); err != nil {
			logger.Warnw("Failed to unsubscribe", "subject", sub.Subject, "error", err)
		}
	}
	b.subs = nil
}

// routes builds the subject map for every registered collection.
func (b *Bridge) routes(ctx context.Context) (map[string]nats.MsgHandler, error) {
	routes := map[string]nats.MsgHandler{}

	for _, collection := range b.registry.All() {
		for _, backend := range collection.Backends() {
			handler, ok := collection.SyncHandlerFor(backend)
			if !ok {
				return nil, fmt.Errorf("collection %s has no sync handler for backend %s", collection.Name(), backend)
			}

			for _, verb := range []string{verbInsert, verbUpdate, verbRemove} {
				subject := fmt.Sprintf("%s.%s.%s.%s", subjectPrefix, collection.Name(), backend, verb)
				routes[subject] = b.msgHandler(ctx, subject, verb, handler)
			}
		}
	}
	return routes, nil
}

func (b *Bridge) msgHandler(ctx context.Context, subject, verb string, handler port.SyncHandler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		if err := dispatch(ctx, verb, handler, msg.Data); err != nil {
			logger.Warnw("Failed to apply sync event", "subject", subject, "error", err)
		}
	}
}

// dispatch decodes one event and applies it through the sync handler.
func dispatch(ctx context.Context, verb string, handler port.SyncHandler, data []byte) error {
	var event syncEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to decode sync event: %w", err)
	}
	if event.BackendID == "" {
		return fmt.Errorf("sync event missing backend_id")
	}

	info := domain.FileInfo{
		Name:        event.Name,
		ContentType: event.ContentType,
		Size:        event.Size,
		UpdatedAt:   event.UpdatedAt,
	}

	switch verb {
	case verbInsert:
		return handler.OnInsert(ctx, event.BackendID, info, nil)
	case verbUpdate:
		return handler.OnUpdate(ctx, event.BackendID, info)
	case verbRemove:
		return handler.OnRemove(ctx, event.BackendID)
	default:
		return fmt.Errorf("unknown sync verb %s", verb)
	}
}
