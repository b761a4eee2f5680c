package natspub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/anthanhphan/gosdk/logger"
	"github.com/nats-io/nats.go"

	"github.com/collectfs/collectfs/internal/domain"
	"github.com/collectfs/collectfs/internal/port"
)

// Subjects follow collectfs.records.<collection>.<verb>.
const subjectPrefix = "collectfs.records"

// Publisher fans committed record mutations out to NATS so other
// services can follow a collection's lifecycle. It never consumes the
// insert content stream; that belongs to the replication worker.
type Publisher struct {
	conn *nats.Conn
}

// Ensure Publisher implements port.CollectionObserver.
var _ port.CollectionObserver = (*Publisher)(nil)

// New creates a publisher over an established connection.
func New(conn *nats.Conn) *Publisher {
	return &Publisher{conn: conn}
}

// RecordInserted publishes the new record.
func (p *Publisher) RecordInserted(_ context.Context, collection string, record *domain.FileRecord, _ io.Reader) {
	p.publish(collection, "inserted", record)
}

// RecordUpdated publishes the record after a metadata or copy change.
func (p *Publisher) RecordUpdated(_ context.Context, collection string, record *domain.FileRecord) {
	p.publish(collection, "updated", record)
}

// RecordRemoved publishes the record's final state.
func (p *Publisher) RecordRemoved(_ context.Context, collection string, record *domain.FileRecord) {
	p.publish(collection, "removed", record)
}

// publish is fire-and-forget: a lost event never blocks or fails the
// operation that triggered it.
func (p *Publisher) publish(collection, verb string, record *domain.FileRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		logger.Warnw("Failed to encode record event",
			"collection", collection, "verb", verb, "record_id", record.ID, "error", err)
		return
	}

	subject := fmt.Sprintf("%s.%s.%s", subjectPrefix, collection, verb)
	if err := p.conn.Publish(subject, data); err != nil {
		logger.Warnw("Failed to publish record event",
			"subject", subject, "record_id", record.ID, "error", err)
	}
}
