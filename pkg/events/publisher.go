// Package events publishes ingestion and deletion audit events to Kafka.
// Publishing is fire-and-forget: the pipeline never blocks on the broker.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"doc-qa-go/internal/config"
	"doc-qa-go/pkg/log"
)

// Event types emitted by the pipeline.
const (
	TypeDocumentIngested = "document.ingested"
	TypeDocumentDeleted  = "document.deleted"
)

// Event is one audit record about a file's lifecycle.
type Event struct {
	Type          string    `json:"type"`
	FileID        string    `json:"file_id"`
	FileName      string    `json:"filename,omitempty"`
	DocumentCount int       `json:"document_count,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Publisher writes events to a Kafka topic. A nil Publisher discards events,
// so the broker stays optional.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a Kafka-backed publisher, or nil when no brokers are
// configured.
func NewPublisher(cfg config.KafkaConfig) *Publisher {
	if cfg.Brokers == "" {
		return nil
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers),
			Topic:    cfg.Topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Publish sends the event, logging failures instead of surfacing them.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Errorf("failed to marshal audit event: %v", err)
		return
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(event.FileID), Value: payload}); err != nil {
		log.Warnf("failed to publish audit event %s for file %s: %v", event.Type, event.FileID, err)
	}
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
