package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/keyforge/keyforge/internal/domain/models"
	"github.com/keyforge/keyforge/internal/domain/service"
	"github.com/keyforge/keyforge/pkg/logger"
)

// KafkaConfig configures the audit entry publisher.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
	BatchSize    int
	BatchTimeout time.Duration
	// SigningKey, when set, attaches an HMAC signature to each message.
	SigningKey string
}

// signedEntry is the wire shape published to the audit topic.
type signedEntry struct {
	models.AuditEntry
	Signature string `json:"signature,omitempty"`
}

// KafkaPublisher fans audit entries out to a Kafka topic. Best-effort: a
// broker failure is reported to the caller, which logs and moves on.
type KafkaPublisher struct {
	writer     *kafka.Writer
	signingKey string
	log        logger.Logger
}

// NewKafkaPublisher creates a publisher for the configured topic.
func NewKafkaPublisher(cfg KafkaConfig, log logger.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: cfg.WriteTimeout,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
	}
	return &KafkaPublisher{
		writer:     writer,
		signingKey: cfg.SigningKey,
		log:        log.WithComponent("KafkaPublisher"),
	}
}

// Record publishes one audit entry, keyed by its key identifier so entries
// for the same key land in the same partition in order.
func (p *KafkaPublisher) Record(ctx context.Context, entry models.AuditEntry) error {
	msg := signedEntry{AuditEntry: entry}
	if p.signingKey != "" {
		sig, err := SignEntry(entry, p.signingKey)
		if err != nil {
			return err
		}
		msg.Signature = sig
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entry.KeyID),
		Value: payload,
	})
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var _ service.AuditSink = (*KafkaPublisher)(nil)
