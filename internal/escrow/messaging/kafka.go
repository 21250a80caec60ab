package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/WuodOdhis/trackflow/internal/escrow/event"
	kafka "github.com/segmentio/kafka-go"
)

// Writer is the subset of kafka.Writer the publisher needs. Tests inject
// fakes through it.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Envelope is the wire shape of a published event.
//
// It carries the journal integrity fields so consumers can cross-check what
// they received against the authoritative journal.
type Envelope struct {
	ContractID  int64           `json:"contract_id"`
	Seq         uint64          `json:"seq"`
	Type        string          `json:"type"`
	TimestampMS int64           `json:"timestamp_ms"`
	ActorType   string          `json:"actor_type"`
	ActorID     string          `json:"actor_id,omitempty"`
	Hash        string          `json:"hash"`
	ChainHash   string          `json:"chain_hash"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// KafkaPublisher publishes journal events to a Kafka topic.
//
// Messages are keyed by contract id so per-contract ordering survives
// partitioning.
type KafkaPublisher struct {
	writer Writer
}

// NewKafkaPublisher connects a publisher to the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		BatchTimeout: 100 * time.Millisecond,
	}
	return &KafkaPublisher{writer: writer}, nil
}

// NewKafkaPublisherWithWriter injects a custom writer, primarily for tests.
func NewKafkaPublisherWithWriter(writer Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// Publish sends one stored event as a JSON envelope keyed by contract id.
func (p *KafkaPublisher) Publish(ctx context.Context, evt event.Event) error {
	if p == nil || p.writer == nil {
		return fmt.Errorf("publisher is not configured")
	}
	if evt.ContractID <= 0 {
		return fmt.Errorf("event contract id must be positive")
	}
	if !evt.Type.IsValid() {
		return fmt.Errorf("event type is required")
	}

	value, err := json.Marshal(Envelope{
		ContractID:  evt.ContractID,
		Seq:         evt.Seq,
		Type:        string(evt.Type),
		TimestampMS: evt.Timestamp.UTC().UnixMilli(),
		ActorType:   string(evt.ActorType),
		ActorID:     evt.ActorID,
		Hash:        evt.Hash,
		ChainHash:   evt.ChainHash,
		Payload:     json.RawMessage(evt.PayloadJSON),
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(evt.ContractID, 10)),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

// Close flushes buffered messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

var _ Publisher = (*KafkaPublisher)(nil)
