package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/WuodOdhis/trackflow/internal/escrow/event"
	kafka "github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	messages []kafka.Message
	writeErr error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.writeErr != nil {
		return w.writeErr
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewKafkaPublisherValidation(t *testing.T) {
	if _, err := NewKafkaPublisher(nil, "events"); err == nil {
		t.Fatal("expected error for missing brokers")
	}
	if _, err := NewKafkaPublisher([]string{"localhost:9092"}, "  "); err == nil {
		t.Fatal("expected error for missing topic")
	}
	if _, err := NewKafkaPublisher([]string{"localhost:9092"}, "events"); err != nil {
		t.Fatalf("new kafka publisher: %v", err)
	}
}

func TestPublishBuildsEnvelope(t *testing.T) {
	writer := &fakeWriter{}
	publisher := NewKafkaPublisherWithWriter(writer)

	evt := event.Event{
		ContractID:  7,
		Seq:         3,
		Hash:        "hash-3",
		PrevHash:    "chain-2",
		ChainHash:   "chain-3",
		Timestamp:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Type:        event.TypeMilestoneVerified,
		ActorType:   event.ActorTypeParty,
		ActorID:     "verifier-1",
		PayloadJSON: []byte(`{"index":0}`),
	}
	if err := publisher.Publish(context.Background(), evt); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(writer.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if string(msg.Key) != "7" {
		t.Fatalf("expected key 7, got %q", msg.Key)
	}

	var envelope Envelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.ContractID != 7 || envelope.Seq != 3 {
		t.Fatalf("unexpected envelope identity: %+v", envelope)
	}
	if envelope.Type != "milestone.verified" || envelope.ActorID != "verifier-1" {
		t.Fatalf("unexpected envelope actor: %+v", envelope)
	}
	if envelope.Hash != "hash-3" || envelope.ChainHash != "chain-3" {
		t.Fatalf("unexpected envelope integrity fields: %+v", envelope)
	}
	if envelope.TimestampMS != evt.Timestamp.UnixMilli() {
		t.Fatalf("unexpected envelope timestamp: %d", envelope.TimestampMS)
	}
	if string(envelope.Payload) != `{"index":0}` {
		t.Fatalf("unexpected envelope payload: %s", envelope.Payload)
	}
}

func TestPublishValidation(t *testing.T) {
	publisher := NewKafkaPublisherWithWriter(&fakeWriter{})

	err := publisher.Publish(context.Background(), event.Event{Type: event.TypeContractCreated})
	if err == nil {
		t.Fatal("expected error for missing contract id")
	}

	err = publisher.Publish(context.Background(), event.Event{ContractID: 1})
	if err == nil {
		t.Fatal("expected error for missing event type")
	}
}

func TestPublishPropagatesWriteError(t *testing.T) {
	writeErr := errors.New("broker down")
	publisher := NewKafkaPublisherWithWriter(&fakeWriter{writeErr: writeErr})

	err := publisher.Publish(context.Background(), event.Event{
		ContractID: 1,
		Type:       event.TypeContractCreated,
	})
	if !errors.Is(err, writeErr) {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestCloseClosesWriter(t *testing.T) {
	writer := &fakeWriter{}
	publisher := NewKafkaPublisherWithWriter(writer)

	if err := publisher.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !writer.closed {
		t.Fatal("expected writer closed")
	}

	var nilPublisher *KafkaPublisher
	if err := nilPublisher.Close(); err != nil {
		t.Fatalf("close nil publisher: %v", err)
	}
}

func TestNoopPublisher(t *testing.T) {
	var publisher Publisher = Noop{}

	if err := publisher.Publish(context.Background(), event.Event{}); err != nil {
		t.Fatalf("noop publish: %v", err)
	}
	if err := publisher.Close(); err != nil {
		t.Fatalf("noop close: %v", err)
	}
}
