package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"imagestudio/internal/domain"
)

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
	closed        bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublish(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{ch: ch, queue: "image_jobs.events"}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), domain.JobEvent{
		JobID:        42,
		Status:       domain.JobStatusError,
		ErrorMessage: "boom",
		Outputs:      1,
		OccurredAt:   at,
	})
	if err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if ch.exchange != "" || ch.key != "image_jobs.events" {
		t.Fatalf("published to %q/%q", ch.exchange, ch.key)
	}
	if ch.msg.ContentType != "application/json" || ch.msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("unexpected message properties %+v", ch.msg)
	}
	if ch.msg.MessageId != "42.error" || ch.msg.Type != "job.error" || !ch.msg.Timestamp.Equal(at) {
		t.Fatalf("unexpected message metadata %+v", ch.msg)
	}

	var decoded domain.JobEvent
	if err := json.Unmarshal(ch.msg.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.JobID != 42 || decoded.ErrorMessage != "boom" || decoded.Outputs != 1 {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestPublishError(t *testing.T) {
	boom := errors.New("channel closed")
	p := &AMQPPublisher{ch: &fakeChannel{err: boom}, queue: "q"}
	if err := p.Publish(context.Background(), domain.JobEvent{JobID: 1}); !errors.Is(err, boom) {
		t.Fatalf("Publish error = %v, want %v", err, boom)
	}
}

func TestClose(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{ch: ch, queue: "q"}
	if err := p.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if !ch.closed {
		t.Fatal("channel not closed")
	}
}
