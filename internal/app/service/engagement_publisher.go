package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/MailPulse/internal/app/model"
)

const publishTimeout = 2 * time.Second

// EngagementPublisher publishes committed engagement events to NATS JetStream.
type EngagementPublisher struct {
	js nats.JetStreamContext
}

// NewEngagementPublisher creates a new engagement event publisher.
func NewEngagementPublisher(js nats.JetStreamContext) *EngagementPublisher {
	return &EngagementPublisher{js: js}
}

// Publish sends the event with its id as the JetStream dedup key.
func (p *EngagementPublisher) Publish(ctx context.Context, event model.EngagementEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	_, err = p.js.Publish(model.EngagementStreamSubject, data, nats.Context(ctx), nats.MsgId(event.ID))
	return err
}

// EnsureEngagementStream creates the engagement stream when it does not exist yet.
func EnsureEngagementStream(js nats.JetStreamContext) error {
	_, err := js.StreamInfo(model.EngagementStreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to inspect stream: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     model.EngagementStreamName,
		Subjects: []string{model.EngagementStreamSubject},
		MaxBytes: model.EngagementStreamMaxBytes,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}
