package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/MailPulse/internal/app/model"
	"go.uber.org/zap"
)

// ActivityConsumer drains the engagement stream into the activity feed.
type ActivityConsumer struct {
	js       nats.JetStreamContext
	logger   *zap.Logger
	sink     EngagementSink
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
}

// NewActivityConsumer creates a new engagement event consumer.
func NewActivityConsumer(js nats.JetStreamContext, logger *zap.Logger, sink EngagementSink) *ActivityConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityConsumer{
		js:       js,
		logger:   logger,
		sink:     sink,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start ensures the stream and durable consumer exist, then consumes in the background.
func (c *ActivityConsumer) Start() error {
	if err := EnsureEngagementStream(c.js); err != nil {
		return err
	}

	_, err := c.js.ConsumerInfo(model.EngagementStreamName, model.EngagementConsumerName)
	if err != nil {
		_, err = c.js.AddConsumer(model.EngagementStreamName, &nats.ConsumerConfig{
			Durable:   model.EngagementConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.EngagementStreamSubject, model.EngagementConsumerName,
		nats.Bind(model.EngagementStreamName, model.EngagementConsumerName))
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	c.running.Store(true)
	go c.consume(sub)
	return nil
}

// Stop ends the fetch loop and waits for the in-flight batch. It returns
// immediately when Start never launched the loop, and is safe to call twice.
func (c *ActivityConsumer) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	if !c.running.Load() {
		return
	}
	<-c.done
}

func (c *ActivityConsumer) consume(sub *nats.Subscription) {
	defer close(c.done)
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Debug("unsubscribe engagement consumer", zap.Error(err))
		}
	}()

	ctx := context.Background()
	for {
		select {
		case <-c.stopChan:
			c.logger.Info("activity consumer stopped")
			return
		default:
		}

		msgs, err := sub.Fetch(10, nats.MaxWait(2*time.Second))
		if err != nil && !errors.Is(err, nats.ErrTimeout) {
			c.logger.Error("failed to fetch messages", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range msgs {
			c.ack(msg, c.handle(ctx, msg.Data))
		}
	}
}

var errMalformedEvent = errors.New("malformed engagement event")

// handle stores one message payload in the feed.
func (c *ActivityConsumer) handle(ctx context.Context, data []byte) error {
	var event model.EngagementEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if event.TrackingID == "" {
		return errMalformedEvent
	}

	if err := c.sink.Publish(ctx, event); err != nil {
		c.logger.Error("failed to store engagement event",
			zap.String("id", event.ID),
			zap.String("tracking_id", event.TrackingID),
			zap.Error(err))
		return err
	}

	c.logger.Debug("engagement event stored",
		zap.String("id", event.ID),
		zap.String("kind", string(event.Kind)),
		zap.String("tracking_id", event.TrackingID),
		zap.Time("timestamp", event.Timestamp),
	)
	return nil
}

func (c *ActivityConsumer) ack(msg *nats.Msg, err error) {
	switch {
	case err == nil:
		_ = msg.Ack()
	case errors.Is(err, errMalformedEvent):
		c.logger.Warn("dropping malformed engagement event", zap.Error(err))
		_ = msg.Term()
	default:
		_ = msg.Nak()
	}
}
