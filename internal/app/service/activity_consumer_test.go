package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/MailPulse/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityConsumer_Handle(t *testing.T) {
	sink := &recordingSink{}
	c := NewActivityConsumer(nil, nil, sink)

	payload, err := json.Marshal(model.EngagementEvent{ID: "e1", Kind: model.EventClick, TrackingID: "t1", OwnerID: "alice"})
	require.NoError(t, err)

	require.NoError(t, c.handle(context.Background(), payload))
	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventClick, events[0].Kind)
	assert.Equal(t, "alice", events[0].OwnerID)
}

func TestActivityConsumer_HandleMalformed(t *testing.T) {
	c := NewActivityConsumer(nil, nil, &recordingSink{})

	assert.ErrorIs(t, c.handle(context.Background(), []byte("{")), errMalformedEvent)
	assert.ErrorIs(t, c.handle(context.Background(), []byte(`{"id":"x"}`)), errMalformedEvent)
}

func TestActivityConsumer_HandleSinkFailure(t *testing.T) {
	boom := errors.New("redis down")
	c := NewActivityConsumer(nil, nil, &recordingSink{err: boom})

	err := c.handle(context.Background(), []byte(`{"id":"x","tracking_id":"t1"}`))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, errMalformedEvent)
}

type unreachableJetStream struct {
	nats.JetStreamContext
}

func (unreachableJetStream) StreamInfo(string, ...nats.JSOpt) (*nats.StreamInfo, error) {
	return nil, nats.ErrNoResponders
}

func TestActivityConsumer_StopAfterFailedStart(t *testing.T) {
	c := NewActivityConsumer(unreachableJetStream{}, nil, &recordingSink{})
	require.Error(t, c.Start())

	stopped := make(chan struct{})
	go func() {
		c.Stop()
		c.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked although the consumer never started")
	}
}
