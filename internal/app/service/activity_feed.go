package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sifan077/MailPulse/internal/app/model"
)

const (
	activityAllKey       = "activity:all"
	activityOwnerPrefix  = "activity:"
	defaultActivityLimit = 20
	maxActivityEntries   = 200
)

// ActivityFeed keeps the most recent engagement events in capped Redis lists,
// one shared list plus one per owner.
type ActivityFeed struct {
	client *redis.Client
	maxLen int64
}

// NewActivityFeed returns a feed capped at 200 entries per list.
func NewActivityFeed(client *redis.Client) *ActivityFeed {
	return &ActivityFeed{client: client, maxLen: maxActivityEntries}
}

// Publish appends the event; it lets the feed stand in for the NATS publisher.
func (f *ActivityFeed) Publish(ctx context.Context, event model.EngagementEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	keys := []string{activityAllKey}
	if event.OwnerID != "" {
		keys = append(keys, activityOwnerPrefix+event.OwnerID)
	}

	_, err = f.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.LPush(ctx, key, data)
			pipe.LTrim(ctx, key, 0, f.maxLen-1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

// Recent returns up to limit events visible to the caller, newest first.
func (f *ActivityFeed) Recent(ctx context.Context, caller model.Caller, limit int) ([]model.EngagementEvent, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if int64(limit) > f.maxLen {
		limit = int(f.maxLen)
	}

	key := activityAllKey
	if !caller.IsAdmin {
		key = activityOwnerPrefix + caller.UserID
	}

	raw, err := f.client.LRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read activity: %w", err)
	}

	events := make([]model.EngagementEvent, 0, len(raw))
	for _, item := range raw {
		var event model.EngagementEvent
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}
