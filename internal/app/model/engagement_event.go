package model

import "time"

// EventKind distinguishes opens from clicks.
type EventKind string

const (
	EventOpen  EventKind = "open"
	EventClick EventKind = "click"
)

// EngagementEvent is published after an open or click has been committed.
type EngagementEvent struct {
	ID         string    `json:"id"`
	Kind       EventKind `json:"kind"`
	TrackingID string    `json:"tracking_id"`
	OwnerID    string    `json:"owner_id"`
	Recipient  string    `json:"recipient"`
	IP         string    `json:"ip"`
	Location   *string   `json:"location,omitempty"`
	UserAgent  string    `json:"user_agent"`
	Timestamp  time.Time `json:"timestamp"`
}

const (
	EngagementStreamName     = "ENGAGEMENT"
	EngagementStreamSubject  = "engagement.events"
	EngagementConsumerName   = "activity-feed"
	EngagementStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
