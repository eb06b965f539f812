package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sifan077/MailPulse/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventRepository appends engagement events and keeps the summary row in step.
type EventRepository interface {
	AppendOpen(ctx context.Context, event *model.OpenEvent) error
	AppendClick(ctx context.Context, event *model.ClickEvent) error
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository returns a GORM-backed EventRepository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// snapshot holds the last_* values an event writes onto its summary row.
type snapshot struct {
	at        time.Time
	ip        string
	port      string
	latitude  *float64
	longitude *float64
	location  *string
}

func (r *eventRepository) AppendOpen(ctx context.Context, event *model.OpenEvent) error {
	snap := snapshot{
		at:        event.OccurredAt,
		ip:        event.IPAddress,
		port:      event.Port,
		latitude:  event.Latitude,
		longitude: event.Longitude,
		location:  event.Location,
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bumpSummary(tx, event.TrackingID, "open_count", "last_open_time", snap); err != nil {
			return err
		}
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("insert open event: %w", err)
		}
		return nil
	})
}

func (r *eventRepository) AppendClick(ctx context.Context, event *model.ClickEvent) error {
	snap := snapshot{
		at:        event.OccurredAt,
		ip:        event.IPAddress,
		port:      event.Port,
		latitude:  event.Latitude,
		longitude: event.Longitude,
		location:  event.Location,
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bumpSummary(tx, event.TrackingID, "click_count", "last_click_time", snap); err != nil {
			return err
		}
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("insert click event: %w", err)
		}
		return nil
	})
}

// bumpSummary increments the counter in SQL and overwrites last_* only when
// the event is not older than what the row already holds, so a slow
// transaction committing late cannot roll the snapshot backwards.
func bumpSummary(tx *gorm.DB, trackingID, counter, lastTime string, snap snapshot) error {
	const seenNewer = "last_seen_at IS NULL OR last_seen_at <= ?"
	ifNewer := func(column string, value interface{}) clause.Expr {
		return gorm.Expr("CASE WHEN "+seenNewer+" THEN ? ELSE "+column+" END", snap.at, value)
	}

	updates := map[string]interface{}{
		counter:  gorm.Expr(counter+" + ?", 1),
		lastTime: gorm.Expr("CASE WHEN "+lastTime+" IS NULL OR "+lastTime+" <= ? THEN ? ELSE "+lastTime+" END", snap.at, snap.at),

		"last_ip":        ifNewer("last_ip", snap.ip),
		"last_port":      ifNewer("last_port", snap.port),
		"last_latitude":  ifNewer("last_latitude", nullable(snap.latitude)),
		"last_longitude": ifNewer("last_longitude", nullable(snap.longitude)),
		"last_location":  ifNewer("last_location", nullable(snap.location)),
		"last_seen_at":   ifNewer("last_seen_at", snap.at),
	}

	result := tx.Model(&model.TrackingRecord{}).
		Where("tracking_id = ?", trackingID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update %s summary: %w", counter, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTrackingNotFound
	}
	return nil
}

func nullable[T any](v *T) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
