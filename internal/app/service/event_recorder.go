package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/MailPulse/internal/app/model"
	"github.com/sifan077/MailPulse/internal/app/repository"
	"go.uber.org/zap"
)

// TrackingHit carries what the public endpoints know about one fetch.
type TrackingHit struct {
	TrackingID  string
	IP          string
	Port        string
	UserAgent   string
	RedirectURL string
}

// EngagementSink receives events after they have been committed.
type EngagementSink interface {
	Publish(ctx context.Context, event model.EngagementEvent) error
}

// EventRecorder appends opens and clicks and maintains the tracking summary.
// Unknown tracking ids are ignored without error.
type EventRecorder interface {
	RecordOpen(ctx context.Context, hit TrackingHit) error
	RecordClick(ctx context.Context, hit TrackingHit) error
}

// EventRecorderDeps wires the recorder.
type EventRecorderDeps struct {
	Records repository.TrackingRepository
	Events  repository.EventRepository
	Geo     GeoResolver
	Sink    EngagementSink
	Logger  *zap.Logger
	Clock   func() time.Time
}

type eventRecorder struct {
	records repository.TrackingRepository
	events  repository.EventRepository
	geo     GeoResolver
	sink    EngagementSink
	logger  *zap.Logger
	clock   func() time.Time
}

// NewEventRecorder returns an EventRecorder.
func NewEventRecorder(deps EventRecorderDeps) EventRecorder {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	geo := deps.Geo
	if geo == nil {
		geo = NewGeoResolver(GeoResolverDeps{})
	}
	return &eventRecorder{
		records: deps.Records,
		events:  deps.Events,
		geo:     geo,
		sink:    deps.Sink,
		logger:  logger,
		clock:   clock,
	}
}

func (r *eventRecorder) RecordOpen(ctx context.Context, hit TrackingHit) error {
	return r.record(ctx, model.EventOpen, hit, func(record *model.TrackingRecord, at time.Time, loc model.GeoLocation) error {
		return r.events.AppendOpen(ctx, &model.OpenEvent{
			TrackingID: record.TrackingID,
			OccurredAt: at,
			IPAddress:  hit.IP,
			Port:       hit.Port,
			Latitude:   loc.Latitude,
			Longitude:  loc.Longitude,
			Location:   loc.Location,
			UserAgent:  model.TruncateUserAgent(hit.UserAgent),
		})
	})
}

func (r *eventRecorder) RecordClick(ctx context.Context, hit TrackingHit) error {
	return r.record(ctx, model.EventClick, hit, func(record *model.TrackingRecord, at time.Time, loc model.GeoLocation) error {
		return r.events.AppendClick(ctx, &model.ClickEvent{
			TrackingID:  record.TrackingID,
			OccurredAt:  at,
			IPAddress:   hit.IP,
			Port:        hit.Port,
			Latitude:    loc.Latitude,
			Longitude:   loc.Longitude,
			Location:    loc.Location,
			UserAgent:   model.TruncateUserAgent(hit.UserAgent),
			RedirectURL: hit.RedirectURL,
		})
	})
}

type appendFunc func(record *model.TrackingRecord, at time.Time, loc model.GeoLocation) error

func (r *eventRecorder) record(ctx context.Context, kind model.EventKind, hit TrackingHit, appendEvent appendFunc) error {
	if hit.TrackingID == "" {
		return nil
	}

	record, err := r.records.GetByTrackingID(ctx, hit.TrackingID)
	if errors.Is(err, repository.ErrTrackingNotFound) {
		return nil
	}
	if err != nil {
		eventFailures.WithLabelValues(string(kind)).Inc()
		return fmt.Errorf("load tracking record: %w", err)
	}

	loc := r.geo.Resolve(ctx, hit.IP)
	at := r.clock().UTC()

	if err := appendEvent(record, at, loc); err != nil {
		if errors.Is(err, repository.ErrTrackingNotFound) {
			// Deleted between lookup and commit; nothing was written.
			return nil
		}
		eventFailures.WithLabelValues(string(kind)).Inc()
		return fmt.Errorf("record %s: %w", kind, err)
	}
	eventsRecorded.WithLabelValues(string(kind)).Inc()

	r.publish(ctx, model.EngagementEvent{
		ID:         uuid.New().String(),
		Kind:       kind,
		TrackingID: record.TrackingID,
		OwnerID:    record.OwnerID,
		Recipient:  record.Recipient,
		IP:         hit.IP,
		Location:   loc.Location,
		UserAgent:  model.TruncateUserAgent(hit.UserAgent),
		Timestamp:  at,
	})
	return nil
}

func (r *eventRecorder) publish(ctx context.Context, event model.EngagementEvent) {
	if r.sink == nil {
		return
	}
	if err := r.sink.Publish(ctx, event); err != nil {
		r.logger.Warn("failed to publish engagement event",
			zap.String("tracking_id", event.TrackingID),
			zap.String("kind", string(event.Kind)),
			zap.Error(err),
		)
	}
}
