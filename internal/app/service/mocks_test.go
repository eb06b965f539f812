package service

import (
	"context"
	"sync"

	"github.com/sifan077/MailPulse/internal/app/model"
	"github.com/sifan077/MailPulse/internal/app/repository"
	"github.com/sifan077/MailPulse/internal/infra/mail"
)

type mockTrackingRepository struct {
	createFn    func(ctx context.Context, record *model.TrackingRecord) error
	getFn       func(ctx context.Context, trackingID string) (*model.TrackingRecord, error)
	listFn      func(ctx context.Context, filter repository.ListFilter) ([]model.TrackingRecord, int64, error)
	opensFn     func(ctx context.Context, trackingID string) ([]model.OpenEvent, error)
	clicksFn    func(ctx context.Context, trackingID string) ([]model.ClickEvent, error)
	deleteAllFn func(ctx context.Context) (repository.WipeResult, error)
}

func (m *mockTrackingRepository) Create(ctx context.Context, record *model.TrackingRecord) error {
	if m.createFn != nil {
		return m.createFn(ctx, record)
	}
	return nil
}

func (m *mockTrackingRepository) GetByTrackingID(ctx context.Context, trackingID string) (*model.TrackingRecord, error) {
	if m.getFn != nil {
		return m.getFn(ctx, trackingID)
	}
	return nil, repository.ErrTrackingNotFound
}

func (m *mockTrackingRepository) List(ctx context.Context, filter repository.ListFilter) ([]model.TrackingRecord, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, 0, nil
}

func (m *mockTrackingRepository) ListOpenEvents(ctx context.Context, trackingID string) ([]model.OpenEvent, error) {
	if m.opensFn != nil {
		return m.opensFn(ctx, trackingID)
	}
	return nil, nil
}

func (m *mockTrackingRepository) ListClickEvents(ctx context.Context, trackingID string) ([]model.ClickEvent, error) {
	if m.clicksFn != nil {
		return m.clicksFn(ctx, trackingID)
	}
	return nil, nil
}

func (m *mockTrackingRepository) DeleteAll(ctx context.Context) (repository.WipeResult, error) {
	if m.deleteAllFn != nil {
		return m.deleteAllFn(ctx)
	}
	return repository.WipeResult{}, nil
}

type mockEventRepository struct {
	openFn  func(ctx context.Context, event *model.OpenEvent) error
	clickFn func(ctx context.Context, event *model.ClickEvent) error
}

func (m *mockEventRepository) AppendOpen(ctx context.Context, event *model.OpenEvent) error {
	if m.openFn != nil {
		return m.openFn(ctx, event)
	}
	return nil
}

func (m *mockEventRepository) AppendClick(ctx context.Context, event *model.ClickEvent) error {
	if m.clickFn != nil {
		return m.clickFn(ctx, event)
	}
	return nil
}

// stubGeo returns a fixed location and counts calls.
type stubGeo struct {
	mu    sync.Mutex
	loc   model.GeoLocation
	calls int
}

func (g *stubGeo) Resolve(context.Context, string) model.GeoLocation {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.loc
}

func (g *stubGeo) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type recordingSink struct {
	mu     sync.Mutex
	events []model.EngagementEvent
	err    error
}

func (s *recordingSink) Publish(_ context.Context, event model.EngagementEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Events() []model.EngagementEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.EngagementEvent(nil), s.events...)
}

// stubSender records messages and fails for the listed recipients.
type stubSender struct {
	mu     sync.Mutex
	sent   []mail.Message
	failOn map[string]error
}

func (s *stubSender) Send(_ context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failOn[msg.To]; ok {
		return err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func ptr[T any](v T) *T { return &v }
