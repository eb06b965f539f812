package service

import (
	"context"
	"fmt"

	"github.com/sifan077/MailPulse/internal/app/model"
	"github.com/sifan077/MailPulse/internal/app/repository"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// TrackingQueryService serves the dashboard listing and detail views.
type TrackingQueryService interface {
	List(ctx context.Context, input ListInput, caller model.Caller) (ListResult, error)
	Detail(ctx context.Context, trackingID string, caller model.Caller) (*Detail, error)
}

// ListInput is one page request. Zero values select the first page at the default size.
type ListInput struct {
	Page     int
	PageSize int
	Search   string
}

// ListResult is one page of tracking records, newest first.
type ListResult struct {
	Items    []model.TrackingRecord
	Total    int64
	Pages    int
	Page     int
	PageSize int
}

// Detail is a tracking record plus its full event history, newest first.
type Detail struct {
	Record *model.TrackingRecord
	Opens  []model.OpenEvent
	Clicks []model.ClickEvent
}

type trackingQueryService struct {
	repo            repository.TrackingRepository
	defaultPageSize int
}

// NewTrackingQueryService returns a query service. defaultPageSize <= 0 selects DefaultPageSize.
func NewTrackingQueryService(repo repository.TrackingRepository, defaultPageSize int) TrackingQueryService {
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}
	if defaultPageSize > MaxPageSize {
		defaultPageSize = MaxPageSize
	}
	return &trackingQueryService{repo: repo, defaultPageSize: defaultPageSize}
}

func (s *trackingQueryService) List(ctx context.Context, input ListInput, caller model.Caller) (ListResult, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	size := input.PageSize
	if size <= 0 {
		size = s.defaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	items, total, err := s.repo.List(ctx, repository.ListFilter{
		Limit:     size,
		Offset:    (page - 1) * size,
		Search:    input.Search,
		OwnerID:   caller.UserID,
		AllOwners: caller.IsAdmin,
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("list tracking records: %w", err)
	}

	return ListResult{
		Items:    items,
		Total:    total,
		Pages:    int((total + int64(size) - 1) / int64(size)),
		Page:     page,
		PageSize: size,
	}, nil
}

func (s *trackingQueryService) Detail(ctx context.Context, trackingID string, caller model.Caller) (*Detail, error) {
	record, err := s.repo.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, fmt.Errorf("get tracking record: %w", err)
	}
	if !record.OwnedBy(caller) {
		return nil, ErrForbidden
	}

	opens, err := s.repo.ListOpenEvents(ctx, trackingID)
	if err != nil {
		return nil, fmt.Errorf("list open events: %w", err)
	}
	clicks, err := s.repo.ListClickEvents(ctx, trackingID)
	if err != nil {
		return nil, fmt.Errorf("list click events: %w", err)
	}

	return &Detail{Record: record, Opens: opens, Clicks: clicks}, nil
}
