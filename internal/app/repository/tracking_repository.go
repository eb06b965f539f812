package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/sifan077/MailPulse/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrTrackingNotFound signals that no tracking record carries the requested id.
	ErrTrackingNotFound = errors.New("tracking record not found")
)

// ListFilter narrows and pages a tracking record listing.
type ListFilter struct {
	Limit     int
	Offset    int
	Search    string
	OwnerID   string
	AllOwners bool
}

// WipeResult reports how many rows a bulk delete removed per table.
type WipeResult struct {
	Records int64 `json:"records"`
	Opens   int64 `json:"opens"`
	Clicks  int64 `json:"clicks"`
}

// TrackingRepository defines the data access contract for tracking summaries.
type TrackingRepository interface {
	Create(ctx context.Context, record *model.TrackingRecord) error
	GetByTrackingID(ctx context.Context, trackingID string) (*model.TrackingRecord, error)
	List(ctx context.Context, filter ListFilter) ([]model.TrackingRecord, int64, error)
	ListOpenEvents(ctx context.Context, trackingID string) ([]model.OpenEvent, error)
	ListClickEvents(ctx context.Context, trackingID string) ([]model.ClickEvent, error)
	DeleteAll(ctx context.Context) (WipeResult, error)
}

type trackingRepository struct {
	db *gorm.DB
}

// NewTrackingRepository returns a GORM-backed TrackingRepository.
func NewTrackingRepository(db *gorm.DB) TrackingRepository {
	return &trackingRepository{db: db}
}

func (r *trackingRepository) Create(ctx context.Context, record *model.TrackingRecord) error {
	return r.db.WithContext(ctx).Omit("Opens", "Clicks").Create(record).Error
}

func (r *trackingRepository) GetByTrackingID(ctx context.Context, trackingID string) (*model.TrackingRecord, error) {
	var record model.TrackingRecord
	if err := r.db.WithContext(ctx).Where("tracking_id = ?", trackingID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTrackingNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *trackingRepository) List(ctx context.Context, filter ListFilter) ([]model.TrackingRecord, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	query := r.db.WithContext(ctx).Model(&model.TrackingRecord{})
	if !filter.AllOwners {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where(`LOWER(recipient) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(search))+"%")
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var result []model.TrackingRecord
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&result).Error; err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

func (r *trackingRepository) ListOpenEvents(ctx context.Context, trackingID string) ([]model.OpenEvent, error) {
	var events []model.OpenEvent
	err := r.db.WithContext(ctx).
		Where("tracking_id = ?", trackingID).
		Order("occurred_at DESC").
		Order("id DESC").
		Find(&events).Error
	return events, err
}

func (r *trackingRepository) ListClickEvents(ctx context.Context, trackingID string) ([]model.ClickEvent, error) {
	var events []model.ClickEvent
	err := r.db.WithContext(ctx).
		Where("tracking_id = ?", trackingID).
		Order("occurred_at DESC").
		Order("id DESC").
		Find(&events).Error
	return events, err
}

// DeleteAll removes every event and summary row in one transaction.
func (r *trackingRepository) DeleteAll(ctx context.Context) (WipeResult, error) {
	var res WipeResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})

		clicks := all.Delete(&model.ClickEvent{})
		if clicks.Error != nil {
			return clicks.Error
		}
		opens := all.Delete(&model.OpenEvent{})
		if opens.Error != nil {
			return opens.Error
		}
		records := all.Delete(&model.TrackingRecord{})
		if records.Error != nil {
			return records.Error
		}

		res = WipeResult{Records: records.RowsAffected, Opens: opens.RowsAffected, Clicks: clicks.RowsAffected}
		return nil
	})
	if err != nil {
		return WipeResult{}, err
	}
	return res, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
