package model

import "time"

// TrackingRecord is the per-message summary row. Counters and last_* fields
// are maintained only by the event repository.
type TrackingRecord struct {
	ID            uint       `gorm:"primaryKey"`
	TrackingID    string     `gorm:"size:64;not null;uniqueIndex"`
	OwnerID       string     `gorm:"size:64;not null;default:'';index"`
	Recipient     string     `gorm:"size:255;not null;index"`
	Subject       string     `gorm:"type:text"`
	OpenCount     int        `gorm:"not null;default:0"`
	ClickCount    int        `gorm:"not null;default:0"`
	LastOpenTime  *time.Time
	LastClickTime *time.Time
	LastSeenAt    *time.Time
	LastIP        string   `gorm:"size:100"`
	LastPort      string   `gorm:"size:10"`
	LastLatitude  *float64
	LastLongitude *float64
	LastLocation  *string   `gorm:"size:255"`
	CreatedAt     time.Time `gorm:"not null;index"`

	Opens  []OpenEvent  `gorm:"foreignKey:TrackingID;references:TrackingID;constraint:OnDelete:CASCADE"`
	Clicks []ClickEvent `gorm:"foreignKey:TrackingID;references:TrackingID;constraint:OnDelete:CASCADE"`
}

// OwnedBy reports whether the caller may read the record.
func (r *TrackingRecord) OwnedBy(caller Caller) bool {
	return caller.IsAdmin || r.OwnerID == caller.UserID
}

// Caller is the identity scope a dashboard request runs under.
type Caller struct {
	UserID  string
	IsAdmin bool
}
