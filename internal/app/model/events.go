package model

import "time"

// MaxUserAgentLength bounds the stored user agent, in runes.
const MaxUserAgentLength = 500

// OpenEvent is one pixel fetch. Rows are append-only.
type OpenEvent struct {
	ID         uint      `gorm:"primaryKey"`
	TrackingID string    `gorm:"size:64;not null;index"`
	OccurredAt time.Time `gorm:"not null;index"`
	IPAddress  string    `gorm:"size:100"`
	Port       string    `gorm:"size:10"`
	Latitude   *float64
	Longitude  *float64
	Location   *string `gorm:"size:255"`
	UserAgent  string  `gorm:"type:text"`
}

// ClickEvent is one redirect-link fetch. Rows are append-only.
type ClickEvent struct {
	ID          uint      `gorm:"primaryKey"`
	TrackingID  string    `gorm:"size:64;not null;index"`
	OccurredAt  time.Time `gorm:"not null;index"`
	IPAddress   string    `gorm:"size:100"`
	Port        string    `gorm:"size:10"`
	Latitude    *float64
	Longitude   *float64
	Location    *string `gorm:"size:255"`
	UserAgent   string  `gorm:"type:text"`
	RedirectURL string  `gorm:"type:text"`
}

// GeoLocation is a best-effort position for an IP. The zero value means unknown.
type GeoLocation struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Location  *string  `json:"location"`
}

// Known reports whether coordinates were resolved.
func (g GeoLocation) Known() bool {
	return g.Latitude != nil && g.Longitude != nil
}

// TruncateUserAgent clips ua to MaxUserAgentLength runes.
func TruncateUserAgent(ua string) string {
	if len(ua) <= MaxUserAgentLength {
		return ua
	}
	runes := []rune(ua)
	if len(runes) <= MaxUserAgentLength {
		return ua
	}
	return string(runes[:MaxUserAgentLength])
}
