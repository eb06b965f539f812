package handler

import (
	"time"

	"github.com/sifan077/MailPulse/internal/app/model"
)

// TrackingResponse is the dashboard view of a tracking record.
type TrackingResponse struct {
	ID             uint     `json:"id"`
	TrackingID     string   `json:"tracking_id"`
	RecipientEmail string   `json:"recipient_email"`
	Subject        string   `json:"subject"`
	OpenCount      int      `json:"open_count"`
	ClickCount     int      `json:"click_count"`
	LastOpenTime   *string  `json:"last_open_time"`
	LastClickTime  *string  `json:"last_click_time"`
	LastIP         string   `json:"last_ip"`
	LastPort       string   `json:"last_port"`
	LastLatitude   *float64 `json:"last_latitude"`
	LastLongitude  *float64 `json:"last_longitude"`
	LastLocation   *string  `json:"last_location"`
	CreatedAt      string   `json:"created_at"`
}

// OpenEventResponse is one pixel fetch.
type OpenEventResponse struct {
	ID         uint     `json:"id"`
	TrackingID string   `json:"tracking_id"`
	OpenTime   string   `json:"open_time"`
	IPAddress  string   `json:"ip_address"`
	Port       string   `json:"port"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Location   *string  `json:"location"`
	UserAgent  string   `json:"user_agent"`
}

// ClickEventResponse is one redirect fetch.
type ClickEventResponse struct {
	ID          uint     `json:"id"`
	TrackingID  string   `json:"tracking_id"`
	ClickTime   string   `json:"click_time"`
	IPAddress   string   `json:"ip_address"`
	Port        string   `json:"port"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Location    *string  `json:"location"`
	UserAgent   string   `json:"user_agent"`
	RedirectURL string   `json:"redirect_url"`
}

// ActivityResponse is one entry of the recent activity feed.
type ActivityResponse struct {
	Kind       model.EventKind `json:"kind"`
	TrackingID string          `json:"tracking_id"`
	Recipient  string          `json:"recipient_email"`
	IP         string          `json:"ip"`
	Location   *string         `json:"location"`
	UserAgent  string          `json:"user_agent"`
	Time       string          `json:"time"`
}

// presenter renders stored UTC instants in the configured civil zone.
type presenter struct {
	loc *time.Location
}

func newPresenter(loc *time.Location) presenter {
	if loc == nil {
		loc = time.UTC
	}
	return presenter{loc: loc}
}

func (p presenter) timestamp(t time.Time) string {
	return t.In(p.loc).Format(time.RFC3339)
}

func (p presenter) optionalTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := p.timestamp(*t)
	return &s
}

func (p presenter) tracking(r *model.TrackingRecord) TrackingResponse {
	return TrackingResponse{
		ID:             r.ID,
		TrackingID:     r.TrackingID,
		RecipientEmail: r.Recipient,
		Subject:        r.Subject,
		OpenCount:      r.OpenCount,
		ClickCount:     r.ClickCount,
		LastOpenTime:   p.optionalTimestamp(r.LastOpenTime),
		LastClickTime:  p.optionalTimestamp(r.LastClickTime),
		LastIP:         r.LastIP,
		LastPort:       r.LastPort,
		LastLatitude:   r.LastLatitude,
		LastLongitude:  r.LastLongitude,
		LastLocation:   r.LastLocation,
		CreatedAt:      p.timestamp(r.CreatedAt),
	}
}

func (p presenter) trackings(records []model.TrackingRecord) []TrackingResponse {
	out := make([]TrackingResponse, len(records))
	for i := range records {
		out[i] = p.tracking(&records[i])
	}
	return out
}

func (p presenter) opens(events []model.OpenEvent) []OpenEventResponse {
	out := make([]OpenEventResponse, len(events))
	for i, e := range events {
		out[i] = OpenEventResponse{
			ID:         e.ID,
			TrackingID: e.TrackingID,
			OpenTime:   p.timestamp(e.OccurredAt),
			IPAddress:  e.IPAddress,
			Port:       e.Port,
			Latitude:   e.Latitude,
			Longitude:  e.Longitude,
			Location:   e.Location,
			UserAgent:  e.UserAgent,
		}
	}
	return out
}

func (p presenter) clicks(events []model.ClickEvent) []ClickEventResponse {
	out := make([]ClickEventResponse, len(events))
	for i, e := range events {
		out[i] = ClickEventResponse{
			ID:          e.ID,
			TrackingID:  e.TrackingID,
			ClickTime:   p.timestamp(e.OccurredAt),
			IPAddress:   e.IPAddress,
			Port:        e.Port,
			Latitude:    e.Latitude,
			Longitude:   e.Longitude,
			Location:    e.Location,
			UserAgent:   e.UserAgent,
			RedirectURL: e.RedirectURL,
		}
	}
	return out
}

func (p presenter) activity(events []model.EngagementEvent) []ActivityResponse {
	out := make([]ActivityResponse, len(events))
	for i, e := range events {
		out[i] = ActivityResponse{
			Kind:       e.Kind,
			TrackingID: e.TrackingID,
			Recipient:  e.Recipient,
			IP:         e.IP,
			Location:   e.Location,
			UserAgent:  e.UserAgent,
			Time:       p.timestamp(e.Timestamp),
		}
	}
	return out
}
