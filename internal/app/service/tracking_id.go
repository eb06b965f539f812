package service

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// TrackingIDLength is the length of every generated tracking id.
const TrackingIDLength = 32

// NewTrackingID returns a random version 4 UUID as 32 lowercase hex characters.
func NewTrackingID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// IsTrackingID reports whether s has the shape NewTrackingID produces.
func IsTrackingID(s string) bool {
	if len(s) != TrackingIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
