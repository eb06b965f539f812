package service

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestNewTrackingID_Format(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := NewTrackingID()
		assert.Len(t, id, TrackingIDLength)
		assert.True(t, IsTrackingID(id), id)
		_, dup := seen[id]
		assert.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestIsTrackingID(t *testing.T) {
	assert.False(t, IsTrackingID(""))
	assert.False(t, IsTrackingID("0123456789ABCDEF0123456789abcdef"))
	assert.False(t, IsTrackingID("0123456789abcdef0123456789abcde"))
	assert.False(t, IsTrackingID("0123456789abcdef-123456789abcdef"))
	assert.True(t, IsTrackingID("0123456789abcdef0123456789abcdef"))
}

func TestProperty_IsTrackingIDRejectsWrongLength(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("hex strings of any other length are rejected", prop.ForAll(
		func(s string) bool {
			return IsTrackingID(s) == (len(s) == TrackingIDLength)
		},
		gen.RegexMatch(`[0-9a-f]{0,64}`),
	))

	properties.TestingRun(t)
}
