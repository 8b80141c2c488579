package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlotValid(t *testing.T) {
	now := time.Now()
	assert.True(t, Slot{Start: now, End: now.Add(time.Hour)}.Valid())
	assert.False(t, Slot{Start: now, End: now}.Valid())
	assert.False(t, Slot{Start: now.Add(time.Hour), End: now}.Valid())
}

func TestSlotOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	slot := Slot{Start: base, End: base.Add(time.Hour)}

	assert.True(t, slot.Overlaps(base.Add(30*time.Minute), base.Add(90*time.Minute)))
	assert.True(t, slot.Overlaps(base.Add(-30*time.Minute), base.Add(30*time.Minute)))
	assert.True(t, slot.Overlaps(base, base.Add(time.Hour)))

	// Back-to-back slots share an endpoint but do not overlap.
	assert.False(t, slot.Overlaps(base.Add(time.Hour), base.Add(2*time.Hour)))
	assert.False(t, slot.Overlaps(base.Add(-time.Hour), base))
}

func TestReservationExpired(t *testing.T) {
	now := time.Now()
	r := &Reservation{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, r.Expired(now))
	assert.True(t, r.Expired(now.Add(time.Minute)))
	assert.True(t, r.Expired(now.Add(2*time.Minute)))
}
