package timefmt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		d        time.Duration
		maxUnits int
		want     string
	}{
		{"zero", 0, 2, "just now"},
		{"negative", -time.Minute, 2, "just now"},
		{"seconds", 42 * time.Second, 2, "42 sec."},
		{"minutes and seconds", 2*time.Minute + 5*time.Second, 2, "2 min. 5 sec."},
		{"hours only", 3 * time.Hour, 2, "3 h."},
		{"days capped to one unit", 26 * time.Hour, 1, "1 d."},
		{"weeks and days", 9 * 24 * time.Hour, 2, "1 w. 2 d."},
		{"months with a week gap", 65 * 24 * time.Hour, 2, "2 mo."},
		{"years", 400 * 24 * time.Hour, 2, "1 y. 1 mo."},
		{"stops at the first gap", 365*24*time.Hour + 2*time.Minute, 3, "1 y."},
		{"default cap for non-positive maxUnits", 26 * time.Hour, 0, "1 d. 2 h."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.d, tt.maxUnits))
		})
	}
}

func TestSince(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2 d.", Since(now.Add(-48*time.Hour), now))
	assert.Equal(t, "just now", Since(now, now))
}
