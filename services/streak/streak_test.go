package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var today = time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)

func day(offset int) time.Time {
	return today.AddDate(0, 0, offset)
}

func TestConsecutiveDays(t *testing.T) {
	tests := []struct {
		name  string
		dates []time.Time
		want  int
	}{
		{"empty", nil, 0},
		{"only today", []time.Time{day(0)}, 1},
		{"three day run", []time.Time{day(0), day(-1), day(-2)}, 3},
		{"gap after today", []time.Time{day(0), day(-3)}, 1},
		{"no record today breaks the run", []time.Time{day(-1), day(-2), day(-3)}, 0},
		{"unsorted input", []time.Time{day(-2), day(0), day(-1)}, 3},
		{"duplicate days count once", []time.Time{day(0), day(0), day(-1)}, 2},
		{"future dates ignored", []time.Time{day(1), day(0), day(-1)}, 2},
		{"long run with late gap", []time.Time{day(0), day(-1), day(-2), day(-3), day(-5)}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConsecutiveDays(today, tt.dates))
		})
	}
}

func TestConsecutiveDaysIgnoresTimeOfDay(t *testing.T) {
	dates := []time.Time{
		time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC),
		time.Date(2025, 6, 14, 0, 1, 0, 0, time.UTC),
	}
	assert.Equal(t, 2, ConsecutiveDays(today, dates))
}

func TestDayOf(t *testing.T) {
	d := DayOf(time.Date(2025, 6, 15, 23, 59, 59, 0, time.Local))
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.Local), d)
}
