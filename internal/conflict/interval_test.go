package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOverlaps(t *testing.T) {
	testCases := []struct {
		name     string
		aStart   int
		aEnd     int
		bStart   int
		bEnd     int
		expected bool
	}{
		{name: "identical", aStart: 540, aEnd: 630, bStart: 540, bEnd: 630, expected: true},
		{name: "partial overlap", aStart: 540, aEnd: 630, bStart: 600, bEnd: 660, expected: true},
		{name: "contained", aStart: 540, aEnd: 630, bStart: 560, bEnd: 600, expected: true},
		{name: "touching boundary is not overlap", aStart: 0, aEnd: 60, bStart: 60, bEnd: 120, expected: false},
		{name: "disjoint", aStart: 0, aEnd: 60, bStart: 120, bEnd: 180, expected: false},
		{name: "one minute shared", aStart: 0, aEnd: 61, bStart: 60, bEnd: 120, expected: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
			// Overlap is symmetric.
			assert.Equal(t, tc.expected, Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd))
		})
	}
}

func TestValidInterval(t *testing.T) {
	assert.True(t, ValidInterval(0, 1440))
	assert.True(t, ValidInterval(540, 630))
	assert.False(t, ValidInterval(630, 630))
	assert.False(t, ValidInterval(630, 540))
	assert.False(t, ValidInterval(-10, 60))
	assert.False(t, ValidInterval(1380, 1441))
}

func TestWeekday(t *testing.T) {
	// 2026-08-24 is a Monday.
	monday := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	for i, want := range []int{1, 2, 3, 4, 5, 6, 7} {
		assert.Equal(t, want, Weekday(monday.AddDate(0, 0, i)))
	}
}
