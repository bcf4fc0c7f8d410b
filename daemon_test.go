package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDurationToNextRefresh(t *testing.T) {
	testCases := []struct {
		name           string
		interval       time.Duration
		currentTime    time.Time
		expectedDurMin float64
	}{
		{"11:10:15->12:00:00", time.Hour, time.Date(2024, 1, 1, 11, 10, 15, 0, time.UTC), 49.75},
		{"11:55:15->12:00:00", time.Hour, time.Date(2024, 1, 1, 11, 55, 15, 0, time.UTC), 4.75},
		{"00:00:00->00:15:00", 15 * time.Minute, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 15.0},
		{"00:15:30->00:30:00", 15 * time.Minute, time.Date(2024, 1, 1, 0, 15, 30, 0, time.UTC), 14.5},
		{"00:07:30->00:15:00", 15 * time.Minute, time.Date(2024, 1, 1, 0, 7, 30, 0, time.UTC), 7.5},
		{"00:59:59->01:00:00", time.Minute, time.Date(2024, 1, 1, 0, 59, 59, 0, time.UTC), 1.0 / 60},
		{"00:30:00->01:00:00", time.Hour, time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC), 30.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actualDur := durationToNextRefresh(tc.currentTime, tc.interval)
			assert.InDelta(t, tc.expectedDurMin, actualDur.Minutes(), 0.01,
				"case: %s, expected duration of around %f minutes, but got duration of %v", tc.name, tc.expectedDurMin, actualDur)
		})
	}
}
