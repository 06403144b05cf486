package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		days     int
		wantMode string
		wantDays int
	}{
		{"today default", "today", 0, WindowToday, 1},
		{"unknown falls back to today", "whatever", 9, WindowToday, 1},
		{"initial setup ignores days", WindowInitialSetup, 30, WindowInitialSetup, 3},
		{"explicit days", WindowDays, 7, WindowDays, 7},
		{"non-positive days clamp to one", WindowDays, 0, WindowDays, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := ParseWindow(tc.mode, tc.days)
			assert.Equal(t, tc.wantMode, w.Mode)
			assert.Equal(t, tc.wantDays, w.LookbackDays())
		})
	}
}

func TestDateKey(t *testing.T) {
	ts := time.Date(2026, 2, 3, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2026-02-03", DateKey(ts))
}

func TestInboxStatusIsValid(t *testing.T) {
	assert.True(t, StatusAllClear.IsValid())
	assert.True(t, StatusWorthALook.IsValid())
	assert.True(t, StatusAttentionNeeded.IsValid())
	assert.False(t, InboxStatus("shrug").IsValid())
	assert.False(t, InboxStatus("").IsValid())
}
