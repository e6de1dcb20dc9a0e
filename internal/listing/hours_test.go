package listing

import (
	"testing"
	"time"
)

// tuesdayAt builds a time on a known Tuesday (2024-01-02) at the given clock.
func tuesdayAt(hour, min int) time.Time {
	return time.Date(2024, 1, 2, hour, min, 0, 0, time.UTC)
}

func TestWeekHours_OpenAt(t *testing.T) {
	hours := WeekHours{
		"tuesday": {Open: "09:00", Close: "18:00"},
		"friday":  {Open: "10:30", Close: "14:00"},
	}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"inside window", tuesdayAt(12, 0), true},
		{"exactly at open", tuesdayAt(9, 0), true},
		{"exactly at close", tuesdayAt(18, 0), true},
		{"before open", tuesdayAt(8, 59), false},
		{"after close", tuesdayAt(18, 1), false},
		{"day with no entry", time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC), false}, // Wednesday
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hours.OpenAt(tt.now); got != tt.want {
				t.Errorf("OpenAt(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestWeekHours_OpenAt_EmptySchedule(t *testing.T) {
	var hours WeekHours
	if hours.OpenAt(tuesdayAt(12, 0)) {
		t.Error("nil schedule should report closed")
	}
	if (WeekHours{}).OpenAt(tuesdayAt(12, 0)) {
		t.Error("empty schedule should report closed")
	}
}

func TestWeekHours_OpenAt_MalformedEntries(t *testing.T) {
	tests := []struct {
		name  string
		hours WeekHours
	}{
		{"nil window", WeekHours{"tuesday": nil}},
		{"missing open", WeekHours{"tuesday": {Close: "18:00"}}},
		{"missing close", WeekHours{"tuesday": {Open: "09:00"}}},
		{"unparseable open", WeekHours{"tuesday": {Open: "9am", Close: "18:00"}}},
		{"unparseable close", WeekHours{"tuesday": {Open: "09:00", Close: "late"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Must report closed, never panic.
			if tt.hours.OpenAt(tuesdayAt(12, 0)) {
				t.Error("malformed entry should report closed")
			}
		})
	}
}

func TestWeekHours_OpenAt_OvernightWindowAlwaysClosed(t *testing.T) {
	// Same-day comparison: a close before open never matches.
	hours := WeekHours{"tuesday": {Open: "22:00", Close: "02:00"}}

	for _, now := range []time.Time{tuesdayAt(23, 0), tuesdayAt(1, 0), tuesdayAt(12, 0)} {
		if hours.OpenAt(now) {
			t.Errorf("overnight window should report closed at %v", now)
		}
	}
}

func TestWeekHours_OpenAt_CaseInsensitiveDayKeys(t *testing.T) {
	hours := WeekHours{"Tuesday": {Open: "09:00", Close: "18:00"}}
	if !hours.OpenAt(tuesdayAt(12, 0)) {
		t.Error("day lookup should be case-insensitive")
	}
}
