package listing

import (
	"strings"
	"time"
)

// timeLayout is the 24-hour clock format used by profile hours.
const timeLayout = "15:04"

// OpenAt reports whether the schedule has an open window covering the given
// instant. The weekday and clock are taken from now as-is, so callers must
// localize it to the authoritative marketplace time zone first (the service
// uses a single configured zone for the whole deployment).
//
// A missing or malformed entry for the day reports closed; this never panics.
// Comparison is same-day only: a window whose close time is numerically
// before its open time (an overnight window like 22:00-02:00) always reports
// closed.
func (h WeekHours) OpenAt(now time.Time) bool {
	if len(h) == 0 {
		return false
	}

	day := strings.ToLower(now.Weekday().String())
	window := h.windowFor(day)
	if window == nil {
		return false
	}

	open, err := time.Parse(timeLayout, window.Open)
	if err != nil {
		return false
	}
	closeT, err := time.Parse(timeLayout, window.Close)
	if err != nil {
		return false
	}

	openMin := open.Hour()*60 + open.Minute()
	closeMin := closeT.Hour()*60 + closeT.Minute()
	nowMin := now.Hour()*60 + now.Minute()

	return openMin <= nowMin && nowMin <= closeMin
}

// windowFor looks up a day entry case-insensitively.
func (h WeekHours) windowFor(day string) *TimeWindow {
	if w, ok := h[day]; ok {
		return w
	}
	for k, w := range h {
		if strings.EqualFold(k, day) {
			return w
		}
	}
	return nil
}
