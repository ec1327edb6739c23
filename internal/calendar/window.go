package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"catersite/internal/google"
)

// WindowMode selects how far the build looks ahead.
type WindowMode string

const (
	// WindowMonth covers the month of the reference date.
	WindowMonth WindowMode = "month"
	// WindowYear covers the reference month and the eleven following months.
	WindowYear WindowMode = "year"
)

// Window returns the inclusive [start, end] range for mode, in now's location.
func Window(now time.Time, mode WindowMode) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	months := 1
	if mode == WindowYear {
		months = 12
	}
	end := start.AddDate(0, months, 0).Add(-time.Millisecond)
	return start, end
}

// DateKey is the calendar-day correlation id ("2024-03-05") shared by the
// month grid and the event list.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// NormalizeTime turns a Calendar API start/end object into a concrete time.
// An all-day Date becomes local midnight in loc.
func NormalizeTime(et google.EventTime, loc *time.Location) (time.Time, bool, error) {
	if loc == nil {
		loc = time.Local
	}
	if d := strings.TrimSpace(et.Date); d != "" {
		t, err := time.ParseInLocation("2006-01-02", d, loc)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("parse date %q: %w", d, err)
		}
		return t, true, nil
	}
	if dt := strings.TrimSpace(et.DateTime); dt != "" {
		t, err := time.Parse(time.RFC3339, dt)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("parse dateTime %q: %w", dt, err)
		}
		return t.In(loc), false, nil
	}
	return time.Time{}, false, errors.New("event time has neither date nor dateTime")
}
