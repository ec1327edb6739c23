package calendar

import (
	"time"

	"catersite/internal/model"
)

// SampleEvents returns the two demo events placed in ref's month: the
// Sommerfest on the 5th and the Messecatering on the 13th.
func SampleEvents(ref time.Time) []model.CalendarEvent {
	loc := ref.Location()
	day := func(d, hour int) time.Time {
		return time.Date(ref.Year(), ref.Month(), d, hour, 0, 0, 0, loc)
	}
	return []model.CalendarEvent{
		{
			ID:       "1",
			Title:    "Sommerfest",
			Location: "Köln",
			Start:    day(5, 0),
			End:      day(5, 18),
		},
		{
			ID:       "2",
			Title:    "Messecatering",
			Location: "Düsseldorf",
			Start:    day(13, 0),
			End:      day(13, 20),
		},
	}
}
