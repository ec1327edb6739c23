package widget

import (
	"fmt"
	"sort"
	"time"

	"catersite/internal/model"
)

const maxChips = 3

var germanMonths = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

var germanWeekdaysShort = [...]string{"So.", "Mo.", "Di.", "Mi.", "Do.", "Fr.", "Sa."}

// DateKey is the local calendar date of t, "2006-01-02".
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// DayCell is one day of the month grid.
type DayCell struct {
	Day    int
	Key    string
	Events []model.CalendarEvent // at most three chips
	More   int                   // events beyond the chips
	Busy   bool
}

// MoreLabel is the overflow chip text, empty when there is no overflow.
func (d DayCell) MoreLabel() string {
	if d.More <= 0 {
		return ""
	}
	return fmt.Sprintf("+%d weitere", d.More)
}

// Grid is a Monday-first month grid.
type Grid struct {
	Year    int
	Month   time.Month
	Label   string
	Leading int // blank cells before the 1st
	Days    []DayCell
}

// MonthGrid lays out the month of reference. Events are matched to a day
// by the local date of their start in reference's location.
func MonthGrid(reference time.Time, events []model.CalendarEvent) Grid {
	loc := reference.Location()
	first := time.Date(reference.Year(), reference.Month(), 1, 0, 0, 0, 0, loc)
	days := first.AddDate(0, 1, -1).Day()

	byKey := map[string][]model.CalendarEvent{}
	for _, ev := range events {
		k := DateKey(ev.Start.In(loc))
		byKey[k] = append(byKey[k], ev)
	}

	g := Grid{
		Year:    first.Year(),
		Month:   first.Month(),
		Label:   MonthLabel(first),
		Leading: (int(first.Weekday()) + 6) % 7,
		Days:    make([]DayCell, 0, days),
	}
	for d := 1; d <= days; d++ {
		key := DateKey(time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, loc))
		matches := byKey[key]
		cell := DayCell{Day: d, Key: key, Busy: len(matches) > 0}
		if len(matches) > maxChips {
			cell.Events = matches[:maxChips]
			cell.More = len(matches) - maxChips
		} else {
			cell.Events = matches
		}
		g.Days = append(g.Days, cell)
	}
	return g
}

// MonthEvents returns the events starting in reference's month, sorted by
// start.
func MonthEvents(events []model.CalendarEvent, reference time.Time) []model.CalendarEvent {
	loc := reference.Location()
	var out []model.CalendarEvent
	for _, ev := range events {
		s := ev.Start.In(loc)
		if s.Year() == reference.Year() && s.Month() == reference.Month() {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// MonthLabel renders "März 2024".
func MonthLabel(t time.Time) string {
	return fmt.Sprintf("%s %d", germanMonths[t.Month()-1], t.Year())
}

// WeekdayShort renders "Di.".
func WeekdayShort(t time.Time) string {
	return germanWeekdaysShort[t.Weekday()]
}

// TimeRange renders "10:00 – 18:00" in loc.
func TimeRange(start, end time.Time, loc *time.Location) string {
	return start.In(loc).Format("15:04") + " – " + end.In(loc).Format("15:04")
}

// ShiftMonth moves reference by delta months, pinned to the 1st.
func ShiftMonth(reference time.Time, delta int) time.Time {
	first := time.Date(reference.Year(), reference.Month(), 1, 0, 0, 0, 0, reference.Location())
	return first.AddDate(0, delta, 0)
}

// HoverSync links the grid and the event list: hovering a busy day
// highlights its events and vice versa.
type HoverSync struct {
	active string
}

// Hover sets the active date key. An empty key clears the highlight.
func (h *HoverSync) Hover(key string) { h.active = key }

// HoverDay is the grid mouseenter handler: free days clear the highlight.
func (h *HoverSync) HoverDay(cell DayCell) {
	if cell.Busy {
		h.active = cell.Key
		return
	}
	h.active = ""
}

// Active returns the highlighted date key, or "".
func (h *HoverSync) Active() string { return h.active }

// DayActive reports whether the grid cell for key is highlighted.
func (h *HoverSync) DayActive(key string) bool { return h.active != "" && h.active == key }

// EventActive reports whether an event starting on key is highlighted.
func (h *HoverSync) EventActive(key string) bool { return h.DayActive(key) }
