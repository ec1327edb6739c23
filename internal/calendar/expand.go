package calendar

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "catersite/internal/log"
	"catersite/internal/model"
)

const maxOccurrencesPerEvent = 1000

// expandICS turns parsed VEVENTs into concrete events inside [from, to].
// RRULE series are expanded with EXDATE removal and RECURRENCE-ID overrides.
// The result is sorted by start.
func expandICS(events []icsEvent, from, to time.Time, loc *time.Location) ([]model.CalendarEvent, error) {
	if to.Before(from) {
		return nil, errors.New("expand: range end is before range start")
	}
	if loc == nil {
		loc = time.Local
	}

	baseByUID := make(map[string][]icsEvent)
	overridesByUID := make(map[string][]icsEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
		} else {
			baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
		}
	}

	out := make([]model.CalendarEvent, 0)
	for uid, bases := range baseByUID {
		ov := overridesByUID[uid]
		for _, ev := range bases {
			if ev.RawRRule == "" {
				out = append(out, expandSingle(ev, ov, from, to, loc)...)
				continue
			}
			occ, hitCap := expandRecurring(ev, ov, from, to, loc)
			if hitCap {
				appLog.Warn("ics occurrences truncated", "uid", uid, "cap", maxOccurrencesPerEvent)
			}
			out = append(out, occ...)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func expandSingle(ev icsEvent, overrides []icsEvent, from, to time.Time, loc *time.Location) []model.CalendarEvent {
	if !overlaps(ev.Start, ev.End, from, to) {
		return nil
	}
	start, end := ev.Start, ev.End
	if o, ok := findOverride(overrides, start); ok {
		start, end, ev = o.Start, o.End, o
	}
	return []model.CalendarEvent{toEvent(ev, ev.UID, start, end, loc)}
}

func expandRecurring(ev icsEvent, overrides []icsEvent, from, to time.Time, loc *time.Location) ([]model.CalendarEvent, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Occurrences that start before the window but are still running
	// overlap it, so the lower bound is widened by the event length.
	dur := ev.End.Sub(ev.Start)
	days := allDaySpan(ev)
	lookback := dur
	if ev.AllDay {
		lookback = time.Duration(days) * 24 * time.Hour
	}
	times := set.Between(from.Add(-lookback).In(ev.Start.Location()), to.In(ev.Start.Location()), true)
	hitCap := false
	if len(times) > maxOccurrencesPerEvent {
		times = times[:maxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]model.CalendarEvent, 0, len(times))
	for _, occStart := range times {
		var occEnd time.Time
		if ev.AllDay {
			occStart = time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occEnd = occStart.AddDate(0, 0, days)
		} else {
			occEnd = occStart.Add(dur)
		}
		if !overlaps(occStart, occEnd, from, to) {
			continue
		}

		id := ev.UID + "_" + occStart.UTC().Format("20060102T150405Z")
		cur := ev
		start, end := occStart, occEnd
		if o, ok := findOverride(overrides, occStart); ok {
			start, end, cur = o.Start, o.End, o
		}
		out = append(out, toEvent(cur, id, start, end, loc))
	}
	return out, hitCap
}

// allDaySpan is the number of calendar days an all-day event covers, at
// least one.
func allDaySpan(ev icsEvent) int {
	s := time.Date(ev.Start.Year(), ev.Start.Month(), ev.Start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(ev.End.Year(), ev.End.Month(), ev.End.Day(), 0, 0, 0, 0, time.UTC)
	if n := int(e.Sub(s).Hours() / 24); n > 1 {
		return n
	}
	return 1
}

// findOverride finds the override whose RECURRENCE-ID equals start.
func findOverride(overrides []icsEvent, start time.Time) (icsEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return icsEvent{}, false
}

func toEvent(ev icsEvent, id string, start, end time.Time, loc *time.Location) model.CalendarEvent {
	start, end = start.In(loc), end.In(loc)
	if end.Before(start) {
		end = start
	}
	return model.CalendarEvent{
		ID:       id,
		Title:    ev.Summary,
		Location: ev.Location,
		Start:    start,
		End:      end,
		AllDay:   ev.AllDay,
	}
}

// overlaps reports whether [aStart, aEnd) touches the window [bStart, bEnd].
// A zero-length event counts when it starts inside the window.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aStart.After(bEnd) {
		return false
	}
	return aEnd.After(bStart) || !aStart.Before(bStart)
}
