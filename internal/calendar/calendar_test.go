package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"catersite/internal/google"
	"catersite/internal/model"
	"catersite/internal/source"
)

func TestWindow(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

	start, end := Window(now, WindowMonth)
	if want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("month start: got %v, want %v", start, want)
	}
	if want := time.Date(2024, 3, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC); !end.Equal(want) {
		t.Errorf("month end: got %v, want %v", end, want)
	}

	_, end = Window(now, WindowYear)
	if want := time.Date(2025, 2, 28, 23, 59, 59, int(999*time.Millisecond), time.UTC); !end.Equal(want) {
		t.Errorf("year end: got %v, want %v", end, want)
	}
}

func TestNormalizeTime(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}

	got, allDay, err := NormalizeTime(google.EventTime{Date: "2024-03-05"}, berlin)
	if err != nil {
		t.Fatal(err)
	}
	if !allDay || got.Hour() != 0 || got.Day() != 5 || got.Location() != berlin {
		t.Errorf("date: got %v allDay=%v", got, allDay)
	}

	got, allDay, err = NormalizeTime(google.EventTime{DateTime: "2024-03-05T10:00:00Z"}, berlin)
	if err != nil {
		t.Fatal(err)
	}
	if allDay || got.Hour() != 11 {
		t.Errorf("dateTime: got %v allDay=%v, want 11:00 local", got, allDay)
	}

	if _, _, err := NormalizeTime(google.EventTime{}, berlin); err == nil {
		t.Error("expected error for empty event time")
	}
}

func TestSampleEvents(t *testing.T) {
	ref := time.Date(2024, 7, 20, 0, 0, 0, 0, time.UTC)
	ev := SampleEvents(ref)
	if len(ev) != 2 {
		t.Fatalf("got %d events, want 2", len(ev))
	}
	if ev[0].Start.Day() != 5 || ev[0].End.Hour() != 18 || ev[0].Location != "Köln" {
		t.Errorf("first sample: got %+v", ev[0])
	}
	if ev[1].Start.Day() != 13 || ev[1].End.Hour() != 20 || ev[1].Title != "Messecatering" {
		t.Errorf("second sample: got %+v", ev[1])
	}
}

func newService(t *testing.T, h http.Handler, opts Options) *Service {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	f := source.NewFetcherWithClient(srv.Client())
	g := google.NewClient(f, "test-key")
	g.CalendarBase = srv.URL + "/calendar"
	if opts.ICSURL == "/" {
		opts.ICSURL = srv.URL + "/feed.ics"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second
	}
	return NewService(opts, f, g)
}

var march = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func TestResolve_API(t *testing.T) {
	svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("singleEvents") != "true" || q.Get("orderBy") != "startTime" {
			t.Errorf("query: got %v", q)
		}
		if q.Get("timeMin") != "2024-03-01T00:00:00Z" {
			t.Errorf("timeMin: got %q", q.Get("timeMin"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"id":"b","summary":"Firmenfeier","location":"Bonn","start":{"dateTime":"2024-03-12T18:00:00Z"},"end":{"dateTime":"2024-03-12T23:00:00Z"}},
			{"id":"a","summary":"Hochzeit","start":{"date":"2024-03-09"},"end":{"date":"2024-03-10"}},
			{"id":"x","status":"cancelled","summary":"Abgesagt","start":{"date":"2024-03-11"},"end":{"date":"2024-03-12"}}
		]}`))
	}), Options{CalendarID: "cal@example.com", Window: WindowMonth})

	payload, out := svc.Resolve(context.Background(), march, nil)
	if payload.Source != SourceAPI {
		t.Fatalf("Source: got %q, want %q (err=%v)", payload.Source, SourceAPI, out.Err)
	}
	if len(payload.Events) != 2 {
		t.Fatalf("events: got %d, want 2", len(payload.Events))
	}
	if payload.Events[0].ID != "a" || !payload.Events[0].AllDay {
		t.Errorf("first event: got %+v", payload.Events[0])
	}
	if payload.Events[1].Location != "Bonn" || payload.Events[1].AllDay {
		t.Errorf("second event: got %+v", payload.Events[1])
	}
	if payload.TimeMin == nil || payload.TimeMax == nil {
		t.Error("window not recorded")
	}
}

func TestResolve_EmptyKeepsPrevious(t *testing.T) {
	svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	}), Options{CalendarID: "cal"})

	prev := []model.CalendarEvent{{ID: "old", Title: "Vorher"}}
	payload, _ := svc.Resolve(context.Background(), march, prev)
	if payload.Source != SourceEmpty {
		t.Errorf("Source: got %q, want %q", payload.Source, SourceEmpty)
	}
	if len(payload.Events) != 1 || payload.Events[0].ID != "old" {
		t.Errorf("events: got %+v, want previous", payload.Events)
	}
}

func TestResolve_FailureUsesSamples(t *testing.T) {
	svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}), Options{CalendarID: "cal"})

	payload, out := svc.Resolve(context.Background(), march, nil)
	if payload.Source != SourceFallback {
		t.Errorf("Source: got %q, want %q", payload.Source, SourceFallback)
	}
	if out.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("HTTPStatus: got %d", out.HTTPStatus)
	}
	if len(payload.Events) != 2 || payload.Events[0].Start.Month() != time.March {
		t.Errorf("events: got %+v, want sample events", payload.Events)
	}
}

func TestResolve_Unconfigured(t *testing.T) {
	svc := NewService(Options{Location: time.UTC}, source.NewFetcher(time.Second), google.NewClient(source.NewFetcher(time.Second), ""))
	payload, out := svc.Resolve(context.Background(), march, nil)
	if payload.Source != source.TagMissingConfig || out.Status != source.StatusUnconfigured {
		t.Errorf("got %q/%v, want missing-config/unconfigured", payload.Source, out.Status)
	}
	if len(payload.Events) != 2 {
		t.Errorf("events: got %d, want samples", len(payload.Events))
	}
}

const feed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//catersite//test//DE
BEGIN:VEVENT
UID:weekly@test
DTSTART:20240304T100000Z
DTEND:20240304T120000Z
RRULE:FREQ=WEEKLY;COUNT=4
EXDATE:20240311T100000Z
SUMMARY:Mittagstisch
LOCATION:Kantine
END:VEVENT
BEGIN:VEVENT
UID:weekly@test
RECURRENCE-ID:20240318T100000Z
DTSTART:20240318T130000Z
DTEND:20240318T150000Z
SUMMARY:Mittagstisch (verschoben)
END:VEVENT
BEGIN:VEVENT
DTSTART;VALUE=DATE:20240320
SUMMARY:Ohne UID
END:VEVENT
BEGIN:VEVENT
UID:april@test
DTSTART:20240402T100000Z
DTEND:20240402T110000Z
SUMMARY:Außerhalb
END:VEVENT
END:VCALENDAR
`

func TestResolve_ICSFeed(t *testing.T) {
	body := strings.ReplaceAll(feed, "\n", "\r\n")
	svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(body))
	}), Options{ICSURL: "/", Window: WindowMonth})

	payload, out := svc.Resolve(context.Background(), march, nil)
	if payload.Source != SourceICS {
		t.Fatalf("Source: got %q, want %q (err=%v)", payload.Source, SourceICS, out.Err)
	}

	var titles []string
	for _, ev := range payload.Events {
		titles = append(titles, ev.Start.Format("01-02 15:04")+" "+ev.Title)
	}
	want := []string{
		"03-04 10:00 Mittagstisch",
		"03-18 13:00 Mittagstisch (verschoben)",
		"03-20 00:00 Ohne UID",
		"03-25 10:00 Mittagstisch",
	}
	if strings.Join(titles, "|") != strings.Join(want, "|") {
		t.Errorf("events:\n got %q\nwant %q", titles, want)
	}

	for _, ev := range payload.Events {
		if ev.ID == "" {
			t.Errorf("event without id: %+v", ev)
		}
		if ev.Title == "Ohne UID" && !ev.AllDay {
			t.Errorf("date-only event not all-day: %+v", ev)
		}
	}

	again, _ := svc.Resolve(context.Background(), march, nil)
	if again.Events[2].ID != payload.Events[2].ID {
		t.Errorf("generated id not stable: %q vs %q", again.Events[2].ID, payload.Events[2].ID)
	}
}

func TestDateKey(t *testing.T) {
	if got := DateKey(time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC)); got != "2024-03-05" {
		t.Errorf("got %q, want %q", got, "2024-03-05")
	}
}

func TestExpandICS_RecurringSpanIntoWindow(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)

	events := []icsEvent{
		{
			UID:      "messe",
			Summary:  "Messe",
			Start:    time.Date(2024, 2, 28, 10, 0, 0, 0, time.UTC),
			End:      time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
			RawRRule: "FREQ=WEEKLY;COUNT=2",
		},
		{
			UID:      "markt",
			Summary:  "Markt",
			Start:    time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			End:      time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
			AllDay:   true,
			RawRRule: "FREQ=WEEKLY;COUNT=2",
		},
		{
			// ends exactly when the window opens
			UID:      "vorabend",
			Summary:  "Vorabend",
			Start:    time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			End:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			AllDay:   true,
			RawRRule: "FREQ=YEARLY;COUNT=1",
		},
	}

	got, err := expandICS(events, from, to, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		id         string
		start, end time.Time
	}{
		{"messe_20240228T100000Z", time.Date(2024, 2, 28, 10, 0, 0, 0, time.UTC), time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)},
		{"markt_20240229T000000Z", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
		{"messe_20240306T100000Z", time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC), time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)},
		{"markt_20240307T000000Z", time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)},
	}
	if len(got) != len(want) {
		t.Fatalf("events: got %d, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].ID != w.id || !got[i].Start.Equal(w.start) || !got[i].End.Equal(w.end) {
			t.Errorf("event %d: got %s %v-%v, want %s %v-%v", i, got[i].ID, got[i].Start, got[i].End, w.id, w.start, w.end)
		}
	}
}
