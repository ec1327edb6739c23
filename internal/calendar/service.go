// Package calendar resolves upcoming catering events from the Google
// Calendar API or a public iCalendar feed.
package calendar

import (
	"context"
	"sort"
	"strings"
	"time"

	"catersite/internal/google"
	appLog "catersite/internal/log"
	"catersite/internal/model"
	"catersite/internal/source"
)

// Source tags recorded in calendar.json.
const (
	SourceAPI      = "calendar-api"
	SourceICS      = "calendar-ics"
	SourceEmpty    = "calendar-empty"
	SourceFallback = "calendar-fallback"
)

// Options configures the calendar upstreams.
type Options struct {
	CalendarID string
	ICSURL     string
	Window     WindowMode
	Location   *time.Location
	Timeout    time.Duration
}

// Service resolves calendar events.
type Service struct {
	opts    Options
	fetcher *source.Fetcher
	google  *google.Client
}

// NewService wires a calendar Service.
func NewService(opts Options, f *source.Fetcher, g *google.Client) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Window == "" {
		opts.Window = WindowYear
	}
	return &Service{opts: opts, fetcher: f, google: g}
}

// Resolve fetches the events inside the window around now. previous is the
// last emitted event list; it is kept when every upstream fails or returns
// nothing, and SampleEvents are used when it is empty too.
func (s *Service) Resolve(ctx context.Context, now time.Time, previous []model.CalendarEvent) (model.CalendarPayload, source.Outcome[[]model.CalendarEvent]) {
	now = now.In(s.opts.Location)
	from, to := Window(now, s.opts.Window)

	chain := source.Chain[[]model.CalendarEvent]{
		Attempts: []source.Attempt[[]model.CalendarEvent]{
			{
				Name:    SourceAPI,
				FailTag: SourceFallback,
				Run: func(ctx context.Context) ([]model.CalendarEvent, error) {
					return s.fromAPI(ctx, from, to)
				},
			},
			{
				Name:    SourceICS,
				FailTag: SourceFallback,
				Run: func(ctx context.Context) ([]model.CalendarEvent, error) {
					return s.fromICS(ctx, from, to)
				},
			},
		},
		Timeout:  s.opts.Timeout,
		Empty:    func(ev []model.CalendarEvent) bool { return len(ev) == 0 },
		EmptyTag: SourceEmpty,
		Fallback: func() []model.CalendarEvent {
			if len(previous) > 0 {
				out := make([]model.CalendarEvent, len(previous))
				copy(out, previous)
				return out
			}
			return SampleEvents(now)
		},
	}
	out := chain.Resolve(ctx)

	fetchedAt := now.UTC()
	minT, maxT := from.UTC(), to.UTC()
	payload := model.CalendarPayload{
		Events:    out.Value,
		Source:    out.Source,
		FetchedAt: &fetchedAt,
		TimeMin:   &minT,
		TimeMax:   &maxT,
	}
	return payload, out
}

func (s *Service) fromAPI(ctx context.Context, from, to time.Time) ([]model.CalendarEvent, error) {
	if s.opts.CalendarID == "" || !s.google.Configured() {
		return nil, source.ErrUnconfigured
	}
	appLog.Info("fetching calendar events", "time_min", from.Format(time.RFC3339), "time_max", to.Format(time.RFC3339))

	items, err := s.google.Events(ctx, s.opts.CalendarID, from, to)
	if err != nil {
		return nil, err
	}

	events := make([]model.CalendarEvent, 0, len(items))
	for _, it := range items {
		if strings.EqualFold(it.Status, "cancelled") {
			continue
		}
		ev, err := s.mapEvent(it)
		if err != nil {
			appLog.Warn("calendar event skipped", "id", it.ID, "error", err.Error())
			continue
		}
		events = append(events, ev)
	}
	sortEvents(events)
	appLog.Info("calendar events received", "count", len(events))
	return events, nil
}

func (s *Service) mapEvent(it google.Event) (model.CalendarEvent, error) {
	start, allDay, err := NormalizeTime(it.Start, s.opts.Location)
	if err != nil {
		return model.CalendarEvent{}, err
	}
	end, _, err := NormalizeTime(it.End, s.opts.Location)
	if err != nil || end.Before(start) {
		end = start
	}
	return model.CalendarEvent{
		ID:       it.ID,
		Title:    it.Summary,
		Location: it.Location,
		Start:    start,
		End:      end,
		AllDay:   allDay,
	}, nil
}

func (s *Service) fromICS(ctx context.Context, from, to time.Time) ([]model.CalendarEvent, error) {
	if s.opts.ICSURL == "" {
		return nil, source.ErrUnconfigured
	}
	appLog.Info("fetching ics feed", "url", source.RedactURL(s.opts.ICSURL))

	resp, err := s.fetcher.Get(ctx, s.opts.ICSURL, "text/calendar")
	if err != nil {
		return nil, err
	}
	parsed, err := parseICS(resp.Body, s.opts.Location)
	if err != nil {
		return nil, err
	}
	return expandICS(parsed, from, to, s.opts.Location)
}

func sortEvents(events []model.CalendarEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
}
