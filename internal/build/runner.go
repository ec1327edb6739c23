// Package build runs one content build: fetch every dataset, fall back
// where needed and write the static JSON files.
package build

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"golang.org/x/sync/errgroup"

	"catersite/internal/calendar"
	"catersite/internal/config"
	"catersite/internal/emit"
	"catersite/internal/gallery"
	"catersite/internal/google"
	appLog "catersite/internal/log"
	"catersite/internal/menu"
	"catersite/internal/model"
	"catersite/internal/source"
)

// Dataset names used in reports.
const (
	DatasetMenu     = "menu"
	DatasetGallery  = "gallery"
	DatasetCalendar = "calendar"
)

// Services bundles the dataset resolvers built from one configuration.
type Services struct {
	Menu     *menu.Service
	Gallery  *gallery.Service
	Calendar *calendar.Service
}

// NewServices wires the resolvers for cfg with a shared HTTP fetcher.
func NewServices(cfg *config.Config) Services {
	f := source.NewFetcher(cfg.Timeout())
	g := google.NewClient(f, cfg.APIKey)
	return NewServicesWith(cfg, f, g)
}

// NewServicesWith wires the resolvers on top of an existing fetcher and
// Google client.
func NewServicesWith(cfg *config.Config, f *source.Fetcher, g *google.Client) Services {
	paths := emit.PathsFor(cfg.PublicDir)
	return Services{
		Menu: menu.NewService(menu.Options{
			SheetURL:   cfg.Menu.SheetURL,
			SheetID:    cfg.Menu.SheetID,
			SheetRange: cfg.Menu.SheetRange,
			FolderID:   cfg.Menu.FolderID,
			Timeout:    cfg.Timeout(),
		}, f, g),
		Gallery: gallery.NewService(gallery.Options{
			FolderID: cfg.Gallery.FolderID,
			AssetDir: paths.AssetDir,
			Timeout:  cfg.Timeout(),
		}, g),
		Calendar: calendar.NewService(calendar.Options{
			CalendarID: cfg.Calendar.ID,
			ICSURL:     cfg.Calendar.ICSURL,
			Window:     calendar.WindowMode(cfg.Calendar.Window),
			Location:   cfg.Location(),
			Timeout:    cfg.Timeout(),
		}, f, g),
	}
}

// Runner executes builds.
type Runner struct {
	Services Services
	Paths    emit.Paths
	// Now is the build clock; time.Now when nil.
	Now func() time.Time
}

// NewRunner builds a Runner for cfg.
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{Services: NewServices(cfg), Paths: emit.PathsFor(cfg.PublicDir)}
}

// Run builds the menu first, then gallery and calendar concurrently. Every
// dataset is written even when its upstream failed; the report says which
// source each file came from.
func (r *Runner) Run(ctx context.Context) Report {
	started := r.now()
	appLog.Info("content build started", "public", r.Paths.Menu)

	var rep Report
	rep.Results = make([]Result, 3)

	rep.Results[0] = r.buildMenu(ctx, started)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rep.Results[1] = r.buildGallery(gctx, started)
		return nil
	})
	g.Go(func() error {
		rep.Results[2] = r.buildCalendar(gctx, started)
		return nil
	})
	_ = g.Wait()

	rep.Duration = r.now().Sub(started)
	appLog.Info("content build finished", "duration", rep.Duration.String(), "level", rep.Level().String())
	return rep
}

func (r *Runner) buildMenu(ctx context.Context, now time.Time) Result {
	payload, out := r.Services.Menu.Payload(ctx, now)
	res := newResult(DatasetMenu, out.Source, len(payload.Items), out.Err)

	for _, p := range []string{r.Paths.Menu, r.Paths.MenuMirror} {
		if err := emit.WriteJSON(p, payload); err != nil {
			return res.writeFailed(p, err)
		}
	}
	res.Path = r.Paths.MenuMirror
	appLog.Info("menu written", "path", r.Paths.Menu, "items", res.Count, "source", res.Source)
	return res
}

func (r *Runner) buildGallery(ctx context.Context, now time.Time) Result {
	var previous []model.GalleryImage
	if prev, err := emit.ReadGallery(r.Paths.Gallery); err == nil {
		previous = prev.Items
	} else if !errors.Is(err, fs.ErrNotExist) {
		appLog.Warn("previous gallery unreadable", "path", r.Paths.Gallery, "error", err.Error())
	}

	payload, out := r.Services.Gallery.Resolve(ctx, now, previous)
	res := newResult(DatasetGallery, out.Source, len(payload.Items), out.Err)
	if errs := gallery.Validate(payload.Items); len(errs) > 0 {
		res.Problems = append(res.Problems, errs...)
	}

	if err := emit.WriteJSON(r.Paths.Gallery, payload); err != nil {
		return res.writeFailed(r.Paths.Gallery, err)
	}
	res.Path = r.Paths.Gallery
	appLog.Info("gallery written", "path", r.Paths.Gallery, "items", res.Count, "source", res.Source)
	return res
}

func (r *Runner) buildCalendar(ctx context.Context, now time.Time) Result {
	var previous []model.CalendarEvent
	if prev, err := emit.ReadCalendar(r.Paths.Calendar); err == nil {
		previous = prev.Events
	} else if !errors.Is(err, fs.ErrNotExist) {
		appLog.Warn("previous calendar unreadable", "path", r.Paths.Calendar, "error", err.Error())
	}

	payload, out := r.Services.Calendar.Resolve(ctx, now, previous)
	res := newResult(DatasetCalendar, out.Source, len(payload.Events), out.Err)

	if err := emit.WriteJSON(r.Paths.Calendar, payload); err != nil {
		return res.writeFailed(r.Paths.Calendar, err)
	}
	res.Path = r.Paths.Calendar
	appLog.Info("calendar written", "path", r.Paths.Calendar, "events", res.Count, "source", res.Source)
	return res
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
