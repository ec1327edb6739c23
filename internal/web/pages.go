package web

import (
	"bytes"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"catersite/internal/calendar"
	"catersite/internal/emit"
	"catersite/internal/gallery"
	appLog "catersite/internal/log"
	"catersite/internal/model"
	"catersite/internal/widget"
)

// handleMenuPage renders the menu cards from the emitted menu file.
//
// GET /menu?debug=1
func (s *Server) handleMenuPage(w http.ResponseWriter, r *http.Request) {
	p := s.loadMenu()
	view := widget.NewMenuView(p, http.StatusOK, s.cfg.Menu.CategoryOrder, isTruthy(r.URL.Query().Get("debug")))
	s.renderHTML(w, func(buf *bytes.Buffer) error { return widget.RenderMenu(buf, view) })
}

// handleCalendarPage renders one month of the emitted calendar.
//
// GET /calendar?month=2024-03&hover=2024-03-05
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	loc := s.cfg.Location()
	ref := s.now().In(loc)
	if m := r.URL.Query().Get("month"); m != "" {
		t, err := time.ParseInLocation("2006-01", m, loc)
		if err != nil {
			http.Error(w, "month must be YYYY-MM", http.StatusBadRequest)
			return
		}
		ref = t
	}

	var events []model.CalendarEvent
	p, err := emit.ReadCalendar(s.paths.Calendar)
	switch {
	case err == nil:
		events = p.Events
	case errors.Is(err, fs.ErrNotExist):
		events = calendar.SampleEvents(ref)
	default:
		appLog.Warn("calendar file unreadable, showing samples", "error", err.Error())
		events = calendar.SampleEvents(ref)
	}

	hover := &widget.HoverSync{}
	hover.Hover(r.URL.Query().Get("hover"))
	view := widget.NewCalendarView(ref, events, hover)
	s.renderHTML(w, func(buf *bytes.Buffer) error { return widget.RenderCalendar(buf, view) })
}

// handleGalleryPage renders the carousel; open=1 adds the lightbox.
//
// GET /gallery?i=3&open=1
func (s *Server) handleGalleryPage(w http.ResponseWriter, r *http.Request) {
	var images []model.GalleryImage
	p, err := emit.ReadGallery(s.paths.Gallery)
	if err == nil && len(p.Items) > 0 {
		images = p.Items
	} else {
		images = gallery.FallbackImages()
	}

	c := widget.NewCarousel(images)
	c.Goto(parseIntDefault(r.URL.Query().Get("i"), 0))
	view := widget.NewGalleryView(c, isTruthy(r.URL.Query().Get("open")))
	s.renderHTML(w, func(buf *bytes.Buffer) error { return widget.RenderGallery(buf, view) })
}

// renderHTML renders into a buffer first so a template error still yields
// a clean 500.
func (s *Server) renderHTML(w http.ResponseWriter, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		appLog.Error("template render failed", err)
		http.Error(w, "Inhalt konnte nicht geladen werden, bitte Konfiguration prüfen.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
