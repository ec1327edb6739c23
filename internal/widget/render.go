package widget

import (
	"embed"
	"html/template"
	"io"
	"time"

	"catersite/internal/menu"
	"catersite/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("widgets").Funcs(template.FuncMap{
	"price":     menu.FormatPrice,
	"dateKey":   DateKey,
	"weekday":   WeekdayShort,
	"accent":    Accent,
	"timeRange": func(start, end time.Time) string { return TimeRange(start, end, start.Location()) },
}).ParseFS(templateFS, "templates/*.html"))

// MenuDebug is the optional source panel under the menu.
type MenuDebug struct {
	Hint      string
	Source    string
	FetchedAt string
	Count     int
}

// MenuView is the data for RenderMenu.
type MenuView struct {
	Cards []Card
	Debug *MenuDebug
}

// NewMenuView groups the payload items and, when debug is set, fills the
// source panel.
func NewMenuView(p model.MenuPayload, status int, preferredOrder []string, debug bool) MenuView {
	v := MenuView{Cards: GroupMenu(p.Items, preferredOrder)}
	if debug {
		fetched := "–"
		if p.FetchedAt != nil {
			fetched = p.FetchedAt.Format("02.01.2006, 15:04:05")
		}
		v.Debug = &MenuDebug{
			Hint:      DescribeSource(p.Source, status),
			Source:    p.Source,
			FetchedAt: fetched,
			Count:     len(p.Items),
		}
	}
	return v
}

// RenderMenu writes the menu cards.
func RenderMenu(w io.Writer, v MenuView) error {
	return templates.ExecuteTemplate(w, "menu", v)
}

// CalendarView is the data for RenderCalendar.
type CalendarView struct {
	Grid   Grid
	Blanks []struct{}
	Events []model.CalendarEvent
	Hover  *HoverSync
	Prev   string
	Next   string
}

// NewCalendarView lays out the month of reference. hover may be nil.
func NewCalendarView(reference time.Time, events []model.CalendarEvent, hover *HoverSync) CalendarView {
	if hover == nil {
		hover = &HoverSync{}
	}
	g := MonthGrid(reference, events)
	return CalendarView{
		Grid:   g,
		Blanks: make([]struct{}, g.Leading),
		Events: MonthEvents(events, reference),
		Hover:  hover,
		Prev:   ShiftMonth(reference, -1).Format("2006-01"),
		Next:   ShiftMonth(reference, 1).Format("2006-01"),
	}
}

// RenderCalendar writes the month grid and event list. The root element
// carries data-ready="true" once rendered.
func RenderCalendar(w io.Writer, v CalendarView) error {
	return templates.ExecuteTemplate(w, "calendar", v)
}

// GalleryView is the data for RenderGallery.
type GalleryView struct {
	Carousel *Carousel
	// Image is the lightbox image, nil when the lightbox is closed.
	Image *model.GalleryImage
	Prev  int
	Next  int
}

// NewGalleryView renders c with the lightbox open on the current image
// when open is set.
func NewGalleryView(c *Carousel, open bool) GalleryView {
	v := GalleryView{Carousel: c}
	n := len(c.Images)
	if n == 0 {
		return v
	}
	v.Prev = ((c.Current-1)%n + n) % n
	v.Next = (c.Current + 1) % n
	if open {
		img := c.Images[c.Current]
		v.Image = &img
	}
	return v
}

// RenderGallery writes the carousel and, when open, the lightbox.
func RenderGallery(w io.Writer, v GalleryView) error {
	return templates.ExecuteTemplate(w, "gallery", v)
}
