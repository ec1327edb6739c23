package widget

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"catersite/internal/model"
)

func TestGroupMenu(t *testing.T) {
	items := []model.MenuItem{
		{Title: "Pommes", Category: "Beilagen", SuperCategory: "Add-ons"},
		{Title: "Smash", Category: "Burger"},
		{Title: "Coleslaw", Category: "Salate", SuperCategory: "Add-ons"},
		{Title: "Mystery"},
		{Title: "Süßkartoffel", Category: "Beilagen", SuperCategory: " Add-ons "},
	}

	cards := GroupMenu(items, nil)
	var titles []string
	for _, c := range cards {
		titles = append(titles, c.Title)
	}
	if got, want := strings.Join(titles, ","), "Add-ons,Burger,Weitere Highlights"; got != want {
		t.Fatalf("cards: got %q, want %q", got, want)
	}
	addons := cards[0]
	if len(addons.Sections) != 2 || addons.Sections[0].Name != "Beilagen" || len(addons.Sections[0].Items) != 2 {
		t.Errorf("Add-ons sections: got %+v", addons.Sections)
	}

	ordered := GroupMenu(items, []string{"burger", "Weitere Highlights"})
	titles = titles[:0]
	for _, c := range ordered {
		titles = append(titles, c.Title)
	}
	if got, want := strings.Join(titles, ","), "Burger,Weitere Highlights,Add-ons"; got != want {
		t.Errorf("ordered cards: got %q, want %q", got, want)
	}
}

func TestDotWindow(t *testing.T) {
	tests := []struct {
		current, total     int
		wantStart, wantEnd int
	}{
		{0, 3, 0, 2},
		{10, 20, 8, 12},
		{1, 20, 0, 4},
		{2, 20, 0, 4},
		{3, 20, 1, 5},
		{17, 20, 15, 19},
		{19, 20, 15, 19},
		{4, 5, 0, 4},
	}
	for _, tt := range tests {
		s, e := DotWindow(tt.current, tt.total)
		if s != tt.wantStart || e != tt.wantEnd {
			t.Errorf("DotWindow(%d, %d) = [%d,%d], want [%d,%d]", tt.current, tt.total, s, e, tt.wantStart, tt.wantEnd)
		}
	}
}

func images(n int) []model.GalleryImage {
	out := make([]model.GalleryImage, n)
	for i := range out {
		out[i] = model.GalleryImage{URL: "/full/" + string(rune('a'+i)), Thumbnail: "/thumb/" + string(rune('a'+i))}
	}
	return out
}

func TestCarousel(t *testing.T) {
	c := NewCarousel(images(20))
	c.Prev()
	if c.Current != 19 {
		t.Errorf("Prev from 0: got %d, want 19", c.Current)
	}
	c.Next()
	if c.Current != 0 {
		t.Errorf("Next from 19: got %d, want 0", c.Current)
	}
	c.Goto(-21)
	if c.Current != 19 {
		t.Errorf("Goto(-21): got %d, want 19", c.Current)
	}
	c.Goto(2)
	if got := c.Counter(); got != "3 / 20" {
		t.Errorf("Counter: got %q, want %q", got, "3 / 20")
	}

	dots := c.Dots()
	if len(dots) != 5 || dots[0].Index != 0 || !dots[2].Active || dots[2].Label != "Bild 3 von 20" {
		t.Errorf("Dots: got %+v", dots)
	}

	if c.Loading(1) != "eager" || c.Loading(2) != "lazy" {
		t.Errorf("Loading: got %q/%q", c.Loading(1), c.Loading(2))
	}
	order := c.PreloadOrder()
	if len(order) != 18+20 || order[0] != "/thumb/c" || order[18] != "/full/a" {
		t.Errorf("PreloadOrder: got %d entries starting %v", len(order), order[:1])
	}

	var empty Carousel
	empty.Next()
	if empty.Current != 0 || empty.Dots() != nil || empty.Counter() != "0 / 0" {
		t.Errorf("empty carousel: got %+v", empty)
	}
}

func TestMonthGrid(t *testing.T) {
	ref := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	at := func(day, hour int) time.Time { return time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC) }
	events := []model.CalendarEvent{
		{ID: "a", Title: "A", Start: at(5, 9), End: at(5, 10)},
		{ID: "b", Title: "B", Start: at(5, 11), End: at(5, 12)},
		{ID: "c", Title: "C", Start: at(5, 13), End: at(5, 14)},
		{ID: "d", Title: "D", Start: at(5, 15), End: at(5, 16)},
		{ID: "e", Title: "E", Start: at(5, 17), End: at(5, 18)},
		{ID: "f", Title: "F", Start: at(13, 0), End: at(13, 20)},
		{ID: "x", Title: "April", Start: time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)},
	}

	g := MonthGrid(ref, events)
	if g.Leading != 4 {
		t.Errorf("Leading: got %d, want 4 (March 2024 starts on a Friday)", g.Leading)
	}
	if len(g.Days) != 31 {
		t.Fatalf("days: got %d, want 31", len(g.Days))
	}
	if g.Label != "März 2024" {
		t.Errorf("Label: got %q", g.Label)
	}

	fifth := g.Days[4]
	if fifth.Key != "2024-03-05" || !fifth.Busy || len(fifth.Events) != 3 || fifth.More != 2 {
		t.Errorf("5th: got key=%q busy=%v chips=%d more=%d", fifth.Key, fifth.Busy, len(fifth.Events), fifth.More)
	}
	if fifth.MoreLabel() != "+2 weitere" {
		t.Errorf("MoreLabel: got %q", fifth.MoreLabel())
	}
	if g.Days[5].Busy || g.Days[5].MoreLabel() != "" {
		t.Errorf("6th should be free: %+v", g.Days[5])
	}

	list := MonthEvents(events, ref)
	if len(list) != 6 || list[5].ID != "f" {
		t.Errorf("MonthEvents: got %d events", len(list))
	}
}

func TestHoverSync(t *testing.T) {
	var h HoverSync
	h.HoverDay(DayCell{Key: "2024-03-05", Busy: true})
	if !h.DayActive("2024-03-05") || !h.EventActive("2024-03-05") || h.DayActive("2024-03-06") {
		t.Errorf("after hovering busy day: active=%q", h.Active())
	}
	h.HoverDay(DayCell{Key: "2024-03-06"})
	if h.Active() != "" {
		t.Errorf("free day should clear: got %q", h.Active())
	}
	h.Hover("2024-03-13")
	h.Hover("")
	if h.DayActive("") {
		t.Error("empty key must never be active")
	}
}

func TestShiftMonth(t *testing.T) {
	got := ShiftMonth(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), 1)
	if got.Month() != time.February || got.Day() != 1 {
		t.Errorf("got %v, want 2024-02-01", got)
	}
}

func TestRenderCalendar(t *testing.T) {
	ref := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	events := []model.CalendarEvent{{
		ID: "1", Title: "Sommerfest <Köln>", Location: "Köln",
		Start: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), End: time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC),
	}}
	hover := &HoverSync{}
	hover.Hover("2024-03-05")

	var buf bytes.Buffer
	if err := RenderCalendar(&buf, NewCalendarView(ref, events, hover)); err != nil {
		t.Fatalf("RenderCalendar: %v", err)
	}
	html := buf.String()
	for _, want := range []string{
		`data-ready="true"`,
		`data-month="2024-03"`,
		`calendar__day--busy calendar__day--active" data-date-key="2024-03-05"`,
		`month-event month-event--active`,
		`Sommerfest &lt;Köln&gt;`,
		`10:00 – 18:00`,
		`?month=2024-02`,
		`?month=2024-04`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if n := strings.Count(html, "calendar__day-number"); n != 31 {
		t.Errorf("day cells: got %d, want 31", n)
	}
}

func TestRenderMenu(t *testing.T) {
	p := model.MenuPayload{
		Items:  []model.MenuItem{{Title: "Bowl", Price: "10,5", Category: "Bowls", Unit: "pro Portion"}, {Title: "Wasser", Price: "", Category: "Getränke"}},
		Source: "sheet",
	}
	var buf bytes.Buffer
	if err := RenderMenu(&buf, NewMenuView(p, 200, nil, true)); err != nil {
		t.Fatalf("RenderMenu: %v", err)
	}
	html := buf.String()
	for _, want := range []string{"10,50 €", "auf Anfrage", "pro Portion", "Menü direkt aus Google Sheet geladen", "<h3>Getränke</h3>"} {
		if !strings.Contains(html, want) {
			t.Errorf("output missing %q", want)
		}
	}

	buf.Reset()
	if err := RenderMenu(&buf, NewMenuView(model.MenuPayload{}, 200, nil, false)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Keine Produkte gefunden.") {
		t.Errorf("empty menu: got %s", buf.String())
	}
}

func TestRenderGallery(t *testing.T) {
	c := NewCarousel(images(7))
	c.Goto(6)

	var buf bytes.Buffer
	if err := RenderGallery(&buf, NewGalleryView(c, true)); err != nil {
		t.Fatalf("RenderGallery: %v", err)
	}
	html := buf.String()
	for _, want := range []string{`id="lightbox-counter">7 / 7<`, `src="/full/g"`, `href="?i=0" aria-label="Nächstes Bild"`, `href="?i=5" aria-label="Vorheriges Bild"`, `data-accent="feature"`} {
		if !strings.Contains(html, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if n := strings.Count(html, "data-real-index"); n != 5 {
		t.Errorf("dots: got %d, want 5", n)
	}
}

func TestDescribeSource(t *testing.T) {
	tests := []struct {
		source string
		status int
		want   string
	}{
		{"sheet-api", 200, "Menü über Google Sheets API geladen"},
		{"sheet-error", 403, "403: API-Key oder Freigabe für Sheet/Drive fehlt"},
		{"sheet-error", 502, "Fehler beim Laden, Fallback aktiv"},
		{"calendar-api", 200, "Quelle: calendar-api"},
	}
	for _, tt := range tests {
		if got := DescribeSource(tt.source, tt.status); got != tt.want {
			t.Errorf("DescribeSource(%q, %d) = %q, want %q", tt.source, tt.status, got, tt.want)
		}
	}
}
