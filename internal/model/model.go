package model

import "time"

// MenuItem represents one sellable product line as read from the menu sheet.
// All fields are display strings; numeric sheet cells arrive stringified.
type MenuItem struct {
	Title         string `json:"title"`
	Price         string `json:"price"`
	Description   string `json:"description,omitempty"`
	Unit          string `json:"unit,omitempty"`
	Notes         string `json:"notes,omitempty"`
	Category      string `json:"category,omitempty"`
	SuperCategory string `json:"superCategory,omitempty"`
	Quantity      string `json:"quantity,omitempty"`

	// Extra holds columns that did not match any known header, keyed by the
	// lower-cased header name.
	Extra map[string]string `json:"extra,omitempty"`
}

// Usable reports whether the row carries a title or a category. Rows
// without either are blank or garbage rows from the spreadsheet.
func (m MenuItem) Usable() bool {
	return m.Title != "" || m.Category != ""
}

// GalleryImage is one gallery picture, either a local asset path or a
// hot-linked Drive URL.
type GalleryImage struct {
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Alt       string `json:"alt,omitempty"`
}

// CalendarEvent is a single concrete event occurrence.
// Start is never after End.
type CalendarEvent struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Location string    `json:"location,omitempty"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	AllDay   bool      `json:"allDay"`
}

// MenuPayload is the shape of public/menu.json and the menu API response.
type MenuPayload struct {
	Items     []MenuItem `json:"items"`
	Source    string     `json:"source"`
	FetchedAt *time.Time `json:"fetchedAt,omitempty"`
}

// GalleryPayload is the shape of public/data/gallery.json.
type GalleryPayload struct {
	Items     []GalleryImage `json:"items"`
	Source    string         `json:"source,omitempty"`
	FetchedAt *time.Time     `json:"fetchedAt,omitempty"`
}

// CalendarPayload is the shape of public/data/calendar.json.
type CalendarPayload struct {
	Events    []CalendarEvent `json:"events"`
	Source    string          `json:"source"`
	FetchedAt *time.Time      `json:"fetchedAt,omitempty"`
	TimeMin   *time.Time      `json:"timeMin,omitempty"`
	TimeMax   *time.Time      `json:"timeMax,omitempty"`
}
