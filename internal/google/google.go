// Package google is a thin API-key client for the Sheets values, Drive
// files and Calendar events REST endpoints.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	appLog "catersite/internal/log"
	"catersite/internal/source"
	"catersite/internal/tabular"
)

const (
	DefaultSheetsBase   = "https://sheets.googleapis.com/v4"
	DefaultDriveBase    = "https://www.googleapis.com/drive/v3"
	DefaultCalendarBase = "https://www.googleapis.com/calendar/v3"
)

// Client talks to Google APIs with a plain API key.
type Client struct {
	fetcher *source.Fetcher
	apiKey  string

	// Base URLs, overridable for tests.
	SheetsBase   string
	DriveBase    string
	CalendarBase string
}

// NewClient returns a Client using the public Google endpoints.
func NewClient(f *source.Fetcher, apiKey string) *Client {
	return &Client{
		fetcher:      f,
		apiKey:       apiKey,
		SheetsBase:   DefaultSheetsBase,
		DriveBase:    DefaultDriveBase,
		CalendarBase: DefaultCalendarBase,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// SheetValues reads rng of a spreadsheet through the values API.
func (c *Client) SheetValues(ctx context.Context, sheetID, rng string) ([]tabular.Record, error) {
	u := fmt.Sprintf("%s/spreadsheets/%s/values/%s?key=%s",
		c.SheetsBase, url.PathEscape(sheetID), url.PathEscape(rng), url.QueryEscape(c.apiKey))

	resp, err := c.fetcher.Get(ctx, u, "application/json")
	if err != nil {
		return nil, err
	}
	return tabular.ParseJSON(string(resp.Body)), nil
}

// File is the subset of Drive file metadata we request.
type File struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	MimeType      string    `json:"mimeType"`
	ThumbnailLink string    `json:"thumbnailLink,omitempty"`
	ModifiedTime  time.Time `json:"modifiedTime"`
}

// maxPages bounds pagination of list endpoints.
const maxPages = 50

// ListFiles runs a Drive files.list query across all drives, following
// nextPageToken.
func (c *Client) ListFiles(ctx context.Context, query string) ([]File, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("fields", "nextPageToken,files(id,name,mimeType,thumbnailLink,modifiedTime)")
	q.Set("orderBy", "modifiedTime desc")
	q.Set("supportsAllDrives", "true")
	q.Set("includeItemsFromAllDrives", "true")
	q.Set("pageSize", "200")
	q.Set("key", c.apiKey)

	var files []File
	for page := 0; ; page++ {
		resp, err := c.fetcher.Get(ctx, c.DriveBase+"/files?"+q.Encode(), "application/json")
		if err != nil {
			return nil, err
		}

		var payload struct {
			Files         []File `json:"files"`
			NextPageToken string `json:"nextPageToken"`
		}
		if err := json.Unmarshal(resp.Body, &payload); err != nil {
			return nil, fmt.Errorf("decode drive listing: %w", err)
		}
		files = append(files, payload.Files...)

		if payload.NextPageToken == "" {
			return files, nil
		}
		if page+1 >= maxPages {
			appLog.Warn("drive listing truncated", "pages", maxPages, "files", len(files))
			return files, nil
		}
		q.Set("pageToken", payload.NextPageToken)
	}
}

// Download fetches a file's raw bytes (alt=media).
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	u := fmt.Sprintf("%s/files/%s?alt=media&supportsAllDrives=true&key=%s",
		c.DriveBase, url.PathEscape(fileID), url.QueryEscape(c.apiKey))
	resp, err := c.fetcher.Get(ctx, u, "")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Export converts a native Google document to mimeType and returns the bytes.
func (c *Client) Export(ctx context.Context, fileID, mimeType string) ([]byte, error) {
	u := fmt.Sprintf("%s/files/%s/export?mimeType=%s&key=%s",
		c.DriveBase, url.PathEscape(fileID), url.QueryEscape(mimeType), url.QueryEscape(c.apiKey))
	resp, err := c.fetcher.Get(ctx, u, "")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// EventTime is the start/end object of a Calendar event: either an
// all-day Date ("2024-03-05") or a DateTime (RFC 3339).
type EventTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Event is the subset of a Calendar event we consume.
type Event struct {
	ID       string    `json:"id"`
	Status   string    `json:"status"`
	Summary  string    `json:"summary"`
	Location string    `json:"location"`
	Start    EventTime `json:"start"`
	End      EventTime `json:"end"`
}

// Events lists single (expanded) events overlapping [timeMin, timeMax].
func (c *Client) Events(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	if calendarID == "" {
		return nil, errors.New("calendar id is empty")
	}
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("timeMin", timeMin.Format(time.RFC3339))
	q.Set("timeMax", timeMax.Format(time.RFC3339))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")
	q.Set("maxResults", "2500")

	var events []Event
	for page := 0; ; page++ {
		u := fmt.Sprintf("%s/calendars/%s/events?%s", c.CalendarBase, url.PathEscape(calendarID), q.Encode())
		resp, err := c.fetcher.Get(ctx, u, "application/json")
		if err != nil {
			return nil, err
		}

		var payload struct {
			Items         []Event `json:"items"`
			NextPageToken string  `json:"nextPageToken"`
		}
		if err := json.Unmarshal(resp.Body, &payload); err != nil {
			return nil, fmt.Errorf("decode calendar events: %w", err)
		}
		events = append(events, payload.Items...)

		if payload.NextPageToken == "" {
			return events, nil
		}
		if page+1 >= maxPages {
			appLog.Warn("calendar events truncated", "pages", maxPages, "events", len(events))
			return events, nil
		}
		q.Set("pageToken", payload.NextPageToken)
	}
}
