package menu

import (
	"context"
	"fmt"
	"strings"
	"time"

	"catersite/internal/google"
	appLog "catersite/internal/log"
	"catersite/internal/model"
	"catersite/internal/source"
	"catersite/internal/tabular"
)

// Source tags recorded in menu.json.
const (
	SourceSheet    = "sheet"
	SourceSheetAPI = "sheet-api"
	SourceDrive    = "drive"
)

const (
	mimeGoogleSheet = "application/vnd.google-apps.spreadsheet"
	mimeXLSX        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeCSV         = "text/csv"
)

// Options locates the menu upstreams. Empty fields disable the matching
// source.
type Options struct {
	SheetURL   string
	SheetID    string
	SheetRange string
	FolderID   string
	Timeout    time.Duration
}

// Service resolves the menu from the configured upstreams.
type Service struct {
	opts    Options
	fetcher *source.Fetcher
	google  *google.Client
}

// NewService wires a menu Service.
func NewService(opts Options, f *source.Fetcher, g *google.Client) *Service {
	if opts.SheetRange == "" {
		opts.SheetRange = "A1:Z"
	}
	return &Service{opts: opts, fetcher: f, google: g}
}

// Resolve tries the explicit sheet URL, the Sheets API and the Drive
// workbook in that order and falls back to FallbackItems.
func (s *Service) Resolve(ctx context.Context) source.Outcome[[]model.MenuItem] {
	chain := source.Chain[[]model.MenuItem]{
		Attempts: []source.Attempt[[]model.MenuItem]{
			{Name: SourceSheet, Run: s.fromSheetURL},
			{Name: SourceSheetAPI, Run: s.fromSheetsAPI},
			{Name: SourceDrive, Run: s.fromDrive},
		},
		Timeout:  s.opts.Timeout,
		Empty:    func(items []model.MenuItem) bool { return len(items) == 0 },
		Fallback: FallbackItems,
	}
	return chain.Resolve(ctx)
}

// Payload resolves the menu and wraps it for menu.json.
func (s *Service) Payload(ctx context.Context, now time.Time) (model.MenuPayload, source.Outcome[[]model.MenuItem]) {
	out := s.Resolve(ctx)
	fetchedAt := now.UTC()
	return model.MenuPayload{Items: out.Value, Source: out.Source, FetchedAt: &fetchedAt}, out
}

func (s *Service) fromSheetURL(ctx context.Context) ([]model.MenuItem, error) {
	if s.opts.SheetURL == "" {
		return nil, source.ErrUnconfigured
	}
	appLog.Info("fetching menu sheet", "url", source.RedactURL(s.opts.SheetURL))

	resp, err := s.fetcher.GetTabular(ctx, s.opts.SheetURL)
	if err != nil {
		return nil, err
	}
	return ParseItems(string(resp.Body), resp.ContentType), nil
}

func (s *Service) fromSheetsAPI(ctx context.Context) ([]model.MenuItem, error) {
	if s.opts.SheetID == "" || !s.google.Configured() {
		return nil, source.ErrUnconfigured
	}
	appLog.Info("fetching menu via sheets api", "range", s.opts.SheetRange)

	recs, err := s.google.SheetValues(ctx, s.opts.SheetID, s.opts.SheetRange)
	if err != nil {
		return nil, err
	}
	return FilterUsable(MapRows(recs)), nil
}

func (s *Service) fromDrive(ctx context.Context) ([]model.MenuItem, error) {
	if s.opts.FolderID == "" || !s.google.Configured() {
		return nil, source.ErrUnconfigured
	}

	query := fmt.Sprintf("'%s' in parents and trashed = false and (mimeType = '%s' or mimeType = '%s' or mimeType = '%s')",
		escapeQuery(s.opts.FolderID), mimeGoogleSheet, mimeXLSX, mimeCSV)
	files, err := s.google.ListFiles(ctx, query)
	if err != nil {
		return nil, err
	}
	file, ok := newestFile(files)
	if !ok {
		appLog.Warn("no menu workbook in drive folder")
		return nil, nil
	}
	appLog.Info("fetching menu workbook from drive", "file", file.Name, "mime", file.MimeType)

	var recs []tabular.Record
	switch file.MimeType {
	case mimeGoogleSheet:
		data, err := s.google.Export(ctx, file.ID, mimeXLSX)
		if err != nil {
			return nil, err
		}
		recs, err = tabular.ParseWorkbook(data, "")
		if err != nil {
			return nil, err
		}
	case mimeXLSX:
		data, err := s.google.Download(ctx, file.ID)
		if err != nil {
			return nil, err
		}
		recs, err = tabular.ParseWorkbook(data, "")
		if err != nil {
			return nil, err
		}
	default:
		data, err := s.google.Download(ctx, file.ID)
		if err != nil {
			return nil, err
		}
		if tabular.LooksLikeHTML(data) {
			return nil, source.ErrHTMLResponse
		}
		recs = tabular.ParseDelimited(string(data))
	}
	return FilterUsable(MapRows(recs)), nil
}

func newestFile(files []google.File) (google.File, bool) {
	if len(files) == 0 {
		return google.File{}, false
	}
	best := files[0]
	for _, f := range files[1:] {
		if f.ModifiedTime.After(best.ModifiedTime) {
			best = f
		}
	}
	return best, true
}

// escapeQuery escapes a value for a single-quoted Drive query literal.
func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
