// Package gallery mirrors the Drive gallery folder into local assets.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"catersite/internal/google"
	appLog "catersite/internal/log"
	"catersite/internal/model"
	"catersite/internal/source"
)

// Source tags recorded in gallery.json.
const (
	SourceDrive     = "drive"
	SourceEmpty     = "drive-empty"
	SourceListError = "drive-list-error"
)

// DefaultAlt labels images whose Drive file has no name, followed by the
// image's position.
const DefaultAlt = "Galeriebild"

// DefaultURLPrefix is where the asset directory is served.
const DefaultURLPrefix = "/assets/gallery/"

// Options configures the gallery source.
type Options struct {
	FolderID string
	// AssetDir receives downloaded images, usually <public>/assets/gallery.
	AssetDir  string
	URLPrefix string
	// Timeout bounds the listing and each download.
	Timeout time.Duration
}

// Service resolves the gallery.
type Service struct {
	opts   Options
	google *google.Client
}

// NewService wires a gallery Service.
func NewService(opts Options, g *google.Client) *Service {
	if opts.URLPrefix == "" {
		opts.URLPrefix = DefaultURLPrefix
	}
	if !strings.HasSuffix(opts.URLPrefix, "/") {
		opts.URLPrefix += "/"
	}
	return &Service{opts: opts, google: g}
}

// Resolve lists the Drive folder and downloads every image. previous is
// the last emitted gallery; it is kept when Drive fails or is empty, and
// FallbackImages are used when it is empty too.
func (s *Service) Resolve(ctx context.Context, now time.Time, previous []model.GalleryImage) (model.GalleryPayload, source.Outcome[[]model.GalleryImage]) {
	chain := source.Chain[[]model.GalleryImage]{
		Attempts: []source.Attempt[[]model.GalleryImage]{
			{Name: SourceDrive, FailTag: SourceListError, Run: s.fromDrive},
		},
		Empty:    func(items []model.GalleryImage) bool { return len(items) == 0 },
		EmptyTag: SourceEmpty,
		Fallback: func() []model.GalleryImage {
			if len(previous) > 0 {
				out := make([]model.GalleryImage, len(previous))
				copy(out, previous)
				return out
			}
			return FallbackImages()
		},
	}
	out := chain.Resolve(ctx)

	fetchedAt := now.UTC()
	return model.GalleryPayload{Items: out.Value, Source: out.Source, FetchedAt: &fetchedAt}, out
}

func (s *Service) fromDrive(ctx context.Context) ([]model.GalleryImage, error) {
	if s.opts.FolderID == "" || !s.google.Configured() {
		return nil, source.ErrUnconfigured
	}

	query := fmt.Sprintf("'%s' in parents and mimeType contains 'image/' and trashed = false",
		strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s.opts.FolderID))

	listCtx, cancel := s.withTimeout(ctx)
	files, err := s.google.ListFiles(listCtx, query)
	cancel()
	if err != nil {
		return nil, err
	}
	appLog.Info("drive gallery files found", "count", len(files))

	items := make([]model.GalleryImage, 0, len(files))
	for _, f := range files {
		if f.ID == "" {
			continue
		}
		img := s.mirror(ctx, f)
		if img.Thumbnail == "" {
			img.Thumbnail = img.URL
		}
		img.Alt = strings.TrimSpace(f.Name)
		if img.Alt == "" {
			img.Alt = fmt.Sprintf("%s %d", DefaultAlt, len(items)+1)
		}
		items = append(items, img)
	}
	return items, nil
}

// mirror downloads f into the asset directory. On failure it returns the
// hot-linked Drive URLs instead.
func (s *Service) mirror(ctx context.Context, f google.File) model.GalleryImage {
	name := filepath.Base(f.ID + ResolveExtension(f.Name, f.MimeType))

	dlCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.download(dlCtx, f.ID, name)
	if err != nil {
		appLog.Warn("gallery download failed, using drive links", "id", f.ID, "error", err.Error())
		return model.GalleryImage{URL: HotlinkURL(f.ID), Thumbnail: ThumbnailURL(f.ID)}
	}
	local := s.opts.URLPrefix + name
	return model.GalleryImage{URL: local, Thumbnail: local}
}

func (s *Service) download(ctx context.Context, id, name string) error {
	if s.opts.AssetDir == "" {
		return errors.New("asset directory not configured")
	}
	data, err := s.google.Download(ctx, id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.opts.AssetDir, 0o755); err != nil {
		return fmt.Errorf("create asset dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.opts.AssetDir, name), data, 0o644); err != nil {
		return fmt.Errorf("write asset: %w", err)
	}
	return nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.Timeout)
}

// ResolveExtension picks the asset file extension from the file name, or
// from the MIME type when the name has none.
func ResolveExtension(name, mimeType string) string {
	if i := strings.IndexByte(name, '?'); i >= 0 {
		name = name[:i]
	}
	if ext := path.Ext(name); ext != "" {
		return ext
	}
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".img"
	}
}

// HotlinkURL is the public Drive view URL of a file.
func HotlinkURL(id string) string {
	return "https://drive.google.com/uc?export=view&id=" + url.QueryEscape(id)
}

// ThumbnailURL is the 600px Drive thumbnail of a file.
func ThumbnailURL(id string) string {
	return "https://drive.google.com/thumbnail?id=" + url.QueryEscape(id) + "&sz=w600"
}

// Validate checks that every item has a URL that is either absolute or
// site-absolute.
func Validate(items []model.GalleryImage) []error {
	var errs []error
	for i, it := range items {
		if strings.TrimSpace(it.URL) == "" {
			errs = append(errs, fmt.Errorf("gallery item %d: url is required", i))
			continue
		}
		u, err := url.Parse(it.URL)
		if err != nil {
			errs = append(errs, fmt.Errorf("gallery item %d: invalid url %q: %w", i, it.URL, err))
			continue
		}
		if !(u.Scheme != "" && u.Host != "") && !strings.HasPrefix(it.URL, "/") {
			errs = append(errs, fmt.Errorf("gallery item %d: url %q is neither absolute nor site-absolute", i, it.URL))
		}
	}
	return errs
}
