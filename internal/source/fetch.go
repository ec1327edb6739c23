package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appLog "catersite/internal/log"
	"catersite/internal/tabular"
)

// DefaultMaxBody caps upstream bodies; gallery images are the largest
// thing fetched.
const DefaultMaxBody = 32 << 20

var (
	// ErrUnconfigured marks a source that has no key/id configured.
	ErrUnconfigured = errors.New("source not configured")
	// ErrHTMLResponse marks an HTML page where tabular data was expected,
	// typically a login redirect of a private sheet.
	ErrHTMLResponse = errors.New("upstream returned HTML instead of data")
	// ErrBodyTooLarge marks a reply longer than the fetcher's body limit.
	ErrBodyTooLarge = errors.New("upstream body exceeds size limit")
)

// StatusError is a non-2xx upstream reply.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return "upstream status " + e.Status
	}
	return fmt.Sprintf("upstream status %d", e.Code)
}

// Response is a fully read upstream reply.
type Response struct {
	Body        []byte
	ContentType string
	StatusCode  int
}

// Fetcher performs bounded GET requests against upstream sources.
type Fetcher struct {
	client *http.Client

	// MaxBody is the largest accepted body in bytes; DefaultMaxBody when
	// zero.
	MaxBody int64
}

// NewFetcher creates a Fetcher. timeout is an outer safety bound; callers
// still pass a context with their own deadline.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// NewFetcherWithClient wraps an existing client, e.g. an httptest one.
func NewFetcherWithClient(c *http.Client) *Fetcher {
	return &Fetcher{client: c}
}

// Get fetches rawURL. A non-2xx reply returns the read response together
// with a *StatusError.
func (f *Fetcher) Get(ctx context.Context, rawURL, accept string) (Response, error) {
	if rawURL == "" {
		return Response{}, errors.New("source URL is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Response{}, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	appLog.Debug("upstream fetch start", "url", RedactURL(rawURL))

	resp, err := f.client.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	limit := f.MaxBody
	if limit <= 0 {
		limit = DefaultMaxBody
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return Response{}, err
	}
	if int64(len(body)) > limit {
		appLog.Warn("upstream body too large", "url", RedactURL(rawURL), "limit", limit)
		return Response{StatusCode: resp.StatusCode}, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, limit)
	}

	out := Response{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}

	appLog.Debug("upstream fetch done", "url", RedactURL(rawURL), "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	return out, nil
}

// GetTabular is Get for endpoints that must return CSV/TSV/JSON. An HTML
// body is reported as ErrHTMLResponse.
func (f *Fetcher) GetTabular(ctx context.Context, rawURL string) (Response, error) {
	resp, err := f.Get(ctx, rawURL, "text/csv, text/tab-separated-values, application/json;q=0.9")
	if err != nil {
		return resp, err
	}
	if strings.Contains(strings.ToLower(resp.ContentType), "text/html") || tabular.LooksLikeHTML(resp.Body) {
		return resp, ErrHTMLResponse
	}
	return resp, nil
}

// RedactURL hides paths and query strings (which carry API keys) for
// logging purposes.
//
//	https://www.googleapis.com/drive/v3/files?key=abcd
//	-> https://www.googleapis.com/...(redacted)
func RedactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := strings.Index(u, "://")
	if i == -1 {
		return "url://...(redacted)"
	}
	i += 3

	j := i
	for j < len(u) && u[j] != '/' && u[j] != '?' {
		j++
	}
	return u[:j] + redactedSuffix
}
