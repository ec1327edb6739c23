package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"catersite/internal/build"
	"catersite/internal/config"
	"catersite/internal/emit"
	"catersite/internal/google"
	"catersite/internal/model"
	"catersite/internal/source"
)

type fixture struct {
	server   *Server
	handler  http.Handler
	paths    emit.Paths
	upstream *atomic.Int32
}

// newFixture wires a Server whose menu sheet is served by upstream.
func newFixture(t *testing.T, upstream http.HandlerFunc) fixture {
	t.Helper()
	var hits atomic.Int32
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		upstream(w, r)
	}))
	t.Cleanup(up.Close)

	cfg := config.DefaultConfig()
	cfg.PublicDir = t.TempDir()
	cfg.Timezone = "UTC"
	cfg.Menu.SheetURL = up.URL + "/menu.csv"

	f := source.NewFetcherWithClient(up.Client())
	g := google.NewClient(f, "")
	now := func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }
	runner := &build.Runner{
		Services: build.NewServicesWith(cfg, f, g),
		Paths:    emit.PathsFor(cfg.PublicDir),
		Now:      now,
	}
	s := NewServer(cfg, runner)
	s.now = now
	return fixture{server: s, handler: s.Handler(), paths: runner.Paths, upstream: &hits}
}

func (f fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func csvSheet(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	_, _ = io.WriteString(w, "Titel,Preis,Kategorie\nBowl,\"10,50\",Bowls\n")
}

func TestHealth(t *testing.T) {
	f := newFixture(t, csvSheet)
	rec := f.get(t, "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestMenuAPI_LiveAndCached(t *testing.T) {
	f := newFixture(t, csvSheet)

	rec := f.get(t, "/api/menu.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control: got %q", got)
	}
	var p model.MenuPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.Source != "sheet" || len(p.Items) != 1 || p.Items[0].Title != "Bowl" {
		t.Errorf("payload: got %+v", p)
	}

	f.get(t, "/api/menu.json")
	if n := f.upstream.Load(); n != 1 {
		t.Errorf("upstream hits: got %d, want 1 (second request cached)", n)
	}
}

func TestMenuAPI_ConcurrentRequestsShareOneFetch(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		csvSheet(w, r)
	})

	const n = 5
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/menu.json", nil))
			codes[i] = rec.Code
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := f.upstream.Load(); got != 1 {
		t.Errorf("upstream hits: got %d, want 1", got)
	}
	for i, code := range codes {
		if code != http.StatusOK {
			t.Errorf("request %d: got %d, want 200", i, code)
		}
	}
}

func TestMenuAPI_UpstreamStatusMirrored(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	rec := f.get(t, "/api/menu.json")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", rec.Code)
	}
	var p model.MenuPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.Source != "sheet-error" || len(p.Items) != 3 {
		t.Errorf("payload: got source %q with %d items, want fallback", p.Source, len(p.Items))
	}
}

func TestRefreshThenPages(t *testing.T) {
	f := newFixture(t, csvSheet)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: got %d %s", rec.Code, rec.Body.String())
	}
	var resp refreshResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Datasets) != 3 || resp.Datasets[0].Source != "sheet" {
		t.Errorf("refresh response: got %+v", resp)
	}

	menuPage := f.get(t, "/menu?debug=1").Body.String()
	if !strings.Contains(menuPage, "10,50 €") || !strings.Contains(menuPage, "menu-debug") {
		t.Errorf("menu page: %s", menuPage)
	}

	cal := f.get(t, "/calendar?month=2024-03&hover=2024-03-05")
	if cal.Code != http.StatusOK || !strings.Contains(cal.Body.String(), `data-ready="true"`) {
		t.Fatalf("calendar page: %d", cal.Code)
	}
	// no calendar configured: the sample events land on the 5th and 13th
	if !strings.Contains(cal.Body.String(), `calendar__day--busy calendar__day--active" data-date-key="2024-03-05"`) {
		t.Errorf("hovered sample day not highlighted")
	}

	api := f.get(t, "/api/calendar")
	if api.Code != http.StatusOK || !strings.Contains(api.Body.String(), "missing-config") {
		t.Errorf("calendar api: %d %s", api.Code, api.Body.String())
	}

	gal := f.get(t, "/gallery?i=-1&open=1").Body.String()
	if !strings.Contains(gal, "3 / 3") {
		t.Errorf("gallery page should wrap to the last image: %s", gal)
	}
}

func TestCalendarPage_BadMonth(t *testing.T) {
	f := newFixture(t, csvSheet)
	if rec := f.get(t, "/calendar?month=march"); rec.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", rec.Code)
	}
}

func TestCalendarAPI_NotBuilt(t *testing.T) {
	f := newFixture(t, csvSheet)
	if rec := f.get(t, "/api/calendar"); rec.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", rec.Code)
	}
	if rec := f.get(t, "/api/unknown"); rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"error"`) {
		t.Errorf("unknown api: got %d %s", rec.Code, rec.Body.String())
	}
}

func TestStaticFiles(t *testing.T) {
	f := newFixture(t, csvSheet)
	dir := filepath.Dir(f.paths.Menu)
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>Catering</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := f.get(t, "/")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Catering") {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestRebuild_Exclusive(t *testing.T) {
	f := newFixture(t, csvSheet)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	f.server.buildMu.Lock()
	_, ok := f.server.Rebuild(ctx)
	f.server.buildMu.Unlock()
	if ok {
		t.Error("Rebuild must refuse while another build holds the lock")
	}
}
