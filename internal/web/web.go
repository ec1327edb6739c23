package web

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/singleflight"

	"catersite/internal/build"
	"catersite/internal/config"
	"catersite/internal/emit"
	appLog "catersite/internal/log"
	"catersite/internal/menu"
	"catersite/internal/model"
)

const menuCacheTTL = 30 * time.Second

// Server serves the built site, the live menu API and the widget pages.
type Server struct {
	cfg    *config.Config
	runner *build.Runner
	paths  emit.Paths
	router chi.Router

	// In-memory cache for /api/menu.json so a burst of page views does
	// not hit the sheet once per request.
	menuMu     sync.RWMutex
	menuCache  *menuCache
	menuFlight singleflight.Group

	// buildMu serializes builds started over HTTP and by the watcher.
	buildMu sync.Mutex

	now func() time.Time
}

type menuCache struct {
	payload   model.MenuPayload
	status    int
	updatedAt time.Time
}

// NewServer constructs a Server around a build runner.
func NewServer(cfg *config.Config, runner *build.Runner) *Server {
	s := &Server{
		cfg:    cfg,
		runner: runner,
		paths:  runner.Paths,
		router: chi.NewRouter(),
		now:    time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// StartServer serves on cfg.Listen until ctx is cancelled.
func StartServer(ctx context.Context, s *Server) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "public", s.cfg.PublicDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/menu.json", s.handleMenuAPI)
		r.Get("/calendar", s.handleCalendarAPI)
		r.Post("/refresh", s.handleRefresh)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "not found")
		})
	})

	r.Get("/menu", s.handleMenuPage)
	r.Get("/calendar", s.handleCalendarPage)
	r.Get("/gallery", s.handleGalleryPage)

	// Everything else is the built site itself.
	r.Handle("/*", http.FileServer(http.Dir(s.cfg.PublicDir)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleMenuAPI resolves the menu live. The response status mirrors the
// upstream: 200 on success or when nothing is configured, the upstream
// code on a non-2xx reply, 502 on network errors. The body always carries
// items, falling back to the built-in menu.
//
// GET /api/menu.json
func (s *Server) handleMenuAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	if mc := s.freshMenu(); mc != nil {
		writeJSON(w, mc.status, mc.payload)
		return
	}

	// One upstream fetch per expiry; concurrent requests share it.
	ctx := context.WithoutCancel(r.Context())
	v, _, _ := s.menuFlight.Do("menu", func() (any, error) {
		if mc := s.freshMenu(); mc != nil {
			return mc, nil
		}
		payload, out := s.runner.Services.Menu.Payload(ctx, s.now())
		appLog.Info("menu api resolved", "items", len(payload.Items), "source", payload.Source, "status", out.HTTPStatus)

		mc := &menuCache{payload: payload, status: out.HTTPStatus, updatedAt: s.now()}
		s.menuMu.Lock()
		s.menuCache = mc
		s.menuMu.Unlock()
		return mc, nil
	})
	mc := v.(*menuCache)
	writeJSON(w, mc.status, mc.payload)
}

func (s *Server) freshMenu() *menuCache {
	s.menuMu.RLock()
	defer s.menuMu.RUnlock()
	if s.menuCache != nil && s.now().Sub(s.menuCache.updatedAt) < menuCacheTTL {
		return s.menuCache
	}
	return nil
}

// handleCalendarAPI returns the emitted calendar file.
//
// GET /api/calendar
func (s *Server) handleCalendarAPI(w http.ResponseWriter, _ *http.Request) {
	p, err := emit.ReadCalendar(s.paths.Calendar)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusNotFound, "calendar not built yet")
			return
		}
		appLog.Error("calendar api: read failed", err)
		writeError(w, http.StatusInternalServerError, "failed to read calendar")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type refreshResponse struct {
	Level    string          `json:"level"`
	Duration string          `json:"duration"`
	Datasets []refreshResult `json:"datasets"`
}

type refreshResult struct {
	Dataset string `json:"dataset"`
	Source  string `json:"source"`
	Count   int    `json:"count"`
	Level   string `json:"level"`
}

// handleRefresh runs a full build. Concurrent refreshes get 409.
//
// POST /api/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.Rebuild(r.Context())
	if !ok {
		writeError(w, http.StatusConflict, "build already running")
		return
	}

	resp := refreshResponse{Level: rep.Level().String(), Duration: rep.Duration.String()}
	for _, res := range rep.Results {
		resp.Datasets = append(resp.Datasets, refreshResult{
			Dataset: res.Dataset,
			Source:  res.Source,
			Count:   res.Count,
			Level:   res.Level.String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Rebuild runs the build unless one is already in progress, and drops the
// menu API cache afterwards.
func (s *Server) Rebuild(ctx context.Context) (build.Report, bool) {
	if !s.buildMu.TryLock() {
		return build.Report{}, false
	}
	defer s.buildMu.Unlock()

	rep := s.runner.Run(ctx)

	s.menuMu.Lock()
	s.menuCache = nil
	s.menuMu.Unlock()
	return rep, true
}

func (s *Server) loadMenu() model.MenuPayload {
	p, err := emit.ReadMenu(s.paths.MenuMirror)
	if err != nil || len(p.Items) == 0 {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			appLog.Warn("menu file unreadable, using fallback", "error", err.Error())
		}
		return model.MenuPayload{Items: menu.FallbackItems(), Source: "fallback"}
	}
	return p
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
