package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"catersite/internal/build"
	"catersite/internal/capture"
	"catersite/internal/config"
	appLog "catersite/internal/log"
	"catersite/internal/web"
)

const version = "0.3.0"

type flagConfig struct {
	configPath string
	publicDir  string
	listen     string
	strict     bool
	watch      bool
	logLevel   string
	previewOut string
	month      string
}

const usage = `usage: catersite [flags] [command]

commands:
  build    fetch menu, gallery and calendar and write the JSON files (default)
  serve    serve the built site, the menu API and the widget pages
  preview  render /calendar in headless Chromium and save a PNG
  check    validate previously written JSON files

flags:
`

func main() {
	os.Exit(run())
}

func run() int {
	flags := parseFlags()
	appLog.SetLevel(appLog.ParseLevel(flags.logLevel))

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "build"
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return 1
	}
	if flags.publicDir != "" {
		cfg.PublicDir = flags.publicDir
	}
	if flags.listen != "" {
		cfg.Listen = flags.listen
	}
	strict := cfg.Strict || flags.strict

	appLog.Info("catersite starting",
		"version", version,
		"command", cmd,
		"public", cfg.PublicDir,
		"timezone", cfg.Timezone,
		"strict", strict,
		"menu_configured", cfg.Menu.SheetURL != "" || cfg.Menu.SheetID != "" || cfg.Menu.FolderID != "",
		"gallery_configured", cfg.Gallery.FolderID != "",
		"calendar_configured", cfg.Calendar.ID != "" || cfg.Calendar.ICSURL != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "build":
		return runBuild(ctx, cfg, strict)
	case "serve":
		return runServe(ctx, cfg, flags.watch)
	case "preview":
		return runPreview(ctx, cfg, flags)
	case "check":
		return runCheck(cfg)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		return 2
	}
}

func runBuild(ctx context.Context, cfg *config.Config, strict bool) int {
	rep := build.NewRunner(cfg).Run(ctx)
	if err := rep.Summary(os.Stdout); err != nil {
		appLog.Error("failed to write summary", err)
	}
	if rep.Failed(strict) {
		appLog.Error("build failed", fmt.Errorf("build level %s", rep.Level()), "strict", strict)
		return 1
	}
	return 0
}

func runCheck(cfg *config.Config) int {
	runner := build.NewRunner(cfg)
	errs := build.Check(runner.Paths)
	for _, err := range errs {
		fmt.Fprintln(os.Stderr, err)
	}
	if len(errs) > 0 {
		return 1
	}
	fmt.Println("ok")
	return 0
}

func runServe(ctx context.Context, cfg *config.Config, watch bool) int {
	srv := web.NewServer(cfg, build.NewRunner(cfg))

	if watch {
		c := cron.New(cron.WithLocation(cfg.Location()))
		rebuild := func() {
			rep, ok := srv.Rebuild(ctx)
			if !ok {
				appLog.Warn("scheduled build skipped, another build is running")
				return
			}
			appLog.Info("scheduled build done", "level", rep.Level().String(), "duration", rep.Duration.String())
		}
		if _, err := c.AddFunc(cfg.RefreshCron, rebuild); err != nil {
			appLog.Error("invalid refresh schedule", err, "refresh", cfg.RefreshCron)
			return 1
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
		go rebuild()
		appLog.Info("watching sources", "refresh", cfg.RefreshCron)
	}

	if err := web.StartServer(ctx, srv); err != nil {
		appLog.Error("server stopped", err)
		return 1
	}
	appLog.Info("catersite exiting")
	return 0
}

// runPreview serves the widget pages on a loopback port just long enough to
// screenshot the calendar.
func runPreview(ctx context.Context, cfg *config.Config, flags flagConfig) int {
	srv := web.NewServer(cfg, build.NewRunner(cfg))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		appLog.Error("preview: listen failed", err)
		return 1
	}
	hs := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("preview: server failed", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()

	url := "http://" + ln.Addr().String() + "/calendar"
	if flags.month != "" {
		url += "?month=" + flags.month
	}
	out := flags.previewOut
	if out == "" {
		out = filepath.Join(cfg.PublicDir, "preview", "calendar.png")
	}

	if err := capture.PreviewPNG(ctx, capture.Options{URL: url, OutputPath: out}); err != nil {
		appLog.Error("preview failed", err, "url", url)
		return 1
	}
	appLog.Info("preview written", "path", out)
	return 0
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "", "Path to YAML config file (optional)")
	flag.StringVar(&cfg.publicDir, "public", "", "Site root to write JSON and assets into (overrides config)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address for serve (overrides config)")
	flag.BoolVar(&cfg.strict, "strict", false, "Exit non-zero on any warning or error (also STRICT_BUILD_MODE)")
	flag.BoolVar(&cfg.watch, "watch", false, "serve: rebuild on the configured refresh schedule")
	flag.StringVar(&cfg.logLevel, "log-level", "info", "debug, info, warn or error")
	flag.StringVar(&cfg.previewOut, "out", "", "preview: PNG output path")
	flag.StringVar(&cfg.month, "month", "", "preview: month to render as YYYY-MM")

	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	return cfg
}
