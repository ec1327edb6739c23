package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MenuConfig describes where the menu sheet lives.
type MenuConfig struct {
	// SheetURL is a direct CSV/TSV/JSON export URL of the menu sheet.
	SheetURL string `yaml:"sheet_url" json:"sheet_url"`
	// SheetID and SheetRange address the sheet through the Sheets values API.
	SheetID    string `yaml:"sheet_id" json:"sheet_id"`
	SheetRange string `yaml:"sheet_range" json:"sheet_range"`
	// FolderID is a Drive folder holding the menu workbook.
	FolderID string `yaml:"folder_id" json:"folder_id"`
	// CategoryOrder optionally pins the order of menu cards.
	CategoryOrder []string `yaml:"category_order" json:"category_order"`
}

// GalleryConfig describes the Drive folder the gallery is built from.
type GalleryConfig struct {
	FolderID string `yaml:"folder_id" json:"folder_id"`
}

// CalendarConfig describes the event calendar sources.
type CalendarConfig struct {
	// ID is a Google Calendar id queried through the Calendar API.
	ID string `yaml:"id" json:"id"`
	// ICSURL is a public iCalendar feed used when the API is not configured
	// or fails.
	ICSURL string `yaml:"ics_url" json:"ics_url"`
	// Window is "month" (current month) or "year" (current month plus
	// eleven following months).
	Window string `yaml:"window" json:"window"`
}

// Config is the top-level application configuration.
type Config struct {
	// PublicDir is the static site root the JSON files and assets are
	// written into.
	PublicDir string `yaml:"public_dir" json:"public_dir"`

	// Listen is the HTTP listen address used by `serve`.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used for calendar days (e.g. "Europe/Berlin").
	Timezone string `yaml:"timezone" json:"timezone"`

	// TimeoutSeconds bounds every single upstream request.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`

	// RefreshCron is the cron schedule used by `serve -watch`.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Strict turns build warnings into a non-zero exit status.
	Strict bool `yaml:"strict" json:"strict"`

	// APIKey is the Google API key shared by Sheets, Drive and Calendar.
	// It is normally supplied through PUBLIC_DRIVE_API_KEY rather than the file.
	APIKey string `yaml:"api_key,omitempty" json:"-"`

	Menu     MenuConfig     `yaml:"menu" json:"menu"`
	Gallery  GalleryConfig  `yaml:"gallery" json:"gallery"`
	Calendar CalendarConfig `yaml:"calendar" json:"calendar"`
}

const (
	defaultPublicDir   = "public"
	defaultListen      = "127.0.0.1:4321"
	defaultTimezone    = "Europe/Berlin"
	defaultTimeout     = 8
	defaultRefreshCron = "0 */6 * * *"
	defaultSheetRange  = "A1:Z"
	defaultWindow      = "year"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		PublicDir:      defaultPublicDir,
		Listen:         defaultListen,
		Timezone:       defaultTimezone,
		TimeoutSeconds: defaultTimeout,
		RefreshCron:    defaultRefreshCron,
		Menu: MenuConfig{
			SheetRange: defaultSheetRange,
			CategoryOrder: []string{
				"Burger", "Getränke", "Snack", "Beilage", "Dessert", "Topping", "Sauce", "Sonstiges",
			},
		},
		Calendar: CalendarConfig{Window: defaultWindow},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.PublicDir == "" {
		c.PublicDir = defaultPublicDir
	}
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeout
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.Menu.SheetRange == "" {
		c.Menu.SheetRange = defaultSheetRange
	}
	switch c.Calendar.Window {
	case "month", "year":
	default:
		c.Calendar.Window = defaultWindow
	}
}

// Timeout returns the per-request upstream timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path and applies
// environment overrides.
//
// Behavior:
//   - path == "": defaults + environment only
//   - file missing: write a default config (0600) and use it
//   - file present: unmarshal, normalize
//
// A .env file in the working directory is loaded first when present;
// variables already set in the process environment win.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := loadFile(path)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	cfg.Normalize()
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides file values with the deployment environment variables.
// Only variables that are set and non-empty take effect.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	get := func(keys ...string) (string, bool) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v), true
			}
		}
		return "", false
	}

	if v, ok := get("PUBLIC_DRIVE_API_KEY"); ok {
		c.APIKey = v
	}
	if v, ok := get("PUBLIC_GALLERY_FOLDER_ID"); ok {
		c.Gallery.FolderID = v
	}
	if v, ok := get("PUBLIC_CALENDAR_ID"); ok {
		c.Calendar.ID = v
	}
	if v, ok := get("PUBLIC_CALENDAR_ICS_URL"); ok {
		c.Calendar.ICSURL = v
	}
	if v, ok := get("MENU_SHEET_ID"); ok {
		c.Menu.SheetID = v
	}
	if v, ok := get("MENU_SHEET_URL", "PUBLIC_MENU_SHEET_URL"); ok {
		c.Menu.SheetURL = v
	}
	if v, ok := get("MENU_SHEET_RANGE"); ok {
		c.Menu.SheetRange = v
	}
	if v, ok := get("PUBLIC_MENU_FOLDER_ID"); ok {
		c.Menu.FolderID = v
	}
	if v, ok := get("STRICT_BUILD_MODE"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Strict = b
		}
	}
}

// Save writes the given configuration to the specified path.
//
// The file is written atomically via a temp file + rename and ends up
// with 0600 permissions. The API key is never persisted.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	out := *cfg
	out.APIKey = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".catersite-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
