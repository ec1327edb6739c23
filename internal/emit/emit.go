// Package emit writes and reads the static JSON files served with the site.
package emit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"catersite/internal/model"
)

// Paths lists the output locations below the public directory.
type Paths struct {
	Menu       string // menu.json
	MenuMirror string // data/menu.json, read by the browser script
	Gallery    string // data/gallery.json
	Calendar   string // data/calendar.json
	AssetDir   string // assets/gallery/
}

// PathsFor returns the output layout rooted at publicDir.
func PathsFor(publicDir string) Paths {
	return Paths{
		Menu:       filepath.Join(publicDir, "menu.json"),
		MenuMirror: filepath.Join(publicDir, "data", "menu.json"),
		Gallery:    filepath.Join(publicDir, "data", "gallery.json"),
		Calendar:   filepath.Join(publicDir, "data", "calendar.json"),
		AssetDir:   filepath.Join(publicDir, "assets", "gallery"),
	}
}

// WriteJSON writes v as 2-space indented JSON. The file is replaced
// atomically via a temp file + rename so a concurrent reader never sees a
// partial document.
func WriteJSON(path string, v any) error {
	if path == "" {
		return errors.New("output path is empty")
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".catersite-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// ReadMenu reads a menu file written either as the payload object or as a
// bare item array.
func ReadMenu(path string) (model.MenuPayload, error) {
	var p model.MenuPayload
	err := readEnvelope(path, "items", &p, &p.Items)
	return p, err
}

// ReadGallery reads a gallery file, envelope or bare array.
func ReadGallery(path string) (model.GalleryPayload, error) {
	var p model.GalleryPayload
	err := readEnvelope(path, "items", &p, &p.Items)
	return p, err
}

// ReadCalendar reads a calendar file, envelope or bare array.
func ReadCalendar(path string) (model.CalendarPayload, error) {
	var p model.CalendarPayload
	err := readEnvelope(path, "events", &p, &p.Events)
	return p, err
}

// readEnvelope decodes path into envelope when the document is an object,
// or into list when it is a bare array. key names the list field, which
// must be present for an object to count as an envelope.
func readEnvelope(path, key string, envelope, list any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%s: empty file", path)
	}

	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, list); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if _, ok := probe[key]; !ok {
			return fmt.Errorf("%s: object has no %q field", path, key)
		}
		if err := json.Unmarshal(data, envelope); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	default:
		return fmt.Errorf("%s: expected JSON object or array", path)
	}
}
