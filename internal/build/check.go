package build

import (
	"fmt"

	"catersite/internal/emit"
	"catersite/internal/gallery"
)

// Check validates the emitted files under paths: each file must exist and
// decode, gallery items need valid URLs, menu items must be usable and
// calendar events must not end before they start.
func Check(paths emit.Paths) []error {
	var errs []error

	m, err := emit.ReadMenu(paths.MenuMirror)
	if err != nil {
		errs = append(errs, fmt.Errorf("menu: %w", err))
	} else {
		for i, it := range m.Items {
			if !it.Usable() {
				errs = append(errs, fmt.Errorf("menu item %d: neither title nor category", i))
			}
		}
	}

	g, err := emit.ReadGallery(paths.Gallery)
	if err != nil {
		errs = append(errs, fmt.Errorf("gallery: %w", err))
	} else {
		errs = append(errs, gallery.Validate(g.Items)...)
	}

	c, err := emit.ReadCalendar(paths.Calendar)
	if err != nil {
		errs = append(errs, fmt.Errorf("calendar: %w", err))
	} else {
		for _, ev := range c.Events {
			if ev.End.Before(ev.Start) {
				errs = append(errs, fmt.Errorf("calendar event %q: ends before it starts", ev.ID))
			}
		}
	}
	return errs
}
