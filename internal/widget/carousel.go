package widget

import (
	"fmt"

	"catersite/internal/model"
)

const dotWindowSize = 5

// DotWindow returns the inclusive index range of the pager dots shown for
// current out of total: at most five dots, centred on current where
// possible.
func DotWindow(current, total int) (int, int) {
	if total <= dotWindowSize {
		return 0, total - 1
	}
	if current < 3 {
		return 0, dotWindowSize - 1
	}
	if current >= total-3 {
		return total - dotWindowSize, total - 1
	}
	return current - 2, current + 2
}

// Dot is one pager dot.
type Dot struct {
	Index  int
	Active bool
	Label  string
}

// Carousel is the gallery carousel / lightbox state. The zero value is an
// empty carousel.
type Carousel struct {
	Images  []model.GalleryImage
	Current int
	// Eager is the number of leading thumbnails loaded eagerly.
	Eager int
}

// NewCarousel starts at the first image.
func NewCarousel(images []model.GalleryImage) *Carousel {
	return &Carousel{Images: images, Eager: 2}
}

// Goto moves to i, wrapping around both ends. It is a no-op when the
// carousel is empty.
func (c *Carousel) Goto(i int) {
	n := len(c.Images)
	if n == 0 {
		return
	}
	c.Current = ((i % n) + n) % n
}

func (c *Carousel) Next() { c.Goto(c.Current + 1) }

func (c *Carousel) Prev() { c.Goto(c.Current - 1) }

// Dots returns the visible pager dots.
func (c *Carousel) Dots() []Dot {
	n := len(c.Images)
	if n == 0 {
		return nil
	}
	start, end := DotWindow(c.Current, n)
	dots := make([]Dot, 0, end-start+1)
	for i := start; i <= end; i++ {
		dots = append(dots, Dot{
			Index:  i,
			Active: i == c.Current,
			Label:  fmt.Sprintf("Bild %d von %d", i+1, n),
		})
	}
	return dots
}

// Counter is the lightbox position label, e.g. "3 / 20".
func (c *Carousel) Counter() string {
	if len(c.Images) == 0 {
		return "0 / 0"
	}
	return fmt.Sprintf("%d / %d", c.Current+1, len(c.Images))
}

// Loading is the img loading attribute for index i.
func (c *Carousel) Loading(i int) string {
	if i < c.Eager {
		return "eager"
	}
	return "lazy"
}

// PreloadOrder lists the URLs to warm after first paint: the lazy
// thumbnails first, then every full-size image.
func (c *Carousel) PreloadOrder() []string {
	var out []string
	for i, img := range c.Images {
		if i >= c.Eager {
			out = append(out, img.Thumbnail)
		}
	}
	for _, img := range c.Images {
		out = append(out, img.URL)
	}
	return out
}

// Accent is the gallery card style: every third card is a "feature".
func Accent(i int) string {
	if i%3 == 0 {
		return "feature"
	}
	return "story"
}
