package gallery

import "catersite/internal/model"

var fallbackImages = []model.GalleryImage{
	{URL: "/images/gallery/buffet.jpg", Thumbnail: "/images/gallery/buffet.jpg", Alt: "Buffet mit Fingerfood"},
	{URL: "/images/gallery/foodtruck.jpg", Thumbnail: "/images/gallery/foodtruck.jpg", Alt: "Foodtruck beim Sommerfest"},
	{URL: "/images/gallery/burger.jpg", Thumbnail: "/images/gallery/burger.jpg", Alt: "Signature Burger"},
}

// FallbackImages returns a fresh copy of the built-in gallery.
func FallbackImages() []model.GalleryImage {
	out := make([]model.GalleryImage, len(fallbackImages))
	copy(out, fallbackImages)
	return out
}
