package menu

import "catersite/internal/model"

var fallbackItems = []model.MenuItem{
	{
		Title:       "Signature Burger",
		Description: "Rindfleisch-Patty, Cheddar, karamellisierte Zwiebeln, Haus-Sauce",
		Price:       "11.90",
		Unit:        "pro Stück",
		Category:    "Burger",
	},
	{
		Title:       "Veggie Bowl",
		Description: "Geröstetes Gemüse, Quinoa, Kräuter-Dip",
		Price:       "10.50",
		Unit:        "pro Portion",
		Category:    "Bowls",
	},
	{
		Title:       "Hauslimonade",
		Description: "Zitrone-Ingwer, wenig Zucker",
		Price:       "3.90",
		Unit:        "0,33l",
		Category:    "Getränke",
	},
}

// FallbackItems returns a fresh copy of the built-in menu.
func FallbackItems() []model.MenuItem {
	out := make([]model.MenuItem, len(fallbackItems))
	copy(out, fallbackItems)
	return out
}
