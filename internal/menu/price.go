package menu

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"catersite/internal/model"
)

// PriceOnRequest is shown when a price cell is not a number.
const PriceOnRequest = "auf Anfrage"

var pricePrinter = message.NewPrinter(language.German)

// FormatPrice renders a free-form price cell as "12,50 €". Everything but
// digits, comma, dot and minus is stripped and the first comma is read as
// the decimal separator.
func FormatPrice(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, raw)
	cleaned = strings.Replace(cleaned, ",", ".", 1)

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return PriceOnRequest
	}
	return pricePrinter.Sprintf("%.2f", v) + " €"
}

// FormatItems returns a copy of items with display prices.
func FormatItems(items []model.MenuItem) []model.MenuItem {
	out := make([]model.MenuItem, len(items))
	for i, it := range items {
		it.Price = FormatPrice(it.Price)
		out[i] = it
	}
	return out
}
