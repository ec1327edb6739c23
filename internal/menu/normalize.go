package menu

import (
	"strings"

	appLog "catersite/internal/log"
	"catersite/internal/model"
	"catersite/internal/tabular"
)

type field int

const (
	fieldTitle field = iota + 1
	fieldPrice
	fieldDescription
	fieldUnit
	fieldNotes
	fieldCategory
	fieldSuperCategory
	fieldQuantity
)

// headerAliases maps lower-cased sheet headers to item fields. German
// headers are what the catering team uses in the sheet.
var headerAliases = map[string]field{
	"produkt": fieldTitle,
	"titel":   fieldTitle,
	"name":    fieldTitle,
	"title":   fieldTitle,

	"preis":             fieldPrice,
	"preis in €":        fieldPrice,
	"preis pro einheit": fieldPrice,
	"price":             fieldPrice,

	"beschreibung": fieldDescription,
	"description":  fieldDescription,

	"einheit":         fieldUnit,
	"einheit / größe": fieldUnit,
	"größe":           fieldUnit,
	"unit":            fieldUnit,

	"hinweis":  fieldNotes,
	"hinweise": fieldNotes,
	"notes":    fieldNotes,

	"kategorie": fieldCategory,
	"category":  fieldCategory,

	"überkategorie":  fieldSuperCategory,
	"ueberkategorie": fieldSuperCategory,
	"supercategory":  fieldSuperCategory,

	"anzahl":   fieldQuantity,
	"menge":    fieldQuantity,
	"quantity": fieldQuantity,
}

// CanonicalField returns the item field name ("title", "price", ...) a
// header maps to, or the normalized header itself when it is unknown.
func CanonicalField(header string) string {
	key := strings.ToLower(strings.TrimSpace(header))
	switch headerAliases[key] {
	case fieldTitle:
		return "title"
	case fieldPrice:
		return "price"
	case fieldDescription:
		return "description"
	case fieldUnit:
		return "unit"
	case fieldNotes:
		return "notes"
	case fieldCategory:
		return "category"
	case fieldSuperCategory:
		return "superCategory"
	case fieldQuantity:
		return "quantity"
	default:
		return key
	}
}

// MapRow maps one raw row to a MenuItem. Rows without title and category
// are logged and still returned; callers filter with FilterUsable.
func MapRow(rec tabular.Record) model.MenuItem {
	var item model.MenuItem
	for _, f := range rec {
		key := strings.ToLower(strings.TrimSpace(f.Name))
		val := strings.TrimSpace(f.Value)

		switch headerAliases[key] {
		case fieldTitle:
			item.Title = val
		case fieldPrice:
			item.Price = val
		case fieldDescription:
			item.Description = val
		case fieldUnit:
			item.Unit = val
		case fieldNotes:
			item.Notes = val
		case fieldCategory:
			item.Category = val
		case fieldSuperCategory:
			item.SuperCategory = val
		case fieldQuantity:
			item.Quantity = val
		default:
			if key == "" {
				continue
			}
			if item.Extra == nil {
				item.Extra = make(map[string]string)
			}
			item.Extra[key] = val
		}
	}

	if !item.Usable() {
		appLog.Debug("menu row without title/category", "fields", len(rec))
	}
	return item
}

// MapRows maps every record.
func MapRows(recs []tabular.Record) []model.MenuItem {
	out := make([]model.MenuItem, 0, len(recs))
	for _, rec := range recs {
		out = append(out, MapRow(rec))
	}
	return out
}

// FilterUsable drops rows without title and category.
func FilterUsable(items []model.MenuItem) []model.MenuItem {
	out := make([]model.MenuItem, 0, len(items))
	for _, it := range items {
		if it.Usable() {
			out = append(out, it)
		}
	}
	return out
}

// ParseItems parses a raw sheet payload straight into usable menu items.
func ParseItems(text, contentType string) []model.MenuItem {
	items := FilterUsable(MapRows(tabular.Parse(text, contentType)))
	appLog.Info("menu payload parsed", "item_count", len(items))
	return items
}
