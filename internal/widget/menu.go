// Package widget holds the presentation logic of the site widgets: menu
// cards, the gallery carousel and the month calendar. Everything here is
// pure state and layout; rendering lives in render.go.
package widget

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"catersite/internal/model"
)

// PlaceholderCategory names items without any category.
const PlaceholderCategory = "Weitere Highlights"

// Section is one category inside a card.
type Section struct {
	Name  string
	Items []model.MenuItem
}

// Card is one menu block: a super category, or a lone category when the
// items carry no super category.
type Card struct {
	Title    string
	Sections []Section
}

// GroupMenu groups items into cards keyed by super category (falling back
// to the category) and then into category sections. Cards and sections
// keep first-appearance order; names listed in preferredOrder come first,
// in list order.
func GroupMenu(items []model.MenuItem, preferredOrder []string) []Card {
	var cards []Card
	cardIdx := map[string]int{}
	sectionIdx := map[string]map[string]int{}

	for _, it := range items {
		category := strings.TrimSpace(it.Category)
		if category == "" {
			category = PlaceholderCategory
		}
		key := strings.TrimSpace(it.SuperCategory)
		if key == "" {
			key = category
		}

		ci, ok := cardIdx[key]
		if !ok {
			ci = len(cards)
			cardIdx[key] = ci
			sectionIdx[key] = map[string]int{}
			cards = append(cards, Card{Title: key})
		}
		si, ok := sectionIdx[key][category]
		if !ok {
			si = len(cards[ci].Sections)
			sectionIdx[key][category] = si
			cards[ci].Sections = append(cards[ci].Sections, Section{Name: category})
		}
		cards[ci].Sections[si].Items = append(cards[ci].Sections[si].Items, it)
	}

	if len(preferredOrder) > 0 {
		rank := orderRank(preferredOrder)
		sort.SliceStable(cards, func(i, j int) bool {
			return rank(cards[i].Title) < rank(cards[j].Title)
		})
		for _, c := range cards {
			sort.SliceStable(c.Sections, func(i, j int) bool {
				return rank(c.Sections[i].Name) < rank(c.Sections[j].Name)
			})
		}
	}
	return cards
}

func orderRank(order []string) func(string) int {
	pos := make(map[string]int, len(order))
	for i, name := range order {
		k := strings.ToLower(strings.TrimSpace(name))
		if _, dup := pos[k]; !dup {
			pos[k] = i
		}
	}
	return func(name string) int {
		if i, ok := pos[strings.ToLower(strings.TrimSpace(name))]; ok {
			return i
		}
		return len(order)
	}
}

// DescribeSource is the status line shown in the menu debug panel.
func DescribeSource(source string, status int) string {
	if status >= http.StatusBadRequest {
		switch status {
		case http.StatusForbidden:
			return "403: API-Key oder Freigabe für Sheet/Drive fehlt"
		case http.StatusNotFound:
			return "404: Sheet-ID, Range oder Drive-Datei nicht gefunden"
		default:
			return "Fehler beim Laden, Fallback aktiv"
		}
	}
	switch source {
	case "sheet":
		return "Menü direkt aus Google Sheet geladen"
	case "sheet-api":
		return "Menü über Google Sheets API geladen"
	case "drive":
		return "Menü aus Drive-Tabelle geladen"
	case "fallback-empty":
		return "Quelle leer, Fallback-Einträge genutzt"
	case "missing-config":
		return "Keine Sheet-URL konfiguriert, Fallback-Einträge"
	case "":
		return "Quelle: unbekannt"
	default:
		return fmt.Sprintf("Quelle: %s", source)
	}
}
