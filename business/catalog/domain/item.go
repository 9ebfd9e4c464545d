package domain

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// CategoryUnknown is reported for items without catalog metadata.
	CategoryUnknown = "Unknown"

	fallbackName = "Unknown Item"
)

// Item is the display metadata of one item.
type Item struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Weight        float64 `json:"weight"`
	Enchantment   int     `json:"enchantment"`
	CanBeEquipped bool    `json:"canBeEquipped"`
}

var (
	enchantSuffix = regexp.MustCompile(`@\d+$`)
	tierPrefix    = regexp.MustCompile(`^[A-Z]\d_`)
)

// Humanize derives a display name from an item id:
// "T4_MAIN_SWORD@2" becomes "Main Sword".
func Humanize(id string) string {
	s := enchantSuffix.ReplaceAllString(id, "")
	s = tierPrefix.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "_", " ")
	return strings.TrimSpace(titleCase(strings.ToLower(s)))
}

// titleCase upper-cases the first letter of every word, where a word starts
// after any non-alphanumeric rune.
func titleCase(s string) string {
	out := []rune(s)
	prevWord := false
	for i, r := range out {
		isWord := unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
		if isWord && !prevWord {
			out[i] = unicode.ToUpper(r)
		}
		prevWord = isWord
	}
	return string(out)
}

func fallbackItem(id string) Item {
	name := Humanize(id)
	if name == "" {
		name = fallbackName
	}
	return Item{ID: id, Name: name, Category: CategoryUnknown}
}
