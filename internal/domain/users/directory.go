package users

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortDirectory orders the staff list in place: admins first, then by name.
// Names are compared with a locale collator, an empty name sorts before any other.
// Ties keep the order the backend returned.
func SortDirectory(list []User) {
	col := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(list, func(i, j int) bool {
		ai, aj := list[i].IsAdmin(), list[j].IsAdmin()
		if ai != aj {
			return ai
		}
		return col.CompareString(list[i].Name, list[j].Name) < 0
	})
}
