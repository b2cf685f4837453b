package catalog

import (
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"epubhub/pkg/models"
)

// dateLayouts are tried in order when sorting by date.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
	time.RFC1123Z,
	time.RFC1123,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// newCollator compares strings ignoring case and diacritics.
// Collators are not safe for concurrent use; create one per sort.
func newCollator() *collate.Collator {
	return collate.New(language.Und, collate.IgnoreCase, collate.IgnoreDiacritics)
}

// sortBooks orders books in place by field. Missing values sort last in
// both directions; dates that fail to parse compare equal.
func sortBooks(books []models.Book, field SortField, order Order) {
	c := newCollator()
	slices.SortStableFunc(books, func(a, b models.Book) int {
		return compareValues(c, fieldValue(a, field), fieldValue(b, field), field == SortDate, order)
	})
}

// sortPaths orders archive paths by file name without parsing them.
func sortPaths(paths []string, order Order) {
	c := newCollator()
	slices.SortStableFunc(paths, func(a, b string) int {
		na, nb := baseName(a), baseName(b)
		return compareValues(c, &na, &nb, false, order)
	})
}

func compareValues(c *collate.Collator, a, b *string, isDate bool, order Order) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	var cmp int
	if isDate {
		ta, okA := parseDate(*a)
		tb, okB := parseDate(*b)
		if !okA || !okB {
			return 0
		}
		cmp = ta.Compare(tb)
	} else {
		cmp = c.CompareString(*a, *b)
	}

	if order == OrderDesc {
		return -cmp
	}
	return cmp
}

func fieldValue(b models.Book, field SortField) *string {
	switch field {
	case SortFileName:
		return &b.FileName
	case SortTitle:
		return &b.Title
	case SortAuthor:
		return &b.Author
	case SortDate:
		return b.Date
	case SortPublisher:
		return b.Publisher
	case SortLanguage:
		return b.Language
	}
	return nil
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
