package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidQuery is returned before any parsing when pagination or
	// sort parameters are out of range.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrNotFound means no archive matches the requested title.
	ErrNotFound = errors.New("book not found")
)

const MaxLimit = 100

// SortField is a Book field the listing can be ordered by.
type SortField string

const (
	SortFileName  SortField = "fileName"
	SortTitle     SortField = "title"
	SortAuthor    SortField = "author"
	SortDate      SortField = "date"
	SortPublisher SortField = "publisher"
	SortLanguage  SortField = "language"
)

// Valid reports whether f is a supported sort field.
func (f SortField) Valid() bool {
	switch f {
	case SortFileName, SortTitle, SortAuthor, SortDate, SortPublisher, SortLanguage:
		return true
	}
	return false
}

type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

func (o Order) Valid() bool {
	return o == OrderAsc || o == OrderDesc
}

// SortScope controls where sorting happens relative to pagination.
type SortScope string

const (
	// ScopePage slices the directory listing first and sorts only the
	// books of the requested page.
	ScopePage SortScope = "page"
	// ScopeCatalog parses every archive, sorts the whole catalog, then
	// slices the page.
	ScopeCatalog SortScope = "catalog"
)

func (s SortScope) Valid() bool {
	return s == ScopePage || s == ScopeCatalog
}

// Query is a validated listing request.
type Query struct {
	Page   int
	Limit  int
	Sort   SortField
	Order  Order
	Search string // case-insensitive substring of the file name
}

// Validate checks bounds and enums.
func (q Query) Validate() error {
	if q.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1", ErrInvalidQuery)
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidQuery, MaxLimit)
	}
	if !q.Sort.Valid() {
		return fmt.Errorf("%w: unsupported sort field %q", ErrInvalidQuery, q.Sort)
	}
	if !q.Order.Valid() {
		return fmt.Errorf("%w: order must be asc or desc", ErrInvalidQuery)
	}
	return nil
}

// RawQuery carries unparsed request parameters. Empty fields take defaults.
type RawQuery struct {
	Page   string
	Limit  string
	Sort   string
	Order  string
	Search string
}

// ParseQuery converts raw parameters into a validated Query, filling
// defaults for empty fields.
func (s *Service) ParseQuery(raw RawQuery) (Query, error) {
	q := Query{
		Page:   1,
		Limit:  s.cfg.DefaultLimit,
		Sort:   s.cfg.DefaultSort,
		Order:  OrderAsc,
		Search: strings.TrimSpace(raw.Search),
	}

	var err error
	if q.Page, err = intParam("page", raw.Page, q.Page); err != nil {
		return Query{}, err
	}
	if q.Limit, err = intParam("limit", raw.Limit, q.Limit); err != nil {
		return Query{}, err
	}
	if v := strings.TrimSpace(raw.Sort); v != "" {
		q.Sort = SortField(v)
	}
	if v := strings.TrimSpace(raw.Order); v != "" {
		q.Order = Order(v)
	}

	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// WithDefaults fills zero-valued fields the way ParseQuery does for empty
// parameters.
func (s *Service) WithDefaults(q Query) Query {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = s.cfg.DefaultLimit
	}
	if q.Sort == "" {
		q.Sort = s.cfg.DefaultSort
	}
	if q.Order == "" {
		q.Order = OrderAsc
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

func intParam(name, raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidQuery, name)
	}
	return n, nil
}
