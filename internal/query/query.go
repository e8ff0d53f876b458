package query

import (
	"net/url"
	"slices"
	"strconv"
)

// Sort orders accepted on the wire.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Defaults applied when a parameter is absent from the URL.
const (
	DefaultSort  = "created_at"
	DefaultOrder = OrderDesc
	DefaultLimit = 10
)

// PageSizes is the allowed set of page sizes. Values outside this set are
// coerced to DefaultLimit, matching the server's own clamping.
var PageSizes = []int{10, 25, 50, 100}

// Query describes one view's position in a server-backed collection: search
// text, named filters, sort, and pagination. The encoded form doubles as the
// shareable URL query string, so a Query can be reconstructed from an
// address bar.
//
// Filter names and sort keys are whitelisted per resource via a Schema.
type Query struct {
	Search  string
	Filters map[string]string
	Sort    string
	Order   string
	Page    int // 1-based
	Limit   int

	schema Schema
}

// Schema restricts which filter names and sort keys a resource accepts.
type Schema struct {
	// FilterKeys are the resource-specific filter parameter names,
	// e.g. "role" and "status" for users.
	FilterKeys []string
	// SortKeys is the whitelist of sortable columns. An unknown sort key
	// falls back to DefaultSort.
	SortKeys []string
}

// New returns a Query at its default state for the given schema.
func New(schema Schema) *Query {
	return &Query{
		Filters: make(map[string]string),
		Sort:    DefaultSort,
		Order:   DefaultOrder,
		Page:    1,
		Limit:   DefaultLimit,
		schema:  schema,
	}
}

// SetSearch replaces the free-text search and resets to page 1.
func (q *Query) SetSearch(text string) {
	q.Search = text
	q.Page = 1
}

// SetFilter sets a named filter and resets to page 1. An empty or "all"
// value clears the filter. Unknown filter names are ignored.
func (q *Query) SetFilter(name, value string) {
	if !slices.Contains(q.schema.FilterKeys, name) {
		return
	}
	if value == "" || value == "all" {
		delete(q.Filters, name)
	} else {
		q.Filters[name] = value
	}
	q.Page = 1
}

// SetSort sorts by key, toggling direction if the key is unchanged and
// otherwise starting ascending. Resets to page 1. Unknown keys fall back
// to the default sort.
func (q *Query) SetSort(key string) {
	if !slices.Contains(q.schema.SortKeys, key) {
		key = DefaultSort
	}
	if q.Sort == key {
		if q.Order == OrderAsc {
			q.Order = OrderDesc
		} else {
			q.Order = OrderAsc
		}
	} else {
		q.Sort = key
		q.Order = OrderAsc
	}
	q.Page = 1
}

// SetPage moves to the given 1-based page. All other fields are untouched.
func (q *Query) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	q.Page = n
}

// SetPageSize changes the page size and resets to page 1. Sizes outside
// PageSizes are coerced to DefaultLimit.
func (q *Query) SetPageSize(n int) {
	if !slices.Contains(PageSizes, n) {
		n = DefaultLimit
	}
	q.Limit = n
	q.Page = 1
}

// Encode serializes the query to URL parameters, omitting any field at its
// default value so shared URLs stay minimal.
func (q *Query) Encode() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	for _, name := range q.schema.FilterKeys {
		if val, ok := q.Filters[name]; ok {
			v.Set(name, val)
		}
	}
	if q.Sort != DefaultSort {
		v.Set("sort", q.Sort)
	}
	if q.Order != DefaultOrder {
		v.Set("order", q.Order)
	}
	if q.Page != 1 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit != DefaultLimit {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// String returns the encoded query string, the persisted shareable form.
func (q *Query) String() string {
	return q.Encode().Encode()
}

// Decode reconstructs a Query from URL parameters, defaulting anything
// absent. Invalid values degrade to defaults rather than erroring: a shared
// URL should never fail to open.
func Decode(v url.Values, schema Schema) *Query {
	q := New(schema)
	q.Search = v.Get("q")
	for _, name := range schema.FilterKeys {
		if val := v.Get(name); val != "" && val != "all" {
			q.Filters[name] = val
		}
	}
	if sort := v.Get("sort"); sort != "" && slices.Contains(schema.SortKeys, sort) {
		q.Sort = sort
	}
	if order := v.Get("order"); order == OrderAsc || order == OrderDesc {
		q.Order = order
	}
	if page, err := strconv.Atoi(v.Get("page")); err == nil && page >= 1 {
		q.Page = page
	}
	if limit, err := strconv.Atoi(v.Get("limit")); err == nil && slices.Contains(PageSizes, limit) {
		q.Limit = limit
	}
	return q
}

// Clone returns an independent copy, so an in-flight fetch can hold the
// parameters it was issued with while the live query keeps moving.
func (q *Query) Clone() *Query {
	c := *q
	c.Filters = make(map[string]string, len(q.Filters))
	for k, v := range q.Filters {
		c.Filters[k] = v
	}
	return &c
}

// Equal reports whether two queries describe the same collection position.
func (q *Query) Equal(other *Query) bool {
	if q.Search != other.Search || q.Sort != other.Sort || q.Order != other.Order ||
		q.Page != other.Page || q.Limit != other.Limit || len(q.Filters) != len(other.Filters) {
		return false
	}
	for k, v := range q.Filters {
		if other.Filters[k] != v {
			return false
		}
	}
	return true
}

// Users is the query schema for the user directory.
func Users() Schema {
	return Schema{
		FilterKeys: []string{"role", "status"},
		SortKeys:   []string{"name", "email", "role", "status", "last_login", "created_at"},
	}
}

// Tickets is the query schema for the support-ticket board.
func Tickets() Schema {
	return Schema{
		FilterKeys: []string{"status", "priority"},
		SortKeys:   []string{"ticket_id", "priority", "status", "created_at"},
	}
}
