// Package store is the server-side data layer behind the console API. Two
// implementations share one interface: a Postgres store for deployments and
// an in-memory store for tests and demo mode.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate indicates a unique-column collision, e.g. an email that
// already belongs to another user.
type ErrDuplicate struct {
	Column string
}

func (e ErrDuplicate) Error() string {
	return fmt.Sprintf("duplicate value for %s", e.Column)
}

// IsDuplicate returns the violated column if err is an ErrDuplicate.
func IsDuplicate(err error) (ErrDuplicate, bool) {
	var d ErrDuplicate
	ok := errors.As(err, &d)
	return d, ok
}

// Resource describes one managed collection and whitelists every
// identifier that may reach a query. Nothing outside these lists is ever
// interpolated into SQL or matched in memory.
type Resource struct {
	Table string
	// IDColumn is the primary key column, returned to clients.
	IDColumn string
	// SearchColumns participate in free-text search.
	SearchColumns []string
	// FilterColumns may be filtered by exact match.
	FilterColumns []string
	// SortColumns may be ordered by; the first entry is the default.
	SortColumns []string
	// ListColumns are returned from list/get. Secrets stay out.
	ListColumns []string
	// UniqueColumns reject duplicate values on create and update.
	UniqueColumns []string
}

// Users is the user directory resource.
func Users() Resource {
	return Resource{
		Table:         "users",
		IDColumn:      "id",
		SearchColumns: []string{"name", "email", "phone"},
		FilterColumns: []string{"role", "status"},
		SortColumns:   []string{"created_at", "name", "email", "role", "status", "last_login"},
		ListColumns: []string{
			"id", "name", "email", "role", "status", "phone", "city", "state",
			"joining_date", "last_login", "login_count", "created_at", "updated_at",
		},
		UniqueColumns: []string{"email"},
	}
}

// Tickets is the support-ticket board resource.
func Tickets() Resource {
	return Resource{
		Table:         "tickets",
		IDColumn:      "ticket_id",
		SearchColumns: []string{"full_name", "email", "summary"},
		FilterColumns: []string{"status", "priority"},
		SortColumns:   []string{"created_at", "ticket_id", "priority", "status"},
		ListColumns: []string{
			"ticket_id", "full_name", "email", "channel", "issue_type",
			"summary", "status", "priority", "created_at", "updated_at",
		},
		UniqueColumns: nil,
	}
}

// ListParams are the validated list-query parameters. Handlers clamp and
// whitelist before constructing them.
type ListParams struct {
	Search  string
	Filters map[string]string
	Sort    string
	Order   string // "asc" or "desc"
	Page    int    // 1-based
	Limit   int
}

// Offset returns the row offset for the page.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ListResult is one page plus the filtered total.
type ListResult struct {
	Items []map[string]any
	Total int
}

// Stats are full-collection user statistics for the dashboard, unlike the
// page-scoped numbers the console derives client-side.
type Stats struct {
	Total        int `json:"total"`
	Active       int `json:"active"`
	Admins       int `json:"admins"`
	RecentLogins int `json:"recent_logins"`
}

// Store is the persistence interface for all console resources.
type Store interface {
	List(ctx context.Context, res Resource, p ListParams) (*ListResult, error)
	Get(ctx context.Context, res Resource, id string) (map[string]any, error)
	Create(ctx context.Context, res Resource, fields map[string]any) (string, error)
	Update(ctx context.Context, res Resource, id string, fields map[string]any) error
	Delete(ctx context.Context, res Resource, id string) error
	Stats(ctx context.Context, res Resource) (*Stats, error)
}
