// Package view defines the contract between the synchronization controller
// and whatever renders it. Renderers consume immutable snapshots; they hold
// no controller state and issue no fetches of their own.
package view

import (
	"time"

	"github.com/erayaindia/eraya-ops-hub/internal/gateway"
)

// State is the controller's fetch state.
type State string

const (
	Idle       State = "idle"
	Fetching   State = "fetching"
	FetchError State = "fetch_error"
)

// Snapshot is one renderable moment of a collection view.
type Snapshot struct {
	Items []gateway.Record
	Total int
	Page  int
	Limit int
	Pages int

	State State
	// Err is a dismissible, human-readable notice for the last surfaced
	// failure. Empty when nothing is wrong.
	Err string
	// FieldErrors maps form field names to validation or conflict messages.
	FieldErrors map[string]string
	// Stale is set when the data's age exceeds the staleness threshold.
	Stale bool
}

// PageInfo derives the pagination controls' enabled state.
type PageInfo struct {
	PrevDisabled bool
	NextDisabled bool
}

// PageInfo computes pagination bounds for the snapshot.
func (s Snapshot) PageInfo() PageInfo {
	return PageInfo{
		PrevDisabled: s.Page <= 1,
		NextDisabled: s.Pages == 0 || s.Page >= s.Pages,
	}
}

// Stats are derived counts over the currently cached page only. This is a
// page-scoped approximation, not a full-collection aggregate; the server's
// statistics endpoint serves the full numbers.
type Stats struct {
	PageCount    int
	Active       int
	Admins       int
	RecentLogins int
}

// ComputeStats derives page-scoped statistics from the cached items.
// "Recent" means a login within the last seven days.
func ComputeStats(items []gateway.Record, now time.Time) Stats {
	st := Stats{PageCount: len(items)}
	cutoff := now.AddDate(0, 0, -7)
	for _, rec := range items {
		if rec.Str("status") == "active" {
			st.Active++
		}
		switch rec.Str("role") {
		case "admin", "owner":
			st.Admins++
		}
		if last := rec.Time("last_login"); !last.IsZero() && last.After(cutoff) {
			st.RecentLogins++
		}
	}
	return st
}

// Renderer consumes snapshots. Implementations must not block for long;
// the controller publishes latest-wins and will drop superseded snapshots.
type Renderer interface {
	Render(Snapshot)
}
