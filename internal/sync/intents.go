package sync

import "net/url"

// IntentKind names a user intent. Renderers translate gestures (keys,
// clicks) into intents; the controller is the only component that acts on
// them, which keeps the state machine headless-testable.
type IntentKind string

const (
	SearchChanged     IntentKind = "search_changed"
	FilterChanged     IntentKind = "filter_changed"
	SortToggled       IntentKind = "sort_toggled"
	PageChanged       IntentKind = "page_changed"
	PageSizeChanged   IntentKind = "page_size_changed"
	CreateSubmitted   IntentKind = "create_submitted"
	UpdateSubmitted   IntentKind = "update_submitted"
	DeleteConfirmed   IntentKind = "delete_confirmed"
	RefreshRequested  IntentKind = "refresh_requested"
	VisibilityChanged IntentKind = "visibility_changed"
	NoticeDismissed   IntentKind = "notice_dismissed"
)

// Intent is one user command. Only the fields relevant to the Kind are set.
type Intent struct {
	Kind IntentKind

	Text   string // SearchChanged
	Filter string // FilterChanged
	Value  string // FilterChanged
	Sort   string // SortToggled
	Page   int    // PageChanged
	Size   int    // PageSizeChanged

	ID     string     // UpdateSubmitted, DeleteConfirmed
	Fields url.Values // CreateSubmitted, UpdateSubmitted

	Visible bool // VisibilityChanged
}

// dispatch is the intent routing table. Built once per controller so every
// intent kind maps to exactly one method.
func (c *Controller) dispatchTable() map[IntentKind]func(Intent) {
	return map[IntentKind]func(Intent){
		SearchChanged:     c.onSearchChanged,
		FilterChanged:     c.onFilterChanged,
		SortToggled:       c.onSortToggled,
		PageChanged:       c.onPageChanged,
		PageSizeChanged:   c.onPageSizeChanged,
		CreateSubmitted:   c.onCreateSubmitted,
		UpdateSubmitted:   c.onUpdateSubmitted,
		DeleteConfirmed:   c.onDeleteConfirmed,
		RefreshRequested:  c.onRefreshRequested,
		VisibilityChanged: c.onVisibilityChanged,
		NoticeDismissed:   c.onNoticeDismissed,
	}
}
