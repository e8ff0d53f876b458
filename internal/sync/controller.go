// Package sync implements the optimistic synchronization engine behind a
// collection view: it owns the query state and the optimistic cache for one
// view's lifetime, fetches on every query change, applies mutations locally
// before the server confirms them, and reconciles with authoritative state
// on a timer and after every mutation settles.
package sync

import (
	"context"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/erayaindia/eraya-ops-hub/internal/cache"
	"github.com/erayaindia/eraya-ops-hub/internal/gateway"
	"github.com/erayaindia/eraya-ops-hub/internal/query"
	"github.com/erayaindia/eraya-ops-hub/internal/validate"
	"github.com/erayaindia/eraya-ops-hub/internal/view"
)

// Gateway is the remote collection the controller synchronizes against.
// *gateway.Resource implements it; tests substitute fakes.
type Gateway interface {
	List(ctx context.Context, q *query.Query) (*gateway.PageResult, error)
	Get(ctx context.Context, id string) (gateway.Record, error)
	Create(ctx context.Context, fields url.Values) (string, error)
	Update(ctx context.Context, id string, fields url.Values) error
	Delete(ctx context.Context, id string) error
}

// Options tune the controller's timers. Zero values take the defaults.
type Options struct {
	// SearchDebounce is the quiet interval after the last keystroke
	// before a search fetch is issued.
	SearchDebounce time.Duration
	// RefreshInterval drives the periodic full re-fetch.
	RefreshInterval time.Duration
	// StalenessInterval is how often data age is compared to the marker.
	StalenessInterval time.Duration
	// StalenessAfter is the age at which data is flagged stale.
	StalenessAfter time.Duration
	// DeleteReconcileDelay is the pause before the post-delete re-fetch.
	DeleteReconcileDelay time.Duration
	// Validate checks mutation forms locally before any network call.
	Validate validate.Func
	// Now is the clock, swappable in tests.
	Now func() time.Time
}

func (o *Options) setDefaults() {
	if o.SearchDebounce == 0 {
		o.SearchDebounce = 300 * time.Millisecond
	}
	if o.RefreshInterval == 0 {
		o.RefreshInterval = 30 * time.Second
	}
	if o.StalenessInterval == 0 {
		o.StalenessInterval = 10 * time.Second
	}
	if o.StalenessAfter == 0 {
		o.StalenessAfter = 60 * time.Second
	}
	if o.DeleteReconcileDelay == 0 {
		o.DeleteReconcileDelay = time.Second
	}
	if o.Validate == nil {
		o.Validate = validate.User
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// createKey guards create submissions in the pending ledger. Creates have
// no record id until the server assigns one.
const createKey = "~create"

type resultKind int

const (
	fetchDone resultKind = iota
	createSettled
	updateSettled
	deleteSettled
	reconcileDue
)

// result is a settled asynchronous operation delivered back to the loop.
type result struct {
	kind resultKind
	seq  uint64
	page *gateway.PageResult
	err  error

	id       string
	rec      gateway.Record    // authoritative record after create/update
	prev     gateway.Record    // pre-patch snapshot for update rollback
	rm       *cache.Removed    // restoration token for delete rollback
	conflict map[string]string // field-scoped conflict errors
}

// Controller orchestrates one collection view. All state is owned by the
// Run loop goroutine; the outside world talks to it through Dispatch and
// reads it through Snapshots. It must not be shared between views.
type Controller struct {
	gw   Gateway
	opts Options

	query *query.Query
	cache *cache.Cache

	intents   chan Intent
	results   chan result
	snapshots chan view.Snapshot
	handlers  map[IntentKind]func(Intent)

	ctx context.Context

	state       view.State
	errNotice   string
	fieldErrors map[string]string
	stale       bool
	visible     bool
	lastFetch   time.Time

	// seqIssued tags outgoing list fetches; seqApplied is the highest
	// sequence whose response has been applied. Responses at or below
	// seqApplied are stale and discarded (last-request-wins).
	seqIssued  uint64
	seqApplied uint64

	debounce *time.Timer
}

// New creates a controller for the given resource and query schema.
func New(gw Gateway, schema query.Schema, opts Options) *Controller {
	opts.setDefaults()
	c := &Controller{
		gw:        gw,
		opts:      opts,
		query:     query.New(schema),
		cache:     cache.New(),
		intents:   make(chan Intent, 64),
		results:   make(chan result, 16),
		snapshots: make(chan view.Snapshot, 1),
		state:     view.Idle,
		visible:   true,
	}
	c.handlers = c.dispatchTable()
	return c
}

// Restore replaces the query state, e.g. from a shared URL, before Run.
func (c *Controller) Restore(q *query.Query) {
	c.query = q
}

// Query returns a copy of the current query state, the addressable form of
// the view.
func (c *Controller) Query() *query.Query {
	return c.query.Clone()
}

// Dispatch delivers a user intent to the controller loop.
func (c *Controller) Dispatch(in Intent) {
	c.intents <- in
}

// Snapshots returns the latest-wins snapshot stream. Superseded snapshots
// are dropped if the consumer lags.
func (c *Controller) Snapshots() <-chan view.Snapshot {
	return c.snapshots
}

// Run owns all controller state until ctx is cancelled. It issues the
// initial fetch immediately.
func (c *Controller) Run(ctx context.Context) {
	c.ctx = ctx

	refresh := time.NewTicker(c.opts.RefreshInterval)
	defer refresh.Stop()
	staleTick := time.NewTicker(c.opts.StalenessInterval)
	defer staleTick.Stop()

	c.startFetch()

	for {
		select {
		case <-ctx.Done():
			return

		case in := <-c.intents:
			if handler, ok := c.handlers[in.Kind]; ok {
				handler(in)
			} else {
				log.Warn().Str("intent", string(in.Kind)).Msg("unknown intent dropped")
			}

		case res := <-c.results:
			c.handleResult(res)

		case <-c.debounceCh():
			c.debounce = nil
			c.startFetch()

		case <-refresh.C:
			if c.visible && c.state != view.Fetching {
				c.startFetch()
			}

		case <-staleTick.C:
			c.updateStaleness()
		}
	}
}

// debounceCh returns the pending debounce timer's channel, or nil (which
// never fires) when no search fetch is scheduled.
func (c *Controller) debounceCh() <-chan time.Time {
	if c.debounce == nil {
		return nil
	}
	return c.debounce.C
}

// ----------------------------------------------------------------------
// Intent handlers
// ----------------------------------------------------------------------

func (c *Controller) onSearchChanged(in Intent) {
	c.query.SetSearch(in.Text)
	// A superseding keystroke cancels the previously scheduled fetch;
	// exactly one fetch fires per quiet period.
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounce = time.NewTimer(c.opts.SearchDebounce)
	c.publish()
}

func (c *Controller) onFilterChanged(in Intent) {
	c.query.SetFilter(in.Filter, in.Value)
	c.startFetch()
}

func (c *Controller) onSortToggled(in Intent) {
	c.query.SetSort(in.Sort)
	c.startFetch()
}

func (c *Controller) onPageChanged(in Intent) {
	c.query.SetPage(in.Page)
	c.startFetch()
}

func (c *Controller) onPageSizeChanged(in Intent) {
	c.query.SetPageSize(in.Size)
	c.startFetch()
}

func (c *Controller) onRefreshRequested(Intent) {
	c.startFetch()
}

func (c *Controller) onVisibilityChanged(in Intent) {
	c.visible = in.Visible
}

func (c *Controller) onNoticeDismissed(Intent) {
	c.errNotice = ""
	c.fieldErrors = nil
	c.publish()
}

// onCreateSubmitted validates locally, then runs insert-then-confirm: the
// server assigns the id and timestamps, so the record is fetched back and
// inserted only after the create succeeds, followed by a full re-fetch to
// restore authoritative ordering and pagination.
func (c *Controller) onCreateSubmitted(in Intent) {
	if errs := c.opts.Validate(in.Fields, true); len(errs) > 0 {
		c.fieldErrors = errs
		c.publish()
		return
	}
	if err := c.cache.Begin(cache.MutationCreate, createKey); err != nil {
		c.errNotice = err.Error()
		c.publish()
		return
	}
	c.fieldErrors = nil
	c.publish()

	go func() {
		res := result{kind: createSettled}
		id, err := c.gw.Create(c.ctx, in.Fields)
		if err != nil {
			if conflict, ok := gateway.IsConflict(err); ok && conflict.Field != "" {
				res.conflict = map[string]string{conflict.Field: conflict.Message}
			}
			res.err = err
		} else {
			res.id = id
			if rec, getErr := c.gw.Get(c.ctx, id); getErr == nil {
				res.rec = rec
			}
		}
		c.deliver(res)
	}()
}

func (c *Controller) onUpdateSubmitted(in Intent) {
	if errs := c.opts.Validate(in.Fields, false); len(errs) > 0 {
		c.fieldErrors = errs
		c.publish()
		return
	}
	if err := c.cache.Begin(cache.MutationUpdate, in.ID); err != nil {
		c.errNotice = err.Error()
		c.publish()
		return
	}

	prev, _ := c.cache.ApplyPatch(in.ID, formToAttrs(in.Fields))
	c.fieldErrors = nil
	c.publish()

	go func() {
		res := result{kind: updateSettled, id: in.ID, prev: prev}
		if err := c.gw.Update(c.ctx, in.ID, in.Fields); err != nil {
			if conflict, ok := gateway.IsConflict(err); ok && conflict.Field != "" {
				res.conflict = map[string]string{conflict.Field: conflict.Message}
			}
			res.err = err
		} else if rec, getErr := c.gw.Get(c.ctx, in.ID); getErr == nil {
			res.rec = rec
		}
		c.deliver(res)
	}()
}

func (c *Controller) onDeleteConfirmed(in Intent) {
	if err := c.cache.Begin(cache.MutationDelete, in.ID); err != nil {
		c.errNotice = err.Error()
		c.publish()
		return
	}

	rm, _ := c.cache.ApplyRemove(in.ID)

	// Page-shrink: never render an empty page when earlier pages exist.
	if c.cache.Len() == 0 && c.query.Page > 1 {
		c.query.SetPage(c.query.Page - 1)
		c.startFetch()
	} else {
		c.publish()
	}

	go func() {
		res := result{kind: deleteSettled, id: in.ID, rm: rm}
		err := c.gw.Delete(c.ctx, in.ID)
		if err != nil && !gateway.IsNotFound(err) {
			// 404 means someone else already deleted the row; that is
			// the outcome we wanted, so only other failures roll back.
			res.err = err
		}
		c.deliver(res)
	}()
}

// ----------------------------------------------------------------------
// Fetching
// ----------------------------------------------------------------------

// startFetch issues a list request tagged with the next sequence number.
func (c *Controller) startFetch() {
	c.seqIssued++
	seq := c.seqIssued
	q := c.query.Clone()

	c.state = view.Fetching
	c.publish()

	go func() {
		page, err := c.gw.List(c.ctx, q)
		c.deliver(result{kind: fetchDone, seq: seq, page: page, err: err})
	}()
}

func (c *Controller) handleResult(res result) {
	switch res.kind {
	case fetchDone:
		c.handleFetchDone(res)

	case createSettled:
		c.cache.Settle(createKey)
		if res.err != nil {
			c.surfaceMutationError(res)
			break
		}
		if res.rec != nil {
			c.cache.ApplyInsert(res.rec)
		}
		// Re-fetch to restore authoritative ordering and pagination.
		c.startFetch()

	case updateSettled:
		c.cache.Settle(res.id)
		if res.err != nil {
			if res.prev != nil {
				c.cache.RollbackPatch(res.id, res.prev)
			}
			c.surfaceMutationError(res)
			break
		}
		if res.rec != nil {
			c.cache.MergeRecord(res.rec)
		}
		c.publish()

	case deleteSettled:
		c.cache.Settle(res.id)
		if res.err != nil {
			c.cache.RollbackRemove(res.rm)
			c.surfaceMutationError(res)
			break
		}
		// Delayed background re-fetch to reconcile totals and paging.
		delay := c.opts.DeleteReconcileDelay
		go func() {
			select {
			case <-time.After(delay):
				c.deliver(result{kind: reconcileDue})
			case <-c.ctx.Done():
			}
		}()
		c.publish()

	case reconcileDue:
		c.startFetch()
	}
}

func (c *Controller) handleFetchDone(res result) {
	// Last-request-wins: anything at or below the highest applied
	// sequence is a late response to a superseded request.
	if res.seq <= c.seqApplied {
		log.Debug().Uint64("seq", res.seq).Msg("discarding stale list response")
		return
	}

	if res.err != nil {
		// Only the newest outstanding request may flip the view into
		// FetchError; failures of superseded requests are irrelevant.
		if res.seq == c.seqIssued {
			c.state = view.FetchError
			c.errNotice = res.err.Error()
			c.publish()
		}
		return
	}

	c.seqApplied = res.seq
	c.cache.ReplaceAll(res.page)
	c.lastFetch = c.opts.Now()
	c.stale = false
	c.state = view.Idle
	c.errNotice = ""

	// Deletions elsewhere can strand the view beyond the last page.
	if res.page.Pages > 0 && c.query.Page > res.page.Pages {
		c.query.SetPage(res.page.Pages)
		c.startFetch()
		return
	}

	c.publish()
}

func (c *Controller) surfaceMutationError(res result) {
	if res.conflict != nil {
		c.fieldErrors = res.conflict
	} else {
		c.errNotice = res.err.Error()
	}
	c.publish()
}

// updateStaleness compares data age to the threshold and flips the
// indicator; it clears only via a successful fetch.
func (c *Controller) updateStaleness() {
	if c.lastFetch.IsZero() {
		return
	}
	isStale := c.opts.Now().Sub(c.lastFetch) > c.opts.StalenessAfter
	if isStale != c.stale {
		c.stale = isStale
		c.publish()
	}
}

// deliver hands a result to the loop without leaking the goroutine if the
// controller has been torn down.
func (c *Controller) deliver(res result) {
	select {
	case c.results <- res:
	case <-c.ctx.Done():
	}
}

// publish emits the current snapshot, replacing any unconsumed one.
func (c *Controller) publish() {
	snap := c.snapshot()
	for {
		select {
		case c.snapshots <- snap:
			return
		default:
			select {
			case <-c.snapshots:
			default:
			}
		}
	}
}

func (c *Controller) snapshot() view.Snapshot {
	total := c.cache.Total()
	pages := 0
	if total > 0 {
		pages = (total + c.query.Limit - 1) / c.query.Limit
	}
	return view.Snapshot{
		Items:       c.cache.Items(),
		Total:       total,
		Page:        c.query.Page,
		Limit:       c.query.Limit,
		Pages:       pages,
		State:       c.state,
		Err:         c.errNotice,
		FieldErrors: c.fieldErrors,
		Stale:       c.stale,
	}
}

// formToAttrs converts submitted form fields to record attributes for the
// optimistic patch. Credential fields never land in the cache.
func formToAttrs(fields url.Values) map[string]any {
	attrs := make(map[string]any, len(fields))
	for k := range fields {
		if k == "password" || k == "password_confirm" {
			continue
		}
		attrs[k] = fields.Get(k)
	}
	return attrs
}
