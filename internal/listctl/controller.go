// Package listctl implements the search, filter, sort and paginate state
// machine shared by every admin management table.
//
// Input methods return a ticket. A handler passes the ticket to Await to
// block until the fetch it triggered has been applied; Await reports false
// when newer input superseded the ticket, in which case the handler answers
// without a body and lets the newer request render.
package listctl

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/smartshop/internal/api"
	"github.com/dukerupert/smartshop/internal/csvexport"
	"github.com/dukerupert/smartshop/internal/debounce"
	"github.com/dukerupert/smartshop/internal/errors"
	"github.com/dukerupert/smartshop/internal/model"
)

// Sort orders.
const (
	Asc  = "asc"
	Desc = "desc"
)

// Action is the outcome of ToggleDelete.
type Action string

const (
	Deleted  Action = "deleted"
	Restored Action = "restored"
)

// Fetcher is the backend surface a controller drives. *api.Resource
// satisfies it.
type Fetcher[T model.SoftDeletable] interface {
	Index(ctx context.Context, q api.ListQuery) (*model.Page[T], error)
	Destroy(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
	Export(ctx context.Context, q api.ListQuery) ([]byte, error)
}

// Config tunes a controller.
type Config[T any] struct {
	// Entity names the collection; it prefixes export filenames.
	Entity   string
	Debounce time.Duration
	PerPage  int
	// DescFields are the sort fields whose first order is descending
	// (numeric and date columns).
	DescFields []string
	// CSV renders the export locally when the backend has no export route.
	CSV    *csvexport.Table[T]
	Logger *slog.Logger
	Now    func() time.Time
}

// State is a snapshot of a listing.
type State[T any] struct {
	Items     []T
	Meta      model.PaginationMeta
	Page      int
	Search    string
	Filters   map[string]string
	SortField string
	SortOrder string
	Loading   bool
	Err       error
}

// Pager returns the pagination view for the snapshot.
func (s State[T]) Pager() Pager {
	return NewPager(s.Meta)
}

// Empty reports whether there is nothing to show.
func (s State[T]) Empty() bool {
	return len(s.Items) == 0
}

// Controller owns the state of one admin table for one browser session.
type Controller[T model.SoftDeletable] struct {
	cfg     Config[T]
	fetcher Fetcher[T]
	logger  *slog.Logger

	deb *debounce.Debouncer
	seq debounce.Sequencer

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State[T]
	applied uint64
	changed chan struct{}
	closed  bool
}

// New creates a controller. It fetches nothing until Mount.
func New[T model.SoftDeletable](f Fetcher[T], cfg Config[T]) *Controller[T] {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller[T]{
		cfg:     cfg,
		fetcher: f,
		logger:  cfg.Logger.With("component", "listctl", "entity", cfg.Entity),
		deb:     debounce.New(cfg.Debounce),
		ctx:     ctx,
		cancel:  cancel,
		state:   State[T]{Page: 1, Filters: map[string]string{}},
		changed: make(chan struct{}),
	}
}

// Entity returns the configured collection name.
func (c *Controller[T]) Entity() string {
	return c.cfg.Entity
}

// Mount fetches page 1 with no search, filters or sort and waits for it.
func (c *Controller[T]) Mount(ctx context.Context) State[T] {
	c.mu.Lock()
	if c.closed {
		st := c.snapshotLocked()
		c.mu.Unlock()
		return st
	}
	c.deb.Cancel()
	c.state.Page = 1
	c.state.Search = ""
	c.state.Filters = map[string]string{}
	c.state.SortField = ""
	c.state.SortOrder = ""
	ticket := c.seq.Next()
	c.broadcastLocked()
	c.mu.Unlock()

	go c.fetch(ticket)
	st, _ := c.Await(ctx, ticket)
	return st
}

// SetSearch updates the search text and schedules a debounced refetch of
// page 1.
func (c *Controller[T]) SetSearch(text string) uint64 {
	return c.input(func(s *State[T]) { s.Search = text })
}

// SetFilter sets one named filter. "" and "all" mean no filtering.
func (c *Controller[T]) SetFilter(name, value string) uint64 {
	return c.input(func(s *State[T]) {
		if value == "" || value == "all" {
			delete(s.Filters, name)
			return
		}
		s.Filters[name] = value
	})
}

// ToggleSort flips the order when field is already active, otherwise it
// switches to field with that field's default order.
func (c *Controller[T]) ToggleSort(field string) uint64 {
	return c.input(func(s *State[T]) {
		if s.SortField == field {
			if s.SortOrder == Asc {
				s.SortOrder = Desc
			} else {
				s.SortOrder = Asc
			}
			return
		}
		s.SortField = field
		s.SortOrder = c.defaultOrder(field)
	})
}

func (c *Controller[T]) defaultOrder(field string) string {
	if slices.Contains(c.cfg.DescFields, field) {
		return Desc
	}
	return Asc
}

// input applies mutate, resets to page 1 and debounces the refetch.
func (c *Controller[T]) input(mutate func(*State[T])) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0
	}
	mutate(&c.state)
	c.state.Page = 1
	ticket := c.seq.Next()
	c.broadcastLocked()
	c.deb.Trigger(func() { c.fetch(ticket) })
	return ticket
}

// ChangePage fetches page n right away. Out-of-range pages are rejected
// and reported with ok false; on success the caller should scroll to top.
func (c *Controller[T]) ChangePage(n int) (ticket uint64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || n < 1 || n > max(1, c.state.Meta.LastPage) {
		return 0, false
	}
	c.deb.Cancel()
	c.state.Page = n
	ticket = c.seq.Next()
	c.broadcastLocked()
	go c.fetch(ticket)
	return ticket, true
}

// Refresh refetches the current page immediately.
func (c *Controller[T]) Refresh() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0
	}
	c.deb.Cancel()
	ticket := c.seq.Next()
	c.broadcastLocked()
	go c.fetch(ticket)
	return ticket
}

// ToggleDelete soft-deletes an active entity or restores a deleted one,
// then refetches the current page.
func (c *Controller[T]) ToggleDelete(ctx context.Context, id int64) (Action, State[T], error) {
	item, found := c.find(id)
	if !found {
		return "", c.State(), errors.NotFound("registro não encontrado")
	}

	action, call := Deleted, c.fetcher.Destroy
	if item.Deleted() {
		action, call = Restored, c.fetcher.Restore
	}
	if err := call(ctx, id); err != nil {
		c.logger.Error("toggle delete failed", "id", id, "action", action, "error", err)
		return "", c.State(), err
	}

	st, _ := c.Await(ctx, c.Refresh())
	return action, st, nil
}

func (c *Controller[T]) find(id int64) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.state.Items {
		if it.EntityID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Export downloads the listing as CSV using the current search, filters
// and sort. When the backend has no export route and a local table is
// configured, every page is fetched and encoded here instead.
func (c *Controller[T]) Export(ctx context.Context) (string, []byte, error) {
	q := c.query()
	name := csvexport.Filename(c.cfg.Entity, c.cfg.Now())

	data, err := c.fetcher.Export(ctx, q)
	if err == nil {
		return name, data, nil
	}
	if !errors.Is(err, errors.ErrNotFound) || c.cfg.CSV == nil {
		return "", nil, err
	}

	items, err := c.fetchAll(ctx, q)
	if err != nil {
		return "", nil, err
	}
	data, err = c.cfg.CSV.Encode(items)
	if err != nil {
		return "", nil, errors.Internal("falha ao gerar CSV").WithCause(err)
	}
	return name, data, nil
}

func (c *Controller[T]) fetchAll(ctx context.Context, q api.ListQuery) ([]T, error) {
	q.Page = 1
	first, err := c.fetcher.Index(ctx, q)
	if err != nil {
		return nil, err
	}
	if first.Meta.LastPage <= 1 {
		return first.Items, nil
	}

	pages := make([][]T, first.Meta.LastPage)
	pages[0] = first.Items

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for n := 2; n <= first.Meta.LastPage; n++ {
		pq := q
		pq.Page = n
		g.Go(func() error {
			page, err := c.fetcher.Index(gctx, pq)
			if err != nil {
				return err
			}
			pages[n-1] = page.Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.Concat(pages...), nil
}

// Await blocks until the fetch for ticket has been applied. It returns
// false when the ticket was superseded, the controller closed or ctx ended.
func (c *Controller[T]) Await(ctx context.Context, ticket uint64) (State[T], bool) {
	for {
		c.mu.Lock()
		switch {
		case c.closed || ticket == 0 || !c.seq.IsLatest(ticket):
			st := c.snapshotLocked()
			c.mu.Unlock()
			return st, false
		case c.applied == ticket:
			st := c.snapshotLocked()
			c.mu.Unlock()
			return st, true
		}
		ch := c.changed
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return c.State(), false
		}
	}
}

// State returns a copy of the current state.
func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close stops pending work. In-flight fetches finish without touching state.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.deb.Stop()
	c.cancel()
	c.broadcastLocked()
}

func (c *Controller[T]) query() api.ListQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queryLocked()
}

func (c *Controller[T]) queryLocked() api.ListQuery {
	return api.ListQuery{
		Page:      c.state.Page,
		PerPage:   c.cfg.PerPage,
		Search:    c.state.Search,
		Filters:   maps.Clone(c.state.Filters),
		SortBy:    c.state.SortField,
		SortOrder: c.state.SortOrder,
	}
}

func (c *Controller[T]) fetch(ticket uint64) {
	c.mu.Lock()
	if c.closed || !c.seq.IsLatest(ticket) {
		c.mu.Unlock()
		return
	}
	q := c.queryLocked()
	c.state.Loading = true
	c.broadcastLocked()
	c.mu.Unlock()

	page, err := c.fetcher.Index(c.ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.seq.IsLatest(ticket) {
		return
	}
	c.state.Loading = false
	if err != nil {
		c.logger.Warn("fetch failed", "page", q.Page, "search", q.Search, "error", err)
		c.state.Items = nil
		c.state.Meta = model.PaginationMeta{}
		c.state.Err = err
	} else {
		c.state.Items = page.Items
		c.state.Meta = page.Meta
		c.state.Err = nil
	}
	c.applied = ticket
	c.broadcastLocked()
}

func (c *Controller[T]) broadcastLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *Controller[T]) snapshotLocked() State[T] {
	st := c.state
	st.Items = slices.Clone(c.state.Items)
	st.Filters = maps.Clone(c.state.Filters)
	return st
}
