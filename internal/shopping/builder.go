// Package shopping holds the client-side list builder and the persisted
// list viewer.
package shopping

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/smartshop/internal/api"
	"github.com/dukerupert/smartshop/internal/debounce"
	"github.com/dukerupert/smartshop/internal/errors"
	"github.com/dukerupert/smartshop/internal/model"
)

// BuilderBackend is what the builder needs from the backend.
type BuilderBackend interface {
	Products(ctx context.Context, q api.ListQuery) (*model.Page[model.Product], error)
	CreateList(ctx context.Context, name string, entries []api.ListEntry) (*model.ShoppingList, error)
}

// Entry is one product selection of a list being built.
type Entry struct {
	Product  model.Product
	Quantity int
	Unity    string
}

func (e Entry) Subtotal() float64 {
	return e.Product.AveragePrice * float64(e.Quantity)
}

// Search is a snapshot of the builder's product search.
type Search struct {
	Text     string
	Page     int
	Products []model.Product
	Meta     model.PaginationMeta
	Loading  bool
	Err      error
}

// Favorites returns the products of the current result page flagged as
// favorite.
func (s Search) Favorites() []model.Product {
	var out []model.Product
	for _, p := range s.Products {
		if p.IsFavorite {
			out = append(out, p)
		}
	}
	return out
}

// Builder assembles a candidate list locally. Nothing is persisted until Save.
type Builder struct {
	backend BuilderBackend
	logger  *slog.Logger

	deb *debounce.Debouncer
	seq debounce.Sequencer

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	name    string
	entries []Entry
	search  Search
	applied uint64
	changed chan struct{}
	closed  bool
}

// NewBuilder creates an empty builder whose product search settles after
// window.
func NewBuilder(backend BuilderBackend, window time.Duration, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Builder{
		backend: backend,
		logger:  logger.With("component", "builder"),
		deb:     debounce.New(window),
		ctx:     ctx,
		cancel:  cancel,
		search:  Search{Page: 1},
		changed: make(chan struct{}),
	}
}

func (b *Builder) SetName(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.name = strings.TrimSpace(name)
}

func (b *Builder) Name() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.name
}

// Add increments the product's quantity, appending it with quantity 1 and
// its default unit on first add.
func (b *Builder) Add(p model.Product) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.indexLocked(p.ID); i >= 0 {
		b.entries[i].Quantity++
		return
	}
	b.entries = append(b.entries, Entry{Product: p, Quantity: 1, Unity: p.Unity})
}

// AddByID adds a product from the current search results. It reports
// false when the product is neither selected nor on the result page.
func (b *Builder) AddByID(id int64) bool {
	b.mu.Lock()
	if i := b.indexLocked(id); i >= 0 {
		b.entries[i].Quantity++
		b.mu.Unlock()
		return true
	}
	idx := slices.IndexFunc(b.search.Products, func(p model.Product) bool { return p.ID == id })
	if idx < 0 {
		b.mu.Unlock()
		return false
	}
	p := b.search.Products[idx]
	b.mu.Unlock()
	b.Add(p)
	return true
}

// Remove decrements the product's quantity, dropping the entry when it
// would fall below 1.
func (b *Builder) Remove(productID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexLocked(productID)
	if i < 0 {
		return
	}
	if b.entries[i].Quantity > 1 {
		b.entries[i].Quantity--
		return
	}
	b.entries = slices.Delete(b.entries, i, i+1)
}

// SetUnit changes the unit of an existing entry.
func (b *Builder) SetUnit(productID int64, unity string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.indexLocked(productID); i >= 0 && unity != "" {
		b.entries[i].Unity = unity
	}
}

func (b *Builder) indexLocked(productID int64) int {
	return slices.IndexFunc(b.entries, func(e Entry) bool { return e.Product.ID == productID })
}

// Quantity returns the selected quantity of a product, 0 if absent.
func (b *Builder) Quantity(productID int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.indexLocked(productID); i >= 0 {
		return b.entries[i].Quantity
	}
	return 0
}

// Entries returns a copy of the selections in insertion order.
func (b *Builder) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.entries)
}

// Total is the sum of price times quantity over all entries.
func (b *Builder) Total() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var total float64
	for _, e := range b.entries {
		total += e.Subtotal()
	}
	return total
}

// Count is the number of product lines.
func (b *Builder) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Save submits the name and every entry in one call. On success the builder
// is emptied; on failure its state is left as it was.
func (b *Builder) Save(ctx context.Context) (*model.ShoppingList, error) {
	b.mu.Lock()
	name := b.name
	entries := make([]api.ListEntry, 0, len(b.entries))
	for _, e := range b.entries {
		entries = append(entries, api.ListEntry{Product: e.Product, Quantity: e.Quantity, Unity: e.Unity})
	}
	b.mu.Unlock()

	fields := map[string][]string{}
	if name == "" {
		fields["listName"] = []string{"Informe um nome para a lista."}
	}
	if len(entries) == 0 {
		fields["products"] = []string{"Adicione pelo menos um produto."}
	}
	if len(fields) > 0 {
		return nil, errors.Validation("Lista incompleta.", fields)
	}

	list, err := b.backend.CreateList(ctx, name, entries)
	if err != nil {
		b.logger.Warn("save list failed", "name", name, "entries", len(entries), "error", err)
		return nil, err
	}

	b.mu.Lock()
	b.name = ""
	b.entries = nil
	b.mu.Unlock()
	return list, nil
}

// SetSearch schedules a debounced product search for text on page 1.
func (b *Builder) SetSearch(text string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0
	}
	b.search.Text = strings.TrimSpace(text)
	b.search.Page = 1
	ticket := b.seq.Next()
	b.broadcastLocked()
	b.deb.Trigger(func() { b.fetch(ticket) })
	return ticket
}

// SearchPage fetches page n of the current search right away.
func (b *Builder) SearchPage(n int) (uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || n < 1 || n > max(1, b.search.Meta.LastPage) {
		return 0, false
	}
	b.deb.Cancel()
	b.search.Page = n
	ticket := b.seq.Next()
	b.broadcastLocked()
	go b.fetch(ticket)
	return ticket, true
}

// Refresh fetches the current search right away.
func (b *Builder) Refresh() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0
	}
	b.deb.Cancel()
	ticket := b.seq.Next()
	b.broadcastLocked()
	go b.fetch(ticket)
	return ticket
}

// AwaitSearch blocks until the search for ticket has been applied. It
// returns false when a newer search superseded it.
func (b *Builder) AwaitSearch(ctx context.Context, ticket uint64) (Search, bool) {
	for {
		b.mu.Lock()
		if b.closed || ticket == 0 || !b.seq.IsLatest(ticket) {
			s := b.searchLocked()
			b.mu.Unlock()
			return s, false
		}
		if b.applied == ticket {
			s := b.searchLocked()
			b.mu.Unlock()
			return s, true
		}
		ch := b.changed
		b.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return b.Search(), false
		}
	}
}

// Search returns the current product search snapshot.
func (b *Builder) Search() Search {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.searchLocked()
}

func (b *Builder) searchLocked() Search {
	s := b.search
	s.Products = slices.Clone(b.search.Products)
	return s
}

func (b *Builder) fetch(ticket uint64) {
	b.mu.Lock()
	if b.closed || !b.seq.IsLatest(ticket) {
		b.mu.Unlock()
		return
	}
	q := api.ListQuery{Page: b.search.Page, Search: b.search.Text}
	b.search.Loading = true
	b.broadcastLocked()
	b.mu.Unlock()

	page, err := b.backend.Products(b.ctx, q)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || !b.seq.IsLatest(ticket) {
		return
	}
	b.search.Loading = false
	if err != nil {
		b.logger.Warn("product search failed", "search", q.Search, "error", err)
		b.search.Products = nil
		b.search.Meta = model.PaginationMeta{}
		b.search.Err = err
	} else {
		b.search.Products = page.Items
		b.search.Meta = page.Meta
		b.search.Err = nil
	}
	b.applied = ticket
	b.broadcastLocked()
}

func (b *Builder) broadcastLocked() {
	close(b.changed)
	b.changed = make(chan struct{})
}

// Close drops pending searches. Late responses are ignored.
func (b *Builder) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.deb.Stop()
	b.cancel()
	b.broadcastLocked()
}
