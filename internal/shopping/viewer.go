package shopping

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/dukerupert/smartshop/internal/api"
	"github.com/dukerupert/smartshop/internal/csvexport"
	"github.com/dukerupert/smartshop/internal/errors"
	"github.com/dukerupert/smartshop/internal/format"
	"github.com/dukerupert/smartshop/internal/model"
)

// ListBackend is what the viewer and the "My Lists" page need.
type ListBackend interface {
	List(ctx context.Context, id int64) (*model.ShoppingList, error)
	Lists(ctx context.Context, page int) (*model.Page[model.ListSummary], error)
	UpdateList(ctx context.Context, id int64, patch api.ListPatch) (*model.ShoppingList, error)
}

// FlatHeading titles the single section of a list that was not optimized.
const FlatHeading = "Lista"

// Group is the set of line items bought from one merchant.
type Group struct {
	MerchantID int64
	Heading    string
	Address    string
	Items      []model.LineItem
}

func (g Group) Subtotal() float64 {
	var total float64
	for _, it := range g.Items {
		total += it.Subtotal()
	}
	return total
}

// Progress counts checked-off items.
type Progress struct {
	Done    int
	Total   int
	Percent int
}

// Viewer shows one persisted list. Checking items off is local only.
type Viewer struct {
	backend ListBackend

	mu   sync.Mutex
	list *model.ShoppingList
	done map[int64]bool
}

func NewViewer(backend ListBackend) *Viewer {
	return &Viewer{backend: backend, done: map[int64]bool{}}
}

// Load fetches the list. Local check marks survive reloading the same list.
func (v *Viewer) Load(ctx context.Context, id int64) error {
	list, err := v.backend.List(ctx, id)
	if err != nil {
		return err
	}
	if list == nil {
		return errors.NotFound("lista não encontrada")
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.list == nil || v.list.ID != list.ID {
		v.done = map[int64]bool{}
		for _, it := range list.Items {
			if it.Completed {
				v.done[it.ID] = true
			}
		}
	}
	v.list = list
	return nil
}

// Close forgets the loaded list and its check marks.
func (v *Viewer) Close() {
	v.mu.Lock()
	v.list = nil
	v.done = map[int64]bool{}
	v.mu.Unlock()
}

// Loaded reports whether the viewer currently holds list id.
func (v *Viewer) Loaded(id int64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.list != nil && v.list.ID == id
}

// List returns a copy of the loaded list with local check marks applied.
func (v *Viewer) List() (model.ShoppingList, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.list == nil {
		return model.ShoppingList{}, false
	}
	l := *v.list
	l.Items = v.itemsLocked()
	return l, true
}

func (v *Viewer) itemsLocked() []model.LineItem {
	items := slices.Clone(v.list.Items)
	for i := range items {
		items[i].Completed = v.done[items[i].ID]
	}
	return items
}

// Groups partitions the items by merchant in first-seen order.
func (v *Viewer) Groups() []Group {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.list == nil {
		return nil
	}
	return groupByMerchant(v.itemsLocked())
}

// Sections is what the page renders: one group per merchant once the list
// is optimized, otherwise a single group under FlatHeading.
func (v *Viewer) Sections() []Group {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.list == nil {
		return nil
	}
	items := v.itemsLocked()
	if !v.list.Optimized {
		return []Group{{Heading: FlatHeading, Items: items}}
	}
	return groupByMerchant(items)
}

func groupByMerchant(items []model.LineItem) []Group {
	var groups []Group
	index := map[int64]int{}
	for _, it := range items {
		i, ok := index[it.MerchantID]
		if !ok {
			heading := it.MerchantName
			if heading == "" {
				heading = "Loja " + strconv.FormatInt(it.MerchantID, 10)
			}
			groups = append(groups, Group{MerchantID: it.MerchantID, Heading: heading, Address: it.MerchantAddress})
			i = len(groups) - 1
			index[it.MerchantID] = i
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}

// ToggleComplete flips an item's check mark and returns the new value.
func (v *Viewer) ToggleComplete(itemID int64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.list == nil || !slices.ContainsFunc(v.list.Items, func(it model.LineItem) bool { return it.ID == itemID }) {
		return false
	}
	v.done[itemID] = !v.done[itemID]
	return v.done[itemID]
}

func (v *Viewer) Progress() Progress {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.list == nil || len(v.list.Items) == 0 {
		return Progress{}
	}
	p := Progress{Total: len(v.list.Items)}
	for _, it := range v.list.Items {
		if v.done[it.ID] {
			p.Done++
		}
	}
	p.Percent = p.Done * 100 / p.Total
	return p
}

// RequestOptimization asks the backend to optimize the list and switches
// the sections to per-merchant headings.
func (v *Viewer) RequestOptimization(ctx context.Context) error {
	yes := true
	return v.patch(ctx, api.ListPatch{Optimized: &yes}, func(l *model.ShoppingList) { l.Optimized = true })
}

// MarkComplete sets the list status to completed.
func (v *Viewer) MarkComplete(ctx context.Context) error {
	status := model.ListCompleted
	return v.patch(ctx, api.ListPatch{Status: &status}, func(l *model.ShoppingList) { l.Status = model.ListCompleted })
}

// ToggleFavorite flips the list's favorite flag.
func (v *Viewer) ToggleFavorite(ctx context.Context) error {
	v.mu.Lock()
	if v.list == nil {
		v.mu.Unlock()
		return errors.NotFound("lista não carregada")
	}
	fav := !v.list.Favorite
	v.mu.Unlock()
	return v.patch(ctx, api.ListPatch{Favorite: &fav}, func(l *model.ShoppingList) { l.Favorite = fav })
}

// patch sends p and applies it locally. A response carrying items replaces
// the loaded list.
func (v *Viewer) patch(ctx context.Context, p api.ListPatch, apply func(*model.ShoppingList)) error {
	v.mu.Lock()
	if v.list == nil {
		v.mu.Unlock()
		return errors.NotFound("lista não carregada")
	}
	id := v.list.ID
	v.mu.Unlock()

	updated, err := v.backend.UpdateList(ctx, id, p)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.list == nil || v.list.ID != id {
		return nil
	}
	if updated != nil && updated.ID == id && len(updated.Items) > 0 {
		v.list = updated
	}
	apply(v.list)
	return nil
}

var listCSV = csvexport.Table[model.LineItem]{
	Columns: []string{"produto", "quantidade", "unidade", "preco_unitario", "subtotal", "loja", "endereco"},
	Row: func(it model.LineItem) []string {
		return []string{
			it.Name,
			strconv.Itoa(it.Quantity),
			it.Unity,
			format.BRL(it.UnitPrice),
			format.BRL(it.Subtotal()),
			it.MerchantName,
			it.MerchantAddress,
		}
	},
}

// Export renders the loaded list as CSV.
func (v *Viewer) Export(now time.Time) (string, []byte, error) {
	v.mu.Lock()
	if v.list == nil {
		v.mu.Unlock()
		return "", nil, errors.NotFound("lista não carregada")
	}
	items := v.itemsLocked()
	id := v.list.ID
	v.mu.Unlock()

	data, err := listCSV.Encode(items)
	if err != nil {
		return "", nil, fmt.Errorf("encode list %d: %w", id, err)
	}
	return csvexport.Filename(fmt.Sprintf("lista_%d", id), now), data, nil
}

// Summaries returns a page of the caller's lists.
func Summaries(ctx context.Context, backend ListBackend, page int) (*model.Page[model.ListSummary], error) {
	if page < 1 {
		page = 1
	}
	return backend.Lists(ctx, page)
}
