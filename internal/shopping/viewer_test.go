package shopping

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/smartshop/internal/api"
	"github.com/dukerupert/smartshop/internal/model"
)

type fakeLists struct {
	list    model.ShoppingList
	patches []api.ListPatch
}

func (f *fakeLists) List(_ context.Context, id int64) (*model.ShoppingList, error) {
	l := f.list
	l.Items = append([]model.LineItem(nil), f.list.Items...)
	return &l, nil
}

func (f *fakeLists) Lists(_ context.Context, page int) (*model.Page[model.ListSummary], error) {
	return &model.Page[model.ListSummary]{Meta: model.PaginationMeta{CurrentPage: page}}, nil
}

func (f *fakeLists) UpdateList(_ context.Context, id int64, p api.ListPatch) (*model.ShoppingList, error) {
	f.patches = append(f.patches, p)
	return &model.ShoppingList{ID: id}, nil
}

func weeklyList() model.ShoppingList {
	return model.ShoppingList{
		ID:   5,
		Name: "Weekly",
		Items: []model.LineItem{
			{ID: 1, Name: "Arroz", Quantity: 2, UnitPrice: 10, MerchantID: 100, MerchantName: "Mercado Central"},
			{ID: 2, Name: "Feijão", Quantity: 1, UnitPrice: 8, MerchantID: 200, MerchantName: "Atacadão"},
			{ID: 3, Name: "Leite", Quantity: 3, UnitPrice: 5, MerchantID: 100, MerchantName: "Mercado Central"},
		},
	}
}

func TestSectionsFlatUntilOptimized(t *testing.T) {
	f := &fakeLists{list: weeklyList()}
	v := NewViewer(f)
	require.NoError(t, v.Load(context.Background(), 5))

	sections := v.Sections()
	require.Len(t, sections, 1)
	assert.Equal(t, FlatHeading, sections[0].Heading)
	assert.Len(t, sections[0].Items, 3)

	groups := v.Groups()
	require.Len(t, groups, 2, "grouping is computed even when flat")

	require.NoError(t, v.RequestOptimization(context.Background()))
	require.Len(t, f.patches, 1)
	require.NotNil(t, f.patches[0].Optimized)
	assert.True(t, *f.patches[0].Optimized)

	sections = v.Sections()
	require.Len(t, sections, 2)
	assert.Equal(t, "Mercado Central", sections[0].Heading)
	assert.Equal(t, []int64{1, 3}, []int64{sections[0].Items[0].ID, sections[0].Items[1].ID})
	assert.InDelta(t, 35.0, sections[0].Subtotal(), 1e-9)
	assert.Equal(t, "Atacadão", sections[1].Heading)
	assert.InDelta(t, 8.0, sections[1].Subtotal(), 1e-9)
}

func TestToggleCompleteIsLocal(t *testing.T) {
	f := &fakeLists{list: weeklyList()}
	v := NewViewer(f)
	require.NoError(t, v.Load(context.Background(), 5))

	assert.True(t, v.ToggleComplete(1))
	assert.True(t, v.ToggleComplete(3))
	assert.False(t, v.ToggleComplete(3))
	assert.False(t, v.ToggleComplete(99))

	assert.Equal(t, Progress{Done: 1, Total: 3, Percent: 33}, v.Progress())
	assert.Empty(t, f.patches)

	require.NoError(t, v.Load(context.Background(), 5))
	l, ok := v.List()
	require.True(t, ok)
	assert.True(t, l.Items[0].Completed, "check marks survive a reload")
}

func TestMarkCompleteAndFavorite(t *testing.T) {
	f := &fakeLists{list: weeklyList()}
	v := NewViewer(f)
	require.NoError(t, v.Load(context.Background(), 5))

	require.NoError(t, v.MarkComplete(context.Background()))
	require.NoError(t, v.ToggleFavorite(context.Background()))

	l, _ := v.List()
	assert.Equal(t, model.ListCompleted, l.Status)
	assert.True(t, l.Favorite)
	require.Len(t, f.patches, 2)
	assert.Equal(t, model.ListCompleted, *f.patches[0].Status)
	assert.True(t, *f.patches[1].Favorite)
}

func TestViewerExport(t *testing.T) {
	v := NewViewer(&fakeLists{list: weeklyList()})
	_, _, err := v.Export(time.Now())
	assert.Error(t, err)

	require.NoError(t, v.Load(context.Background(), 5))
	name, data, err := v.Export(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "lista_5_2024-05-01.csv", name)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "Arroz,2,"))
}

// fakeBackend stores created lists and serves them back as summaries.
type fakeBackend struct {
	mu    sync.Mutex
	lists []model.ListSummary
}

func (b *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []model.Product{rice, beans},
			"meta": model.PaginationMeta{CurrentPage: 1, LastPage: 1, Total: 2, From: 1, To: 2},
		})
	})
	mux.HandleFunc("POST /api/lists", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ListName string          `json:"listName"`
			Products []api.ListEntry `json:"products"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode create list: %v", err)
		}
		var total float64
		for _, p := range req.Products {
			total += p.Product.AveragePrice * float64(p.Quantity)
		}
		b.mu.Lock()
		s := model.ListSummary{ID: int64(len(b.lists) + 1), Name: req.ListName, Status: model.ListActive, Total: total, ProductsQuantity: len(req.Products)}
		b.lists = append(b.lists, s)
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": s.ID, "name": s.Name, "status": "active"}})
	})
	mux.HandleFunc("GET /api/lists", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{
			"itensLists": b.lists,
			"meta":       model.PaginationMeta{CurrentPage: 1, LastPage: 1, Total: len(b.lists)},
		})
	})
	return mux
}

func TestCreateListAppearsInSummaries(t *testing.T) {
	be := &fakeBackend{}
	srv := httptest.NewServer(be.handler(t))
	defer srv.Close()
	client, err := api.New(srv.URL + "/api")
	require.NoError(t, err)
	client = client.WithToken(api.StaticToken("token"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	before, err := Summaries(ctx, client, 1)
	require.NoError(t, err)
	assert.Empty(t, before.Items)

	b := NewBuilder(client, 10*time.Millisecond, nil)
	defer b.Close()
	_, ok := b.AwaitSearch(ctx, b.SetSearch(""))
	require.True(t, ok)

	b.SetName("Weekly")
	require.True(t, b.AddByID(rice.ID))
	require.True(t, b.AddByID(beans.ID))
	require.True(t, b.AddByID(beans.ID))
	want := b.Total()

	list, err := b.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Weekly", list.Name)

	after, err := Summaries(ctx, client, 1)
	require.NoError(t, err)
	require.Len(t, after.Items, 1)
	assert.Equal(t, "Weekly", after.Items[0].Name)
	assert.Equal(t, 2, after.Items[0].ProductsQuantity)
	assert.InDelta(t, want, after.Items[0].Total, 1e-9)
}

func TestPatchAppliesOnNoContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/lists/5", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": 5, "name": "Weekly", "status": "active"}})
	})
	mux.HandleFunc("PUT /api/lists/5", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	client, err := api.New(srv.URL + "/api")
	require.NoError(t, err)

	ctx := context.Background()
	v := NewViewer(client.WithToken(api.StaticToken("token")))
	require.NoError(t, v.Load(ctx, 5))

	require.NoError(t, v.RequestOptimization(ctx))
	require.NoError(t, v.MarkComplete(ctx))
	require.NoError(t, v.ToggleFavorite(ctx))

	l, ok := v.List()
	require.True(t, ok)
	assert.True(t, l.Optimized)
	assert.True(t, l.Favorite)
	assert.Equal(t, model.ListCompleted, l.Status)
}
