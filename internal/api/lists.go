package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dukerupert/smartshop/internal/model"
)

// ListEntry is one builder selection submitted with a new list.
type ListEntry struct {
	Product  model.Product `json:"product"`
	Quantity int           `json:"quantity"`
	Unity    string        `json:"unity"`
}

type createListRequest struct {
	ListName string      `json:"listName"`
	Products []ListEntry `json:"products"`
}

// wireList is the backend's list shape; the field names differ from
// model.ShoppingList and are mapped by toModel.
type wireList struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Favorite  bool           `json:"favorite"`
	Optimized bool           `json:"optimized"`
	Status    string         `json:"status"`
	Total     float64        `json:"total"`
	CreatedAt time.Time      `json:"created_at"`
	Products  []wireListItem `json:"products"`
}

type wireListItem struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
	CompanyID    int64   `json:"companyId"`
	StoreName    string  `json:"storeName"`
	StoreAddress string  `json:"storeAddress"`
	Category     string  `json:"category"`
	Unity        string  `json:"unity"`
	Completed    bool    `json:"completed"`
}

func (w wireList) toModel() *model.ShoppingList {
	l := &model.ShoppingList{
		ID:        w.ID,
		Name:      w.Name,
		Favorite:  w.Favorite,
		Optimized: w.Optimized,
		Status:    model.ParseListStatus(w.Status),
		Total:     w.Total,
		CreatedAt: w.CreatedAt,
		Items:     make([]model.LineItem, 0, len(w.Products)),
	}
	for _, p := range w.Products {
		l.Items = append(l.Items, model.LineItem{
			ID:              p.ID,
			Name:            p.Name,
			Quantity:        p.Quantity,
			Unity:           p.Unity,
			UnitPrice:       p.AveragePrice,
			MerchantID:      p.CompanyID,
			MerchantName:    p.StoreName,
			MerchantAddress: p.StoreAddress,
			Category:        p.Category,
			Completed:       p.Completed,
		})
	}
	return l
}

// CreateList submits a whole builder selection in one call.
func (c *Client) CreateList(ctx context.Context, name string, entries []ListEntry) (*model.ShoppingList, error) {
	data, err := c.sendJSON(ctx, http.MethodPost, "/lists", createListRequest{ListName: name, Products: entries})
	if err != nil {
		return nil, err
	}
	if emptyBody(data) {
		return nil, nil
	}
	w, err := decodeEntity[wireList](data, "list")
	if err != nil {
		return nil, err
	}
	return w.toModel(), nil
}

// List loads one persisted list. A top-level "optimized" flag, when present,
// overrides the one inside the list.
func (c *Client) List(ctx context.Context, id int64) (*model.ShoppingList, error) {
	data, err := c.get(ctx, "/lists/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return nil, err
	}
	w, err := decodeEntity[wireList](data, "list")
	if err != nil {
		return nil, err
	}
	l := w.toModel()

	var top struct {
		Optimized *bool            `json:"optimized"`
		List      *json.RawMessage `json:"list"`
	}
	if err := json.Unmarshal(data, &top); err == nil && top.Optimized != nil && top.List != nil {
		l.Optimized = *top.Optimized
	}
	return l, nil
}

// Lists returns a page of the caller's list summaries.
func (c *Client) Lists(ctx context.Context, page int) (*model.Page[model.ListSummary], error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	data, err := c.get(ctx, "/lists", q)
	if err != nil {
		return nil, err
	}
	return decodeList[model.ListSummary](data, "itensLists", "lists")
}

// ListPatch holds the list fields a client may change.
type ListPatch struct {
	Optimized *bool             `json:"optimized,omitempty"`
	Status    *model.ListStatus `json:"status,omitempty"`
	Favorite  *bool             `json:"favorite,omitempty"`
}

// UpdateList applies patch. A 2xx without a body returns a nil list.
func (c *Client) UpdateList(ctx context.Context, id int64, patch ListPatch) (*model.ShoppingList, error) {
	data, err := c.sendJSON(ctx, http.MethodPut, "/lists/"+strconv.FormatInt(id, 10), patch)
	if err != nil {
		return nil, err
	}
	if emptyBody(data) {
		return nil, nil
	}
	w, err := decodeEntity[wireList](data, "list")
	if err != nil {
		return nil, fmt.Errorf("update list: %w", err)
	}
	return w.toModel(), nil
}
