package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dukerupert/smartshop/internal/model"
)

// Resource is an admin-managed entity collection under /admin/{name}.
type Resource[T any] struct {
	c    *Client
	name string
}

func NewResource[T any](c *Client, name string) *Resource[T] {
	return &Resource[T]{c: c, name: name}
}

func AdminCompanies(c *Client) *Resource[model.Company] {
	return NewResource[model.Company](c, "companies")
}

func AdminProducts(c *Client) *Resource[model.AdminProduct] {
	return NewResource[model.AdminProduct](c, "products")
}

func AdminUsers(c *Client) *Resource[model.User] {
	return NewResource[model.User](c, "users")
}

// Name is the collection's path segment, e.g. "companies".
func (r *Resource[T]) Name() string { return r.name }

func (r *Resource[T]) path(id int64, suffix string) string {
	p := "/admin/" + r.name
	if id != 0 {
		p += "/" + strconv.FormatInt(id, 10)
	}
	return p + suffix
}

func (r *Resource[T]) Index(ctx context.Context, q ListQuery) (*model.Page[T], error) {
	data, err := r.c.get(ctx, r.path(0, ""), q.Values())
	if err != nil {
		return nil, err
	}
	return decodeList[T](data, r.name)
}

func (r *Resource[T]) Show(ctx context.Context, id int64) (*T, error) {
	data, err := r.c.get(ctx, r.path(id, ""), nil)
	if err != nil {
		return nil, err
	}
	return decodeEntity[T](data)
}

func (r *Resource[T]) Store(ctx context.Context, p Payload) (*T, error) {
	return r.submit(ctx, http.MethodPost, r.path(0, ""), p, false)
}

// Update sends PUT, or POST with a _method override when p carries a file.
func (r *Resource[T]) Update(ctx context.Context, id int64, p Payload) (*T, error) {
	method := http.MethodPut
	if p.Multipart() {
		method = http.MethodPost
	}
	return r.submit(ctx, method, r.path(id, ""), p, true)
}

func (r *Resource[T]) submit(ctx context.Context, method, path string, p Payload, update bool) (*T, error) {
	body, contentType, err := p.encode(update)
	if err != nil {
		return nil, err
	}
	data, _, err := r.c.send(ctx, request{method: method, path: path, body: body, contentType: contentType})
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return decodeEntity[T](data)
}

// Destroy soft-deletes the entity.
func (r *Resource[T]) Destroy(ctx context.Context, id int64) error {
	_, _, err := r.c.send(ctx, request{method: http.MethodDelete, path: r.path(id, "")})
	return err
}

// Restore clears the entity's delete timestamp.
func (r *Resource[T]) Restore(ctx context.Context, id int64) error {
	_, _, err := r.c.send(ctx, request{method: http.MethodPost, path: r.path(id, "/restore")})
	return err
}

// Export fetches the listing as a raw CSV file using the same parameters as Index.
func (r *Resource[T]) Export(ctx context.Context, q ListQuery) ([]byte, error) {
	q.Page, q.PerPage = 0, 0
	data, _, err := r.c.send(ctx, request{
		method: http.MethodGet,
		path:   r.path(0, "/export"),
		query:  q.Values(),
		accept: "text/csv",
	})
	return data, err
}
