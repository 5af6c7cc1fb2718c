package api

import (
	"context"

	"github.com/dukerupert/smartshop/internal/model"
)

// Products lists the catalogue offered to the shopping-list builder.
func (c *Client) Products(ctx context.Context, q ListQuery) (*model.Page[model.Product], error) {
	data, err := c.get(ctx, "/products", q.Values())
	if err != nil {
		return nil, err
	}
	return decodeList[model.Product](data, "products")
}

func (c *Client) Unities(ctx context.Context) ([]model.Unity, error) {
	data, err := c.get(ctx, "/unities", nil)
	if err != nil {
		return nil, err
	}
	page, err := decodeList[model.Unity](data, "unities")
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	data, err := c.get(ctx, "/categories", nil)
	if err != nil {
		return nil, err
	}
	page, err := decodeList[model.Category](data, "categories")
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}
