package api

import (
	"context"

	"github.com/dukerupert/smartshop/internal/model"
)

func (c *Client) ClientDashboard(ctx context.Context) (*model.ClientStats, error) {
	data, err := c.get(ctx, "/dashboard-data", nil)
	if err != nil {
		return nil, err
	}
	return decodeEntity[model.ClientStats](data, "dashboardData")
}

func (c *Client) CompanyDashboard(ctx context.Context) (*model.CompanyStats, error) {
	data, err := c.get(ctx, "/company/dashboard", nil)
	if err != nil {
		return nil, err
	}
	return decodeEntity[model.CompanyStats](data, "dashboardData")
}

func (c *Client) AdminDashboard(ctx context.Context) (*model.AdminStats, error) {
	data, err := c.get(ctx, "/admin/dashboard", nil)
	if err != nil {
		return nil, err
	}
	return decodeEntity[model.AdminStats](data)
}

// ImportResult is the backend's answer to a catalogue CSV upload.
type ImportResult struct {
	Message  string `json:"message"`
	Imported int    `json:"imported"`
}

// ImportProducts uploads a company's product CSV.
func (c *Client) ImportProducts(ctx context.Context, f File) (*ImportResult, error) {
	if f.Field == "" {
		f.Field = "file"
	}
	body, contentType, err := Payload{File: &f}.encode(false)
	if err != nil {
		return nil, err
	}
	data, _, err := c.send(ctx, request{method: "POST", path: "/company/products/import", body: body, contentType: contentType})
	if err != nil {
		return nil, err
	}
	if emptyBody(data) {
		return nil, nil
	}
	return decodeEntity[ImportResult](data)
}
