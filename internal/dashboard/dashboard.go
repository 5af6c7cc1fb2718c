// Package dashboard picks and loads the landing page for each role.
package dashboard

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/smartshop/internal/model"
)

// Backend is the slice of the API client the dashboards read from.
type Backend interface {
	ClientDashboard(ctx context.Context) (*model.ClientStats, error)
	CompanyDashboard(ctx context.Context) (*model.CompanyStats, error)
	AdminDashboard(ctx context.Context) (*model.AdminStats, error)
	Lists(ctx context.Context, page int) (*model.Page[model.ListSummary], error)
}

// Dashboard is one role's landing page.
type Dashboard interface {
	// Template names the page template that renders the loaded data.
	Template() string
	Load(ctx context.Context) (any, error)
}

// ForRole returns the dashboard for role.
func ForRole(role model.Role, b Backend) (Dashboard, error) {
	switch role {
	case model.RoleClient:
		return Client{b}, nil
	case model.RoleCompany:
		return Company{b}, nil
	case model.RoleAdmin:
		return Admin{b}, nil
	}
	return nil, fmt.Errorf("no dashboard for role %q", role)
}

// RecentLists caps the lists shown on the client dashboard.
const RecentLists = 5

type Client struct{ b Backend }

type ClientData struct {
	Stats  model.ClientStats
	Recent []model.ListSummary
}

func (Client) Template() string { return "dashboard_client.html" }

func (d Client) Load(ctx context.Context) (any, error) {
	var data ClientData
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := d.b.ClientDashboard(ctx)
		if err != nil {
			return fmt.Errorf("client stats: %w", err)
		}
		data.Stats = *stats
		return nil
	})
	g.Go(func() error {
		page, err := d.b.Lists(ctx, 1)
		if err != nil {
			return fmt.Errorf("recent lists: %w", err)
		}
		items := page.Items
		if len(items) > RecentLists {
			items = items[:RecentLists]
		}
		data.Recent = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}

type Company struct{ b Backend }

func (Company) Template() string { return "dashboard_company.html" }

func (d Company) Load(ctx context.Context) (any, error) {
	stats, err := d.b.CompanyDashboard(ctx)
	if err != nil {
		return nil, fmt.Errorf("company stats: %w", err)
	}
	return *stats, nil
}

type Admin struct{ b Backend }

func (Admin) Template() string { return "dashboard_admin.html" }

func (d Admin) Load(ctx context.Context) (any, error) {
	stats, err := d.b.AdminDashboard(ctx)
	if err != nil {
		return nil, fmt.Errorf("admin stats: %w", err)
	}
	return *stats, nil
}
