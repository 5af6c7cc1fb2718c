package handler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/smartshop/internal/api"
	"github.com/dukerupert/smartshop/internal/model"
	"github.com/dukerupert/smartshop/internal/session"
)

const (
	refTTL = 5 * time.Minute
	// companyPickerLimit is how many companies the user form can offer.
	companyPickerLimit = 200
)

type refKind int

const (
	refUnities refKind = iota
	refCategories
	refCompanies
)

// references is the reference data behind the form pickers.
type references struct {
	Unities    []model.Unity
	Categories []model.Category
	Companies  []model.Company
}

// refCache keeps one browser's reference data for refTTL.
type refCache struct {
	client *api.Client
	now    func() time.Time

	mu     sync.Mutex
	data   references
	loaded map[refKind]time.Time
}

func refsOf(e *session.Entry) *refCache {
	return session.Slot(e, "refs", func() *refCache {
		return &refCache{client: e.Store.Client(), now: time.Now, loaded: map[refKind]time.Time{}}
	})
}

// Get returns the requested kinds, fetching the stale ones concurrently.
func (c *refCache) Get(ctx context.Context, kinds ...refKind) (references, error) {
	c.mu.Lock()
	now := c.now()
	var stale []refKind
	for _, k := range kinds {
		if at, ok := c.loaded[k]; !ok || now.Sub(at) > refTTL {
			stale = append(stale, k)
		}
	}
	c.mu.Unlock()

	if len(stale) > 0 {
		var fresh references
		g, gctx := errgroup.WithContext(ctx)
		for _, k := range stale {
			g.Go(func() error {
				var err error
				switch k {
				case refUnities:
					fresh.Unities, err = c.client.Unities(gctx)
				case refCategories:
					fresh.Categories, err = c.client.Categories(gctx)
				case refCompanies:
					var page *model.Page[model.Company]
					page, err = api.AdminCompanies(c.client).Index(gctx, api.ListQuery{Page: 1, PerPage: companyPickerLimit})
					if err == nil {
						fresh.Companies = page.Items
					}
				}
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return c.snapshot(), err
		}

		c.mu.Lock()
		for _, k := range stale {
			switch k {
			case refUnities:
				c.data.Unities = fresh.Unities
			case refCategories:
				c.data.Categories = fresh.Categories
			case refCompanies:
				c.data.Companies = fresh.Companies
			}
			c.loaded[k] = now
		}
		c.mu.Unlock()
	}
	return c.snapshot(), nil
}

func (c *refCache) snapshot() references {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data
}

// Invalidate forces the next Get of kind to refetch.
func (c *refCache) Invalidate(kind refKind) {
	c.mu.Lock()
	delete(c.loaded, kind)
	c.mu.Unlock()
}

func (c *refCache) Close() {
	c.mu.Lock()
	c.data = references{}
	clear(c.loaded)
	c.mu.Unlock()
}
