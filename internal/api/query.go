package api

import (
	"net/url"
	"sort"
	"strconv"
)

// ListQuery carries the search, filter, sort and page parameters of a listing.
type ListQuery struct {
	Page      int
	PerPage   int
	Search    string
	Filters   map[string]string
	SortBy    string
	SortOrder string
}

// Values encodes q. Filters whose value is empty or "all" are omitted.
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.SortBy != "" {
		v.Set("sort_by", q.SortBy)
		if q.SortOrder != "" {
			v.Set("sort_order", q.SortOrder)
		}
	}
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if val := q.Filters[k]; val != "" && val != "all" {
			v.Set(k, val)
		}
	}
	return v
}
