package listctl

import (
	"fmt"

	"github.com/dukerupert/smartshop/internal/model"
)

const maxVisiblePages = 5

// Pager is the rendered view of a listing's pagination block.
type Pager struct {
	Visible bool
	Current int
	Last    int
	Pages   []int

	ShowFirst        bool
	LeadingEllipsis  bool
	ShowLast         bool
	TrailingEllipsis bool

	HasPrev bool
	HasNext bool
	Summary string
}

// NewPager builds the page window for meta. The pager is hidden when there
// is at most one page. First and last links appear only when the window does
// not already contain them.
func NewPager(meta model.PaginationMeta) Pager {
	if meta.LastPage <= 1 {
		return Pager{}
	}

	cur, last := meta.CurrentPage, meta.LastPage
	if cur < 1 {
		cur = 1
	}
	if cur > last {
		cur = last
	}

	start := max(1, cur-maxVisiblePages/2)
	end := min(last, start+maxVisiblePages-1)
	if end-start+1 < maxVisiblePages {
		start = max(1, end-maxVisiblePages+1)
	}

	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}

	return Pager{
		Visible:          true,
		Current:          cur,
		Last:             last,
		Pages:            pages,
		ShowFirst:        start > 1,
		LeadingEllipsis:  start > 2,
		ShowLast:         end < last,
		TrailingEllipsis: end < last-1,
		HasPrev:          cur > 1,
		HasNext:          cur < last,
		Summary:          Summary(meta),
	}
}

// Summary renders the "showing x to y of z" line.
func Summary(meta model.PaginationMeta) string {
	return fmt.Sprintf("Mostrando %d a %d de %d resultados", meta.From, meta.To, meta.Total)
}
