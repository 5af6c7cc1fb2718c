package listctl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dukerupert/smartshop/internal/model"
)

func TestPagerHiddenForSinglePage(t *testing.T) {
	assert.False(t, NewPager(model.PaginationMeta{CurrentPage: 1, LastPage: 1}).Visible)
	assert.False(t, NewPager(model.PaginationMeta{}).Visible)
}

func TestPagerWindow(t *testing.T) {
	tests := []struct {
		name      string
		cur, last int
		want      []int
		first     bool
		lastLink  bool
	}{
		{"start", 1, 10, []int{1, 2, 3, 4, 5}, false, true},
		{"middle", 6, 10, []int{4, 5, 6, 7, 8}, true, true},
		{"end", 10, 10, []int{6, 7, 8, 9, 10}, true, false},
		{"near end", 9, 10, []int{6, 7, 8, 9, 10}, true, false},
		{"few pages", 2, 3, []int{1, 2, 3}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPager(model.PaginationMeta{CurrentPage: tt.cur, LastPage: tt.last})
			assert.True(t, p.Visible)
			assert.Equal(t, tt.want, p.Pages)
			assert.Equal(t, tt.first, p.ShowFirst)
			assert.Equal(t, tt.lastLink, p.ShowLast)
			assert.Equal(t, tt.cur > 1, p.HasPrev)
			assert.Equal(t, tt.cur < tt.last, p.HasNext)
		})
	}
}

func TestPagerEllipsis(t *testing.T) {
	p := NewPager(model.PaginationMeta{CurrentPage: 6, LastPage: 10})
	assert.True(t, p.LeadingEllipsis)
	assert.True(t, p.TrailingEllipsis)

	p = NewPager(model.PaginationMeta{CurrentPage: 4, LastPage: 10})
	assert.Equal(t, []int{2, 3, 4, 5, 6}, p.Pages)
	assert.True(t, p.ShowFirst)
	assert.False(t, p.LeadingEllipsis)
}

func TestSummary(t *testing.T) {
	meta := model.PaginationMeta{CurrentPage: 2, LastPage: 3, From: 11, To: 20, Total: 25}
	assert.Equal(t, "Mostrando 11 a 20 de 25 resultados", Summary(meta))
	assert.Equal(t, Summary(meta), NewPager(meta).Summary)
}
