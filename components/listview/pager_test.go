package listview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPagerTotalPagesIsCeiling(t *testing.T) {
	for pageSize := 1; pageSize <= 20; pageSize++ {
		for total := 0; total <= 100; total++ {
			p := NewPager(total, 1, pageSize)
			want := total / pageSize
			if total%pageSize != 0 {
				want++
			}
			if p.TotalPages != want {
				t.Fatalf("total=%d size=%d: expected %d pages, got %d", total, pageSize, want, p.TotalPages)
			}
			for page := -2; page <= want+3; page++ {
				clamped := p.Clamp(page)
				if clamped < 1 || (want > 0 && clamped > want) {
					t.Fatalf("total=%d size=%d: page %d clamped to %d", total, pageSize, page, clamped)
				}
			}
		}
	}
}

func TestPagerThirtySevenRows(t *testing.T) {
	first := NewPager(37, 1, 15)
	assert.Equal(t, "página 1 de 3", first.Label())
	assert.True(t, first.HasNext())
	assert.False(t, first.HasPrev())
	assert.Equal(t, 15, first.RowsOnPage())

	last := NewPager(37, 3, 15)
	assert.Equal(t, "página 3 de 3", last.Label())
	assert.False(t, last.HasNext())
	assert.True(t, last.HasPrev())
	assert.Equal(t, 7, last.RowsOnPage())
	assert.Equal(t, 30, last.Offset())
	from, to := last.Range()
	assert.Equal(t, 31, from)
	assert.Equal(t, 37, to)
	assert.Equal(t, 3, last.Next())
}

func TestPagerClampsBeyondLastPage(t *testing.T) {
	p := NewPager(37, 9, 15)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 1, NewPager(37, -4, 15).Page)
}

func TestPagerEmpty(t *testing.T) {
	p := NewPager(0, 1, 15)
	assert.Equal(t, 0, p.TotalPages)
	assert.Equal(t, 1, p.Page)
	assert.False(t, p.HasNext())
	assert.False(t, p.HasPrev())
	assert.Equal(t, "página 1 de 1", p.Label())
	assert.Nil(t, p.Window(5))
}

func TestPagerWindow(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, NewPager(37, 1, 15).Window(5))
	assert.Equal(t, []int{3, 4, 5, 6, 7}, NewPager(200, 5, 10).Window(5))
	assert.Equal(t, []int{16, 17, 18, 19, 20}, NewPager(200, 20, 10).Window(5))
}
