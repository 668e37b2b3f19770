package listview

import "fmt"

// Pager derives navigation state from a total and the current page.
type Pager struct {
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// NewPager computes ceil(total/pageSize) and clamps page into [1, TotalPages].
func NewPager(total, page, pageSize int) Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if total < 0 {
		total = 0
	}
	totalPages := (total + pageSize - 1) / pageSize
	return Pager{
		Page:       clampPage(page, totalPages),
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}

func clampPage(page, totalPages int) int {
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

// HasPrev reports whether the "previous" control is enabled.
func (p Pager) HasPrev() bool {
	return p.Page > 1
}

// HasNext reports whether the "next" control is enabled.
func (p Pager) HasNext() bool {
	return p.Page < p.TotalPages
}

// Prev returns the previous page, clamped.
func (p Pager) Prev() int {
	return clampPage(p.Page-1, p.TotalPages)
}

// Next returns the next page, clamped.
func (p Pager) Next() int {
	return clampPage(p.Page+1, p.TotalPages)
}

// Clamp bounds an arbitrary page request.
func (p Pager) Clamp(page int) int {
	return clampPage(page, p.TotalPages)
}

// Label renders the "página X de Y" caption.
func (p Pager) Label() string {
	pages := p.TotalPages
	if pages < 1 {
		pages = 1
	}
	return fmt.Sprintf("página %d de %d", p.Page, pages)
}

// Offset is the zero-based index of the first row on the page.
func (p Pager) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// RowsOnPage is the number of rows the current page holds.
func (p Pager) RowsOnPage() int {
	remaining := p.Total - p.Offset()
	if remaining < 0 {
		return 0
	}
	if remaining > p.PageSize {
		return p.PageSize
	}
	return remaining
}

// Range returns the 1-based first and last row numbers shown.
func (p Pager) Range() (int, int) {
	rows := p.RowsOnPage()
	if rows == 0 {
		return 0, 0
	}
	return p.Offset() + 1, p.Offset() + rows
}

// Window returns up to size page numbers centred on the current page.
func (p Pager) Window(size int) []int {
	if p.TotalPages == 0 || size <= 0 {
		return nil
	}
	if size > p.TotalPages {
		size = p.TotalPages
	}
	start := p.Page - size/2
	if start < 1 {
		start = 1
	}
	if start+size-1 > p.TotalPages {
		start = p.TotalPages - size + 1
	}
	pages := make([]int, size)
	for i := range pages {
		pages[i] = start + i
	}
	return pages
}
