package ranking

// Page is one slice of an ordered sequence
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// HasNext reports whether a page follows this one
func (p Page[T]) HasNext() bool {
	return p.Page < p.TotalPages
}

// HasPrevious reports whether a page precedes this one
func (p Page[T]) HasPrevious() bool {
	return p.Page > 1
}

// Paginate slices items into the 1-indexed page. Pages below 1 are treated
// as 1, a perPage below 1 as a single item per page. A page past the end is
// empty.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	page = max(page, 1)
	perPage = max(perPage, 1)

	total := len(items)
	start := total
	if page-1 <= total/perPage {
		start = min((page-1)*perPage, total)
	}
	end := min(start+perPage, total)

	return Page[T]{
		Items:      items[start:end],
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: TotalPages(total, perPage),
	}
}

// TotalPages returns how many pages of perPage hold total items
func TotalPages(total, perPage int) int {
	if perPage < 1 || total <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// Offset returns the zero-based offset of a 1-indexed page
func Offset(page, perPage int) int {
	return (max(page, 1) - 1) * max(perPage, 1)
}
