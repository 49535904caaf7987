package models

// DefaultPerPage is used when a listing does not request a page size.
const DefaultPerPage = 12

// MaxPerPage caps listing page sizes.
const MaxPerPage = 100

// Page selects a window of a listing. Number starts at 1.
type Page struct {
	Number  int
	PerPage int
}

// Normalize clamps the page to valid bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.PerPage <= 0 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Offset is the number of rows to skip.
func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Number - 1) * n.PerPage
}

// Limit is the page size after normalization.
func (p Page) Limit() int {
	return p.Normalize().PerPage
}

// Paginated wraps a listing with its total row count.
type Paginated[T any] struct {
	Items   []T `json:"items"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
}

// NewPaginated builds a Paginated result for page p.
func NewPaginated[T any](items []T, total int, p Page) Paginated[T] {
	n := p.Normalize()
	if items == nil {
		items = []T{}
	}
	return Paginated[T]{Items: items, Total: total, Page: n.Number, PerPage: n.PerPage}
}
