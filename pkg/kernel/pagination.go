package kernel

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = 1_000_000 // keeps Offset far from integer overflow
)

type PaginationOptions struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Normalize clamps page and size into their valid ranges.
func (p PaginationOptions) Normalize() PaginationOptions {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset is the zero-based row offset of the page.
func (p PaginationOptions) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

type Page struct {
	Number int `json:"number"`
	Size   int `json:"size"`
	Total  int `json:"total"`
	Pages  int `json:"pages"`
}

type Paginated[T any] struct {
	Items []T  `json:"items"`
	Page  Page `json:"page"`
	Empty bool `json:"empty"`
}

// NewPaginated builds a page envelope from items and the total row count.
func NewPaginated[T any](items []T, opts PaginationOptions, total int) Paginated[T] {
	opts = opts.Normalize()
	pages := 0
	if total > 0 {
		pages = (total + opts.PageSize - 1) / opts.PageSize
	}
	if items == nil {
		items = []T{}
	}
	return Paginated[T]{
		Items: items,
		Page: Page{
			Number: opts.Page,
			Size:   opts.PageSize,
			Total:  total,
			Pages:  pages,
		},
		Empty: len(items) == 0,
	}
}

// MapPaginated converts the items of a page while keeping its envelope.
func MapPaginated[T, R any](p Paginated[T], fn func(T) R) Paginated[R] {
	out := make([]R, 0, len(p.Items))
	for _, item := range p.Items {
		out = append(out, fn(item))
	}
	return Paginated[R]{Items: out, Page: p.Page, Empty: p.Empty}
}
