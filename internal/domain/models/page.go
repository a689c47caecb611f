package models

// PageRequest is an already clamped, 1-indexed page selection.
type PageRequest struct {
	Page    int
	PerPage int
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// TotalPages never returns less than 1, so an empty result still has a first page.
func TotalPages(totalCount, perPage int) int {
	if perPage < 1 || totalCount <= 0 {
		return 1
	}
	return (totalCount + perPage - 1) / perPage
}

type Page[T any] struct {
	Items      []T
	Page       int
	PerPage    int
	TotalPages int
	TotalCount int
}

func NewPage[T any](items []T, req PageRequest, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Page:       req.Page,
		PerPage:    req.PerPage,
		TotalPages: TotalPages(total, req.PerPage),
		TotalCount: total,
	}
}
