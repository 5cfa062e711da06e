package handler

import "taxengine/pkg/pagination"

// pageOf cuts one page out of an already filtered list
func pageOf[T any](items []T, p pagination.Params) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}
