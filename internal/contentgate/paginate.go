// internal/contentgate/paginate.go
package contentgate

import "interview-prep-workers/internal/models"

// PagedItem is an item with its 1-based position in the full set.
type PagedItem struct {
	Position int                `json:"position"`
	Item     models.ContentItem `json:"item"`
}

type Page struct {
	Items      []PagedItem `json:"items"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	Total      int         `json:"total"`
	TotalPages int         `json:"totalPages"`
}

// Paginate slices items into 1-based pages. A page past the end is empty, not an error.
func Paginate(items []models.ContentItem, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = 10
	}
	if page < 1 {
		page = 1
	}

	p := Page{
		Items:    []PagedItem{},
		Page:     page,
		PageSize: pageSize,
		Total:    len(items),
	}
	if len(items) == 0 {
		return p
	}
	p.TotalPages = (len(items)-1)/pageSize + 1
	if page > p.TotalPages {
		return p
	}

	// page <= TotalPages keeps start below len(items).
	start := (page - 1) * pageSize
	end := len(items)
	if pageSize < end-start {
		end = start + pageSize
	}
	for i := start; i < end; i++ {
		p.Items = append(p.Items, PagedItem{Position: i + 1, Item: items[i]})
	}
	return p
}
