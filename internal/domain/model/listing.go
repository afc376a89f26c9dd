package model

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListQuery is the search/sort/page request behind the lab tables.
type ListQuery struct {
	Search   string `json:"search,omitempty"`
	SortBy   string `json:"sort_by,omitempty"`
	Order    string `json:"order,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
	// All disables paging; used by exports.
	All bool `json:"-"`
}

// Normalize clamps paging and fills sort defaults from table.
func (q ListQuery) Normalize(table *Table) ListQuery {
	if q.Page <= 0 {
		q.Page = 1
	}
	switch {
	case q.PageSize <= 0:
		q.PageSize = DefaultPageSize
	case q.PageSize > MaxPageSize:
		q.PageSize = MaxPageSize
	}
	if q.SortBy == "" {
		q.SortBy = table.DefaultSort
		if q.Order == "" && table.DefaultDesc {
			q.Order = SortDesc
		}
	}
	if q.Order != SortDesc {
		q.Order = SortAsc
	}
	return q
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}
