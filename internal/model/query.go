package model

const (
	SortCreatedAt = "createdAt"
	SortPrice     = "price"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ListQuery carries pagination and ordering for bid listings. Zero values
// fall back to page 1, the configured page size and createdAt desc.
type ListQuery struct {
	Page     int
	PageSize int
	Sort     string
	Order    string
}

func (q ListQuery) Offset() int {
	page := q.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * q.PageSize
}
