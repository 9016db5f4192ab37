package shared

const (
	// Default pagination
	DefaultPage  = 1
	DefaultLimit = 20

	// Sort directions
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListFilters represents standard list filters.
type ListFilters struct {
	Page     int
	Limit    int
	Search   string
	SortBy   string
	SortDir  string
	IsActive *bool

	// Entity specific filters
	BranchID    *int64
	WarehouseID *int64
	Category    *string
	Status      *string
}

// Offset derives the SQL offset for the current page.
func (f ListFilters) Offset() int {
	page := f.Page
	if page < 1 {
		page = DefaultPage
	}
	limit := f.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	return (page - 1) * limit
}

// PageLimit returns the effective page size.
func (f ListFilters) PageLimit() int {
	if f.Limit < 1 {
		return DefaultLimit
	}
	return f.Limit
}
