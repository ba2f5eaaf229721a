package datatable

type Pagination struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	LastPage    int `json:"last_page"`
}

// NewPagination describes the full result set regardless of whether page
// lies past the end.
func NewPagination(page, perPage, total int) Pagination {
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	if page < 1 {
		page = 1
	}

	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}

	return Pagination{
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		LastPage:    lastPage,
	}
}

// Page is the listing response body.
type Page struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
	Draw       int         `json:"draw,omitempty"`
}
