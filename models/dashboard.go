package models

import "backoffice/datatable"

type Dashboard struct {
	TotalProducts      int            `json:"total_products"`
	TotalCategories    int            `json:"total_categories"`
	FeaturedProducts   int            `json:"featured_products"`
	OutOfStockProducts int            `json:"out_of_stock_products"`
	TasksByStatus      map[string]int `json:"tasks_by_status"`
	RecentProducts     []ProductRow   `json:"recent_products"`
}

// ListingOptions describes a listing to the frontend: which filters exist
// with which labels, what may be sorted on and where to fetch from.
type ListingOptions struct {
	Kind        string                        `json:"kind"`
	Filters     map[string][]datatable.Option `json:"filters"`
	Sortable    []string                      `json:"sortable"`
	DefaultSort string                        `json:"default_sort"`
	PerPage     int                           `json:"per_page"`
	MaxPerPage  int                           `json:"max_per_page"`
	URLs        map[string]string             `json:"urls"`
}
