package models

import "database/sql"

type Category struct {
	CreatedAt     NullTime       `db:"created_at"`
	UpdatedAt     NullTime       `db:"updated_at"`
	Id            int64          `db:"id"`
	Name          string         `db:"name"`
	Slug          string         `db:"slug"`
	Description   sql.NullString `db:"description"`
	Image         sql.NullString `db:"image"`
	Status        int            `db:"status"`
	ProductsCount int            `db:"products_count"`
}

// CategoryRow is the listing projection of a category.
type CategoryRow struct {
	Id            int64  `json:"id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	Description   string `json:"description"`
	Image         string `json:"image"`
	ImageURL      string `json:"image_url"`
	Status        int    `json:"status"`
	StatusLabel   string `json:"status_label"`
	ProductsCount int    `json:"products_count"`
	CreatedAt     string `json:"created_at"`
}

type CategoryRequest struct {
	Name        string `form:"name" json:"name"`
	Description string `form:"description" json:"description"`
	Status      string `form:"status" json:"status"`
}

func CategoryStatusLabel(status int) string {
	if status == 1 {
		return "Active"
	}
	return "Inactive"
}
