package models

import (
	"database/sql"
	"encoding/json"

	"github.com/shopspring/decimal"
)

type Product struct {
	CreatedAt    NullTime        `db:"created_at"`
	UpdatedAt    NullTime        `db:"updated_at"`
	Id           int64           `db:"id"`
	CategoryId   int64           `db:"category_id"`
	CategoryName sql.NullString  `db:"category_name"`
	Name         string          `db:"name"`
	Slug         string          `db:"slug"`
	Description  sql.NullString  `db:"description"`
	Price        decimal.Decimal `db:"price"`
	Stock        int             `db:"stock"`
	Status       string          `db:"status"`
	IsFeatured   bool            `db:"is_featured"`
	Images       string          `db:"images"`
}

// ImagePaths decodes the stored gallery. A malformed value is treated as empty.
func (p Product) ImagePaths() []string {
	return DecodeImages(p.Images)
}

func DecodeImages(raw string) []string {
	var paths []string
	if raw == "" {
		return paths
	}
	if err := json.Unmarshal([]byte(raw), &paths); err != nil {
		return nil
	}
	return paths
}

func EncodeImages(paths []string) string {
	if len(paths) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(paths)
	return string(b)
}

// ProductRow is the listing projection of a product, category flattened in.
type ProductRow struct {
	Id           int64    `json:"id"`
	CategoryId   int64    `json:"category_id"`
	CategoryName string   `json:"category_name"`
	Name         string   `json:"name"`
	Slug         string   `json:"slug"`
	Description  string   `json:"description"`
	Price        string   `json:"price"`
	Stock        int      `json:"stock"`
	Status       string   `json:"status"`
	StatusLabel  string   `json:"status_label"`
	IsFeatured   bool     `json:"is_featured"`
	Images       []string `json:"images"`
	ImageURL     string   `json:"image_url"`
	ImageURLs    []string `json:"image_urls"`
	CreatedAt    string   `json:"created_at"`
}

type ProductRequest struct {
	CategoryId     string   `form:"category_id" json:"category_id"`
	Name           string   `form:"name" json:"name"`
	Description    string   `form:"description" json:"description"`
	Price          string   `form:"price" json:"price"`
	Stock          string   `form:"stock" json:"stock"`
	Status         string   `form:"status" json:"status"`
	IsFeatured     string   `form:"is_featured" json:"is_featured"`
	ExistingImages []string `form:"existing_images[]" json:"existing_images"`
}

const (
	ProductActive   = "active"
	ProductInactive = "inactive"
)

func ProductStatusLabel(status string) string {
	if status == ProductActive {
		return "Active"
	}
	return "Inactive"
}
