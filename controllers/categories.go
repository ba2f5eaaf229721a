package controllers

import (
	"backoffice/datatable"
	"backoffice/models"
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

var categoryKind = datatable.Kind{
	Name: "categories",
	Columns: `c.id, c.name, c.slug, c.description, c.image, c.status, c.created_at, c.updated_at,
		(SELECT COUNT(1) FROM products p WHERE p.category_id = c.id) AS products_count`,
	From:       "categories c",
	Key:        "c.id",
	Searchable: []string{"c.name", "c.slug"},
	Sortable: map[string]string{
		"id":             "c.id",
		"name":           "c.name",
		"slug":           "c.slug",
		"status":         "c.status",
		"products_count": "products_count",
		"created_at":     "c.created_at",
		"updated_at":     "c.updated_at",
	},
	Filters: []datatable.Filter{
		{
			Param:  "status",
			Column: "c.status",
			Decode: datatable.Labels(map[string]interface{}{
				"active":    1,
				"in_active": 0,
				"inactive":  0,
				"1":         1,
				"0":         0,
			}),
			Options: []datatable.Option{
				{Value: "active", Label: "Active"},
				{Value: "in_active", Label: "Inactive"},
			},
		},
	},
}

func (api *API) categoryRow(category models.Category, loc *time.Location) models.CategoryRow {
	return models.CategoryRow{
		Id:            category.Id,
		Name:          category.Name,
		Slug:          category.Slug,
		Description:   category.Description.String,
		Image:         category.Image.String,
		ImageURL:      api.Storage.PublicURL(category.Image.String),
		Status:        category.Status,
		StatusLabel:   models.CategoryStatusLabel(category.Status),
		ProductsCount: category.ProductsCount,
		CreatedAt:     category.CreatedAt.Format(models.DateTimeFormat, loc),
	}
}

func (api *API) GetCategories(c *gin.Context) {
	loc := api.location()
	list(api, c, categoryKind, func(category models.Category) models.CategoryRow {
		return api.categoryRow(category, loc)
	})
}

func (api *API) GetCategory(c *gin.Context) {
	category, ok := api.loadCategory(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, api.categoryRow(category, api.location()))
}

// loadCategory fetches the category named by :id, writing the error
// response itself when it cannot.
func (api *API) loadCategory(c *gin.Context) (category models.Category, ok bool) {
	id, ok := paramID(c)
	if !ok {
		sendError(c, http.StatusNotFound, "category-not-found")
		return category, false
	}

	err := api.findOne(c.Request.Context(), categoryKind, id, &category)
	if err == ErrNotFound {
		sendError(c, http.StatusNotFound, "category-not-found")
		return category, false
	}

	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return category, false
	}

	return category, true
}

func (api *API) CreateCategory(c *gin.Context) {
	var req models.CategoryRequest
	if err := c.ShouldBind(&req); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	status, errs := validateCategory(req)
	image, msg := formImage(c, "image", maxCategoryImage)
	if msg != "" {
		errs = append(errs, models.FieldError{Field: "image", Message: msg})
	}

	if len(errs) > 0 {
		sendFieldErrors(c, errs)
		return
	}

	ctx := c.Request.Context()

	var imagePath sql.NullString
	if image != nil {
		p, err := api.Storage.SaveImage(image, "categories")
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}
		imagePath = sql.NullString{String: p, Valid: true}
	}

	var id int64
	err := api.withSlug(ctx, "categories", req.Name, "category", 0, func(slug string) error {
		return api.Db.QueryRowxContext(ctx, api.Db.Rebind(`
			INSERT INTO categories (name, slug, description, image, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
			RETURNING id
		`), strings.TrimSpace(req.Name), slug, nullString(req.Description), imagePath, status).Scan(&id)
	})

	if err != nil {
		log.Println(err)
		api.removeFiles([]string{imagePath.String})
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	var category models.Category
	if err := api.findOne(ctx, categoryKind, id, &category); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Category created successfully",
		"data":    api.categoryRow(category, api.location()),
	})
}

func (api *API) UpdateCategory(c *gin.Context) {
	current, ok := api.loadCategory(c)
	if !ok {
		return
	}

	var req models.CategoryRequest
	if err := c.ShouldBind(&req); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	status, errs := validateCategory(req)
	image, msg := formImage(c, "image", maxCategoryImage)
	if msg != "" {
		errs = append(errs, models.FieldError{Field: "image", Message: msg})
	}

	if len(errs) > 0 {
		sendFieldErrors(c, errs)
		return
	}

	ctx := c.Request.Context()
	name := strings.TrimSpace(req.Name)

	imagePath := current.Image
	if image != nil {
		p, err := api.Storage.SaveImage(image, "categories")
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}
		imagePath = sql.NullString{String: p, Valid: true}
	}

	write := func(slug string) error {
		_, err := api.Db.ExecContext(ctx, api.Db.Rebind(`
			UPDATE categories
			SET name = ?, slug = ?, description = ?, image = ?, status = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`), name, slug, nullString(req.Description), imagePath, status, current.Id)
		return err
	}

	var err error
	if name != current.Name {
		err = api.withSlug(ctx, "categories", name, "category", current.Id, write)
	} else {
		err = write(current.Slug)
	}

	if err != nil {
		log.Println(err)
		if image != nil {
			api.removeFiles([]string{imagePath.String})
		}
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if image != nil && current.Image.Valid {
		api.removeFiles([]string{current.Image.String})
	}

	var category models.Category
	if err := api.findOne(ctx, categoryKind, current.Id, &category); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Category updated successfully",
		"data":    api.categoryRow(category, api.location()),
	})
}

func (api *API) DeleteCategory(c *gin.Context) {
	api.deleteOne(c, "categories", "category-not-found")
}

func (api *API) DeleteCategories(c *gin.Context) {
	api.BatchDeletes(c, "categories")
}

func (api *API) ExportCategories(c *gin.Context) {
	header := []string{"ID", "Name", "Slug", "Status", "Products", "Created At"}
	export(api, c, categoryKind, header, func(category models.Category, loc *time.Location) []string {
		return []string{
			strconv.FormatInt(category.Id, 10),
			category.Name,
			category.Slug,
			models.CategoryStatusLabel(category.Status),
			strconv.Itoa(category.ProductsCount),
			category.CreatedAt.Format(models.DateTimeFormat, loc),
		}
	})
}

func (api *API) GetCategoryOptions(c *gin.Context) {
	api.listingOptions(c, categoryKind, nil)
}

func validateCategory(req models.CategoryRequest) (status int, errs []models.FieldError) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		errs = append(errs, models.FieldError{Field: "name", Message: "missing-name"})
	} else if tooLong(name) {
		errs = append(errs, models.FieldError{Field: "name", Message: "name-too-long"})
	}

	switch strings.TrimSpace(req.Status) {
	case "1":
		status = 1
	case "0":
		status = 0
	case "":
		errs = append(errs, models.FieldError{Field: "status", Message: "missing-status"})
	default:
		errs = append(errs, models.FieldError{Field: "status", Message: "invalid-status"})
	}

	return
}
