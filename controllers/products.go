package controllers

import (
	"backoffice/datatable"
	"backoffice/models"
	"context"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

var productKind = datatable.Kind{
	Name: "products",
	Columns: `p.id, p.category_id, c.name AS category_name, p.name, p.slug, p.description,
		p.price, p.stock, p.status, p.is_featured, p.images, p.created_at, p.updated_at`,
	From:       "products p LEFT JOIN categories c ON c.id = p.category_id",
	Key:        "p.id",
	Searchable: []string{"p.name", "p.description"},
	Sortable: map[string]string{
		"id":          "p.id",
		"name":        "p.name",
		"category":    "c.name",
		"price":       "p.price",
		"stock":       "p.stock",
		"status":      "p.status",
		"is_featured": "p.is_featured",
		"created_at":  "p.created_at",
		"updated_at":  "p.updated_at",
	},
	Filters: []datatable.Filter{
		{
			Param:  "status",
			Column: "p.status",
			Decode: datatable.Labels(map[string]interface{}{
				"active":   models.ProductActive,
				"inactive": models.ProductInactive,
			}),
			Options: []datatable.Option{
				{Value: "active", Label: "Active"},
				{Value: "inactive", Label: "Inactive"},
			},
		},
		{
			Param:  "is_featured",
			Column: "p.is_featured",
			Decode: datatable.Labels(map[string]interface{}{
				"featured":     true,
				"true":         true,
				"1":            true,
				"not_featured": false,
				"false":        false,
				"0":            false,
			}),
			Options: []datatable.Option{
				{Value: "featured", Label: "Featured"},
				{Value: "not_featured", Label: "Not Featured"},
			},
		},
		{
			Param:  "category_id",
			Column: "p.category_id",
			Decode: datatable.PositiveInt,
		},
	},
}

func (api *API) productRow(product models.Product, loc *time.Location) models.ProductRow {
	images := product.ImagePaths()
	urls := make([]string, 0, len(images))
	for _, p := range images {
		urls = append(urls, api.Storage.PublicURL(p))
	}

	cover := api.Storage.PublicURL("")
	if len(urls) > 0 {
		cover = urls[0]
	}

	if images == nil {
		images = []string{}
	}

	return models.ProductRow{
		Id:           product.Id,
		CategoryId:   product.CategoryId,
		CategoryName: product.CategoryName.String,
		Name:         product.Name,
		Slug:         product.Slug,
		Description:  product.Description.String,
		Price:        product.Price.StringFixed(2),
		Stock:        product.Stock,
		Status:       product.Status,
		StatusLabel:  models.ProductStatusLabel(product.Status),
		IsFeatured:   product.IsFeatured,
		Images:       images,
		ImageURL:     cover,
		ImageURLs:    urls,
		CreatedAt:    product.CreatedAt.Format(models.DateTimeFormat, loc),
	}
}

func (api *API) GetProducts(c *gin.Context) {
	loc := api.location()
	list(api, c, productKind, func(product models.Product) models.ProductRow {
		return api.productRow(product, loc)
	})
}

func (api *API) GetProduct(c *gin.Context) {
	product, ok := api.loadProduct(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, api.productRow(product, api.location()))
}

func (api *API) loadProduct(c *gin.Context) (product models.Product, ok bool) {
	id, ok := paramID(c)
	if !ok {
		sendError(c, http.StatusNotFound, "product-not-found")
		return product, false
	}

	err := api.findOne(c.Request.Context(), productKind, id, &product)
	if err == ErrNotFound {
		sendError(c, http.StatusNotFound, "product-not-found")
		return product, false
	}

	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return product, false
	}

	return product, true
}

type productInput struct {
	categoryId  int64
	name        string
	description string
	price       decimal.Decimal
	stock       int
	status      string
	featured    bool
	images      []*multipart.FileHeader
}

// productForm binds and validates a product submission, including the
// category reference and uploaded gallery.
func (api *API) productForm(c *gin.Context) (in productInput, req models.ProductRequest, ok bool) {
	if err := c.ShouldBind(&req); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return in, req, false
	}

	in, errs := validateProduct(req)

	for i, fh := range productImages(c) {
		if msg := checkImage(fh, "images", maxProductImage); msg != "" {
			errs = append(errs, models.FieldError{Field: "images." + strconv.Itoa(i), Message: msg})
			continue
		}
		in.images = append(in.images, fh)
	}

	if in.categoryId > 0 {
		exists, err := api.categoryExists(c.Request.Context(), in.categoryId)
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return in, req, false
		}

		if !exists {
			errs = append(errs, models.FieldError{Field: "category_id", Message: "invalid-category-id"})
		}
	}

	if len(errs) > 0 {
		sendFieldErrors(c, errs)
		return in, req, false
	}

	return in, req, true
}

func productImages(c *gin.Context) []*multipart.FileHeader {
	if !isMultipart(c) {
		return nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		log.Println(err)
		return nil
	}

	return append(form.File["images[]"], form.File["images"]...)
}

func (api *API) categoryExists(ctx context.Context, id int64) (bool, error) {
	var n int
	err := api.Db.GetContext(ctx, &n, api.Db.Rebind("SELECT COUNT(1) FROM categories WHERE id = ?"), id)
	return n > 0, err
}

// saveImages stores uploads under products/, removing what was already
// written when one fails.
func (api *API) saveImages(files []*multipart.FileHeader) ([]string, error) {
	var saved []string
	for _, fh := range files {
		p, err := api.Storage.SaveImage(fh, "products")
		if err != nil {
			api.removeFiles(saved)
			return nil, err
		}
		saved = append(saved, p)
	}
	return saved, nil
}

func (api *API) CreateProduct(c *gin.Context) {
	in, _, ok := api.productForm(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	images, err := api.saveImages(in.images)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	var id int64
	err = api.withSlug(ctx, "products", in.name, "product", 0, func(slug string) error {
		return api.Db.QueryRowxContext(ctx, api.Db.Rebind(`
			INSERT INTO products
			(category_id, name, slug, description, price, stock, status, is_featured, images, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
			RETURNING id
		`), in.categoryId, in.name, slug, nullString(in.description), in.price, in.stock, in.status,
			in.featured, models.EncodeImages(images)).Scan(&id)
	})

	if err != nil {
		log.Println(err)
		api.removeFiles(images)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	var product models.Product
	if err := api.findOne(ctx, productKind, id, &product); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"data":    api.productRow(product, api.location()),
	})
}

func (api *API) UpdateProduct(c *gin.Context) {
	current, ok := api.loadProduct(c)
	if !ok {
		return
	}

	in, req, ok := api.productForm(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	kept, removed := keepImages(current.ImagePaths(), req.ExistingImages)

	added, err := api.saveImages(in.images)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	gallery := models.EncodeImages(append(kept, added...))

	write := func(slug string) error {
		_, err := api.Db.ExecContext(ctx, api.Db.Rebind(`
			UPDATE products
			SET category_id = ?, name = ?, slug = ?, description = ?, price = ?, stock = ?,
				status = ?, is_featured = ?, images = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`), in.categoryId, in.name, slug, nullString(in.description), in.price, in.stock,
			in.status, in.featured, gallery, current.Id)
		return err
	}

	if in.name != current.Name {
		err = api.withSlug(ctx, "products", in.name, "product", current.Id, write)
	} else {
		err = write(current.Slug)
	}

	if err != nil {
		log.Println(err)
		api.removeFiles(added)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	api.removeFiles(removed)

	var product models.Product
	if err := api.findOne(ctx, productKind, current.Id, &product); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"data":    api.productRow(product, api.location()),
	})
}

// keepImages splits the current gallery into the paths the client kept, in
// the client's order, and the ones it dropped. Unknown paths are ignored.
func keepImages(current, existing []string) (kept, removed []string) {
	known := map[string]bool{}
	for _, p := range current {
		known[p] = true
	}

	for _, p := range existing {
		if known[p] {
			kept = append(kept, p)
			delete(known, p)
		}
	}

	for _, p := range current {
		if known[p] {
			removed = append(removed, p)
		}
	}

	return
}

func (api *API) DeleteProduct(c *gin.Context) {
	api.deleteOne(c, "products", "product-not-found")
}

func (api *API) DeleteProducts(c *gin.Context) {
	api.BatchDeletes(c, "products")
}

func (api *API) ExportProducts(c *gin.Context) {
	header := []string{"ID", "Name", "Category", "Price", "Stock", "Status", "Featured", "Created At"}
	export(api, c, productKind, header, func(product models.Product, loc *time.Location) []string {
		featured := "No"
		if product.IsFeatured {
			featured = "Yes"
		}

		return []string{
			strconv.FormatInt(product.Id, 10),
			product.Name,
			product.CategoryName.String,
			product.Price.StringFixed(2),
			strconv.Itoa(product.Stock),
			models.ProductStatusLabel(product.Status),
			featured,
			product.CreatedAt.Format(models.DateTimeFormat, loc),
		}
	})
}

func (api *API) GetProductOptions(c *gin.Context) {
	var categories []struct {
		Id   int64  `db:"id"`
		Name string `db:"name"`
	}

	if err := api.Db.SelectContext(c.Request.Context(), &categories, "SELECT id, name FROM categories ORDER BY name ASC, id ASC"); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	options := make([]datatable.Option, 0, len(categories))
	for _, category := range categories {
		options = append(options, datatable.Option{Value: strconv.FormatInt(category.Id, 10), Label: category.Name})
	}

	api.listingOptions(c, productKind, map[string][]datatable.Option{"category_id": options})
}

func validateProduct(req models.ProductRequest) (in productInput, errs []models.FieldError) {
	in.name = strings.TrimSpace(req.Name)
	in.description = req.Description
	in.featured = truthy(req.IsFeatured)

	if strings.TrimSpace(req.CategoryId) == "" {
		errs = append(errs, models.FieldError{Field: "category_id", Message: "missing-category-id"})
	} else if id, err := strconv.ParseInt(strings.TrimSpace(req.CategoryId), 10, 64); err != nil || id < 1 {
		errs = append(errs, models.FieldError{Field: "category_id", Message: "invalid-category-id"})
	} else {
		in.categoryId = id
	}

	if in.name == "" {
		errs = append(errs, models.FieldError{Field: "name", Message: "missing-name"})
	} else if tooLong(in.name) {
		errs = append(errs, models.FieldError{Field: "name", Message: "name-too-long"})
	}

	if strings.TrimSpace(req.Price) == "" {
		errs = append(errs, models.FieldError{Field: "price", Message: "missing-price"})
	} else if price, err := decimal.NewFromString(strings.TrimSpace(req.Price)); err != nil || price.IsNegative() {
		errs = append(errs, models.FieldError{Field: "price", Message: "invalid-price"})
	} else {
		in.price = price.Round(2)
	}

	if strings.TrimSpace(req.Stock) == "" {
		errs = append(errs, models.FieldError{Field: "stock", Message: "missing-stock"})
	} else if stock, err := strconv.Atoi(strings.TrimSpace(req.Stock)); err != nil || stock < 0 {
		errs = append(errs, models.FieldError{Field: "stock", Message: "invalid-stock"})
	} else {
		in.stock = stock
	}

	switch status := strings.ToLower(strings.TrimSpace(req.Status)); status {
	case models.ProductActive, models.ProductInactive:
		in.status = status
	case "":
		errs = append(errs, models.FieldError{Field: "status", Message: "missing-status"})
	default:
		errs = append(errs, models.FieldError{Field: "status", Message: "invalid-status"})
	}

	return
}
