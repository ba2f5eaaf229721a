package controllers

import (
	"backoffice/models"
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"gotest.tools/assert"
)

var categoryLabel = []string{"id", "name", "slug", "description", "image", "status", "created_at", "updated_at", "products_count"}

func TestGetCategories(t *testing.T) {
	api, dbMock := newMockAPI(t)

	var genericResp GenericResponse

	// err select (500)
	dbMock.ExpectQuery("SELECT c.id.*FROM categories c").WillReturnError(fmt.Errorf("err-select"))

	w := serve(api.GetCategories, "GET", "/api/categories", nil)

	err := json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "err-select", genericResp.Message)

	// scan error (500)
	dbMock.ExpectQuery("SELECT c.id.*").
		WillReturnRows(sqlmock.NewRows(categoryLabel).AddRow(1, "dummy", "dummy", nil, nil, 1, "not-a-date", time.Now(), 0))

	w = serve(api.GetCategories, "GET", "/api/categories?sort_by=name", nil)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, true, strings.Contains(genericResp.Message, "Scan error"))

	// err count (500)
	dbMock.ExpectQuery("SELECT c.id.*").
		WillReturnRows(sqlmock.NewRows(categoryLabel).AddRow(1, "dummy", "dummy", nil, nil, 1, time.Now(), time.Now(), 0))
	dbMock.ExpectQuery("SELECT COUNT.*").WillReturnError(fmt.Errorf("err-count"))

	w = serve(api.GetCategories, "GET", "/api/categories", nil)

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "err-count", genericResp.Message)

	// 200
	created := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	dbMock.ExpectQuery(`SELECT c.id.*WHERE \(LOWER\(c.name\) LIKE \$1 .* OR LOWER\(c.slug\) LIKE \$2 .*\) AND c.status IN \(\$3\) ORDER BY c.name ASC, c.id ASC LIMIT 5 OFFSET 5`).
		WithArgs("%sho%", "%sho%", 1).
		WillReturnRows(sqlmock.NewRows(categoryLabel).
			AddRow(7, "Shoes", "shoes", "Running shoes", "categories/a.png", 1, created, created, 4))
	dbMock.ExpectQuery(`SELECT COUNT\(1\) FROM categories c WHERE`).
		WithArgs("%sho%", "%sho%", 1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))

	w = serve(api.GetCategories, "GET", "/api/categories?q=+Sho+&status=active,bogus&sort_by=name&sort_dir=ASC&per_page=5&page=2&draw=3", nil)

	var resp struct {
		Data       []models.CategoryRow `json:"data"`
		Pagination struct {
			CurrentPage int `json:"current_page"`
			PerPage     int `json:"per_page"`
			Total       int `json:"total"`
			LastPage    int `json:"last_page"`
		} `json:"pagination"`
		Draw int `json:"draw"`
	}
	err = json.NewDecoder(w.Body).Decode(&resp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, len(resp.Data))
	assert.Equal(t, int64(7), resp.Data[0].Id)
	assert.Equal(t, "Active", resp.Data[0].StatusLabel)
	assert.Equal(t, "/storage/categories/a.png", resp.Data[0].ImageURL)
	assert.Equal(t, 4, resp.Data[0].ProductsCount)
	assert.Equal(t, "2024-05-06 07:08:09", resp.Data[0].CreatedAt)
	assert.Equal(t, 2, resp.Pagination.CurrentPage)
	assert.Equal(t, 5, resp.Pagination.PerPage)
	assert.Equal(t, 6, resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.LastPage)
	assert.Equal(t, 3, resp.Draw)

	assert.Equal(t, nil, dbMock.ExpectationsWereMet())
}

func TestDeleteCategories(t *testing.T) {
	api, dbMock := newMockAPI(t)

	// nil request (400)
	var genericResp GenericResponse

	w := serve(api.DeleteCategories, "DELETE", "", nil)

	err := json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request", genericResp.Message)

	// bad request (400)
	w = serve(api.DeleteCategories, "DELETE", "", parsePayload(models.BatchDeleteRequest{Ids: []int64{0, -4}}))

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing-ids", genericResp.Message)

	// err begin (500)
	dbMock.ExpectBegin().WillReturnError(fmt.Errorf("err-begin"))

	w = serve(api.DeleteCategories, "DELETE", "", parsePayload(models.BatchDeleteRequest{Ids: []int64{1}}))

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to delete categories", genericResp.Message)

	// conflict (409)
	dbMock.ExpectBegin()
	dbMock.ExpectQuery(`SELECT DISTINCT category_id FROM products WHERE category_id IN \(\$1, \$2\)`).
		WithArgs(3, 9).
		WillReturnRows(sqlmock.NewRows([]string{"category_id"}).AddRow(9))
	dbMock.ExpectRollback()

	w = serve(api.DeleteCategories, "DELETE", "", parsePayload(models.BatchDeleteRequest{Ids: []int64{3, 9, 3}}))

	var rowResp models.RowResponseError
	err = json.NewDecoder(w.Body).Decode(&rowResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, len(rowResp.Detail))
	assert.Equal(t, 1, rowResp.Detail[0].Row)
	assert.Equal(t, "conflict-id", rowResp.Detail[0].Message)

	// err delete (500)
	dbMock.ExpectBegin()
	dbMock.ExpectQuery("SELECT DISTINCT category_id.*").WillReturnRows(sqlmock.NewRows([]string{"category_id"}))
	dbMock.ExpectQuery("SELECT image FROM categories.*").WillReturnRows(sqlmock.NewRows([]string{"image"}))
	dbMock.ExpectExec(`DELETE FROM categories WHERE id IN \(\$1\)`).WillReturnError(fmt.Errorf("err-delete"))
	dbMock.ExpectRollback()

	w = serve(api.DeleteCategories, "DELETE", "", parsePayload(models.BatchDeleteRequest{Ids: []int64{3}}))

	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to delete categories", genericResp.Message)

	// 200
	dbMock.ExpectBegin()
	dbMock.ExpectQuery("SELECT DISTINCT category_id.*").WillReturnRows(sqlmock.NewRows([]string{"category_id"}))
	dbMock.ExpectQuery("SELECT image FROM categories.*").WillReturnRows(sqlmock.NewRows([]string{"image"}).AddRow("https://cdn.example.com/x.png"))
	dbMock.ExpectExec(`DELETE FROM categories WHERE id IN \(\$1, \$2\)`).WithArgs(3, 4).WillReturnResult(sqlmock.NewResult(0, 2))
	dbMock.ExpectCommit()

	w = serve(api.DeleteCategories, "DELETE", "", parsePayload(models.BatchDeleteRequest{Ids: []int64{3, 4}}))

	var deleteResp models.DeleteResponse
	err = json.NewDecoder(w.Body).Decode(&deleteResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Categories deleted successfully", deleteResp.Message)
	assert.Equal(t, int64(2), deleteResp.Deleted)

	assert.Equal(t, nil, dbMock.ExpectationsWereMet())
}

func TestValidateCategory(t *testing.T) {
	status, errs := validateCategory(models.CategoryRequest{Name: " Shoes ", Status: "0"})
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, 0, status)

	_, errs = validateCategory(models.CategoryRequest{Name: strings.Repeat("x", 256), Status: "2"})
	assert.Equal(t, 2, len(errs))
	assert.Equal(t, "name-too-long", errs[0].Message)
	assert.Equal(t, "invalid-status", errs[1].Message)

	_, errs = validateCategory(models.CategoryRequest{})
	assert.Equal(t, "missing-name", errs[0].Message)
	assert.Equal(t, "missing-status", errs[1].Message)
}

// multipartRequest builds a form submission; files maps field to file name.
func multipartRequest(method, target string, fields map[string]string, files map[string]string) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	for field, name := range files {
		part, _ := mw.CreateFormFile(field, name)
		part.Write([]byte("image-bytes"))
	}
	mw.Close()

	req, _ := http.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serveRequest(handler gin.HandlerFunc, req *http.Request, params ...gin.Param) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = params
	handler(c)
	return w
}

func TestCategoryLifecycle(t *testing.T) {
	api := newSqliteAPI(t)

	// validation (400)
	w := serveRequest(api.CreateCategory, multipartRequest("POST", "/api/categories",
		map[string]string{"name": ""}, map[string]string{"image": "notes.txt"}))

	var fieldResp models.FieldResponseError
	err := json.NewDecoder(w.Body).Decode(&fieldResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 3, len(fieldResp.Details))
	assert.Equal(t, "image", fieldResp.Details[2].Field)
	assert.Equal(t, "invalid-image-type", fieldResp.Details[2].Message)

	// create with image (201), slug collisions get a suffix
	var created struct {
		Message string             `json:"message"`
		Data    models.CategoryRow `json:"data"`
	}

	w = serveRequest(api.CreateCategory, multipartRequest("POST", "/api/categories",
		map[string]string{"name": "Home & Kitchen", "status": "1"}, map[string]string{"image": "cover.png"}))
	err = json.NewDecoder(w.Body).Decode(&created)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Category created successfully", created.Message)
	assert.Equal(t, "home-and-kitchen", created.Data.Slug)
	assert.Equal(t, true, strings.HasPrefix(created.Data.ImageURL, "/storage/categories/"))

	firstID := created.Data.Id
	firstImage := filepath.Join(api.Storage.Dir, filepath.FromSlash(created.Data.Image))
	_, err = os.Stat(firstImage)
	assert.Equal(t, nil, err)

	w = serveRequest(api.CreateCategory, multipartRequest("POST", "/api/categories",
		map[string]string{"name": "Home & Kitchen", "status": "0"}, nil))
	err = json.NewDecoder(w.Body).Decode(&created)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "home-and-kitchen-1", created.Data.Slug)
	assert.Equal(t, "Inactive", created.Data.StatusLabel)
	assert.Equal(t, "/images/placeholder.png", created.Data.ImageURL)

	// update: rename regenerates the slug, a new image replaces the old file
	w = serveRequest(api.UpdateCategory, multipartRequest("PUT", "/api/categories/1",
		map[string]string{"name": "Garden", "status": "1", "description": "Outdoor"}, map[string]string{"image": "new.jpg"}),
		idParam(firstID))
	err = json.NewDecoder(w.Body).Decode(&created)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "garden", created.Data.Slug)
	assert.Equal(t, "Outdoor", created.Data.Description)

	_, err = os.Stat(firstImage)
	assert.Equal(t, true, os.IsNotExist(err))

	// show (200, 404)
	w = serve(api.GetCategory, "GET", "", nil, idParam(firstID))
	assert.Equal(t, http.StatusOK, w.Code)

	var genericResp GenericResponse
	w = serve(api.GetCategory, "GET", "", nil, idParam(999))
	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "category-not-found", genericResp.Message)

	// a category with products cannot be deleted (409)
	insertProduct(t, api, firstID, "Hose", "[]", at(1))
	w = serve(api.DeleteCategory, "DELETE", "", nil, idParam(firstID))
	err = json.NewDecoder(w.Body).Decode(&genericResp)
	assert.Equal(t, nil, err)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict-id", genericResp.Message)

	w = serve(api.DeleteCategory, "DELETE", "", nil, idParam(created.Data.Id+100))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
