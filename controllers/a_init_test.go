package controllers

import (
	"backoffice/config"
	"backoffice/database"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"github.com/jmoiron/sqlx"
	"gotest.tools/assert"
)

func init() {
	log.SetFlags(log.LstdFlags | log.LUTC | log.Lshortfile)
	gin.SetMode(gin.TestMode)
}

func parsePayload(p interface{}) *bytes.Buffer {
	data, _ := json.Marshal(p)
	return bytes.NewBuffer(data)
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		ExportTimezone: "UTC",
		SessionKey:     "c2Vzc2lvbi1zZWNyZXQ=",
		Storage:        config.StorageConfig{Dir: t.TempDir(), URL: "/storage"},
		WebURL:         "http://localhost:3000",
		Email:          config.EmailConfig{ResetSubject: "Reset your password", ResetTemplate: "does-not-exist.html"},
	}
}

// newMockAPI wires the API to sqlmock speaking the postgres dialect.
func newMockAPI(t *testing.T) (*API, sqlmock.Sqlmock) {
	db, dbMock, err := sqlmock.New()
	assert.Equal(t, nil, err)

	api := NewAPI(testConfig(t))
	api.Db = sqlx.NewDb(db, "postgres")
	return api, dbMock
}

// newSqliteAPI wires the API to a fresh in-memory database with the schema applied.
func newSqliteAPI(t *testing.T) *API {
	db, err := database.Open("sqlite", ":memory:")
	assert.Equal(t, nil, err)
	t.Cleanup(func() { db.Close() })

	api := NewAPI(testConfig(t))
	api.Db = db
	return api
}

// serve runs handler against a request built from method, target and body.
// params fill path parameters such as :id.
func serve(handler gin.HandlerFunc, method, target string, body io.Reader, params ...gin.Param) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req, _ := http.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	c.Params = params

	handler(c)
	return w
}

func idParam(id int64) gin.Param {
	return gin.Param{Key: "id", Value: fmt.Sprint(id)}
}

var fixtureTime = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

// at returns a created_at value n minutes after the fixture epoch.
func at(n int) string {
	return fixtureTime.Add(time.Duration(n) * time.Minute).Format("2006-01-02 15:04:05")
}

func insertCategory(t *testing.T, api *API, name, categorySlug string, status int, createdAt string) int64 {
	t.Helper()

	var id int64
	err := api.Db.Get(&id, `
		INSERT INTO categories (name, slug, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id
	`, name, categorySlug, status, createdAt, createdAt)
	assert.Equal(t, nil, err)
	return id
}

func insertProduct(t *testing.T, api *API, categoryID int64, name, images string, createdAt string) int64 {
	t.Helper()

	var id int64
	err := api.Db.Get(&id, `
		INSERT INTO products (category_id, name, slug, description, price, stock, status, is_featured, images, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 'active', 0, ?, ?, ?) RETURNING id
	`, categoryID, name, slug.Make(name), "A "+name, "19.90", 3, images, createdAt, createdAt)
	assert.Equal(t, nil, err)
	return id
}

func insertTask(t *testing.T, api *API, title, status, priority, createdAt string) int64 {
	t.Helper()

	var id int64
	err := api.Db.Get(&id, `
		INSERT INTO tasks (title, status, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id
	`, title, status, priority, createdAt, createdAt)
	assert.Equal(t, nil, err)
	return id
}
