package controllers

import (
	"backoffice/datatable"
	"backoffice/models"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"testing"

	"gotest.tools/assert"
)

type pageResponse[R any] struct {
	Data       []R `json:"data"`
	Pagination struct {
		CurrentPage int `json:"current_page"`
		PerPage     int `json:"per_page"`
		Total       int `json:"total"`
		LastPage    int `json:"last_page"`
	} `json:"pagination"`
}

func decodePage[R any](t *testing.T, body []byte) pageResponse[R] {
	t.Helper()

	var page pageResponse[R]
	assert.Equal(t, nil, json.Unmarshal(body, &page))
	return page
}

// seedCategories inserts 12 categories, the first 7 active, with names out
// of alphabetical order.
func seedCategories(t *testing.T, api *API) {
	names := []string{"Lamps", "Books", "Toys", "Audio", "Garden", "Kitchen", "Cameras",
		"Shoes", "Bags", "Watches", "Phones", "Desks"}
	for i, name := range names {
		status := 0
		if i < 7 {
			status = 1
		}
		insertCategory(t, api, name, "cat-"+strings.ToLower(name), status, at(i))
	}
}

func TestListCategoriesScenario(t *testing.T) {
	api := newSqliteAPI(t)
	seedCategories(t, api)

	w := serve(api.GetCategories, "GET", "/api/categories?status=active&sort_by=name&sort_dir=asc&per_page=5&page=1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	page := decodePage[models.CategoryRow](t, w.Body.Bytes())
	assert.Equal(t, 5, len(page.Data))

	names := make([]string, 0, len(page.Data))
	for _, row := range page.Data {
		assert.Equal(t, 1, row.Status)
		names = append(names, row.Name)
	}
	assert.Equal(t, true, sort.StringsAreSorted(names))
	assert.Equal(t, "Audio", names[0])

	assert.Equal(t, 1, page.Pagination.CurrentPage)
	assert.Equal(t, 5, page.Pagination.PerPage)
	assert.Equal(t, 7, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.LastPage)
}

func TestListPageBeyondLast(t *testing.T) {
	api := newSqliteAPI(t)
	seedCategories(t, api)

	w := serve(api.GetCategories, "GET", "/api/categories?per_page=5&page=9", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, strings.Contains(w.Body.String(), `"data":[]`))

	page := decodePage[models.CategoryRow](t, w.Body.Bytes())
	assert.Equal(t, 0, len(page.Data))
	assert.Equal(t, 9, page.Pagination.CurrentPage)
	assert.Equal(t, 12, page.Pagination.Total)
	assert.Equal(t, 3, page.Pagination.LastPage)
}

func TestListHugePageIsPastTheEnd(t *testing.T) {
	api := newSqliteAPI(t)
	seedCategories(t, api)

	for _, raw := range []string{"4611686018427387905", "9223372036854775807", "99999999999999999999999"} {
		w := serve(api.GetCategories, "GET", "/api/categories?per_page=4&page="+raw, nil)
		assert.Equal(t, http.StatusOK, w.Code, raw)

		page := decodePage[models.CategoryRow](t, w.Body.Bytes())
		assert.Equal(t, 0, len(page.Data), raw)
		assert.Equal(t, datatable.MaxPage, page.Pagination.CurrentPage)
		assert.Equal(t, 12, page.Pagination.Total)
		assert.Equal(t, 3, page.Pagination.LastPage)
	}
}

func TestListFilterUnionAndUnknownLabel(t *testing.T) {
	api := newSqliteAPI(t)
	seedCategories(t, api)

	all := decodePage[models.CategoryRow](t, serve(api.GetCategories, "GET", "/api/categories?per_page=100", nil).Body.Bytes())
	union := decodePage[models.CategoryRow](t, serve(api.GetCategories, "GET", "/api/categories?status=active,in_active&per_page=100", nil).Body.Bytes())
	unknown := decodePage[models.CategoryRow](t, serve(api.GetCategories, "GET", "/api/categories?status=archived&per_page=100", nil).Body.Bytes())
	inactive := decodePage[models.CategoryRow](t, serve(api.GetCategories, "GET", "/api/categories?status=in_active", nil).Body.Bytes())

	assert.Equal(t, 12, all.Pagination.Total)
	assert.Equal(t, 12, union.Pagination.Total)
	assert.Equal(t, 12, unknown.Pagination.Total)
	assert.Equal(t, 5, inactive.Pagination.Total)
	assert.Equal(t, len(all.Data), len(unknown.Data))
	for i := range all.Data {
		assert.Equal(t, all.Data[i].Id, unknown.Data[i].Id)
	}
}

func TestListSearchSecondaryField(t *testing.T) {
	api := newSqliteAPI(t)
	insertCategory(t, api, "Footwear", "running-shoes", 1, at(1))
	insertCategory(t, api, "Bags", "bags", 1, at(2))
	insertCategory(t, api, "50% Off", "sale", 1, at(3))

	page := decodePage[models.CategoryRow](t, serve(api.GetCategories, "GET", "/api/categories?q=SHOES", nil).Body.Bytes())
	assert.Equal(t, 1, page.Pagination.Total)
	assert.Equal(t, "Footwear", page.Data[0].Name)

	// search is an alias of q
	page = decodePage[models.CategoryRow](t, serve(api.GetCategories, "GET", "/api/categories?search=foot", nil).Body.Bytes())
	assert.Equal(t, 1, page.Pagination.Total)

	// LIKE wildcards match literally
	page = decodePage[models.CategoryRow](t, serve(api.GetCategories, "GET", "/api/categories?q=%25", nil).Body.Bytes())
	assert.Equal(t, 1, page.Pagination.Total)
	assert.Equal(t, "50% Off", page.Data[0].Name)
}

func TestListSearchFoldsAccents(t *testing.T) {
	api := newSqliteAPI(t)
	seedCategories(t, api)
	insertCategory(t, api, "École", "ecole", 1, at(20))

	// q=ÉCO
	page := decodePage[models.CategoryRow](t, serve(api.GetCategories, "GET", "/api/categories?q=%C3%89CO", nil).Body.Bytes())
	assert.Equal(t, 1, page.Pagination.Total)
	assert.Equal(t, "École", page.Data[0].Name)

	// q=école
	page = decodePage[models.CategoryRow](t, serve(api.GetCategories, "GET", "/api/categories?q=%C3%A9cole", nil).Body.Bytes())
	assert.Equal(t, 1, page.Pagination.Total)
}

func TestListTasksUnknownSort(t *testing.T) {
	api := newSqliteAPI(t)
	for i := 0; i < 6; i++ {
		insertTask(t, api, fmt.Sprintf("Task %d", i), "pending", "low", at(i*10))
	}

	w := serve(api.GetTasks, "GET", "/api/tasks?sort_by=nonexistent_field", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	page := decodePage[models.TaskRow](t, w.Body.Bytes())
	assert.Equal(t, 6, len(page.Data))
	for i := 1; i < len(page.Data); i++ {
		assert.Equal(t, true, page.Data[i-1].CreatedAt > page.Data[i].CreatedAt)
	}
	assert.Equal(t, "Task 5", page.Data[0].Title)
}

func TestListTieBreakIsStable(t *testing.T) {
	api := newSqliteAPI(t)
	for i := 0; i < 7; i++ {
		insertTask(t, api, fmt.Sprintf("Same %d", i), "completed", "high", at(0))
	}

	first := decodePage[models.TaskRow](t, serve(api.GetTasks, "GET", "/api/tasks?per_page=4&page=1", nil).Body.Bytes())
	second := decodePage[models.TaskRow](t, serve(api.GetTasks, "GET", "/api/tasks?per_page=4&page=2", nil).Body.Bytes())

	seen := map[int64]bool{}
	for _, row := range append(first.Data, second.Data...) {
		assert.Equal(t, false, seen[row.Id])
		seen[row.Id] = true
	}
	assert.Equal(t, 7, len(seen))
	assert.Equal(t, true, first.Data[0].Id > first.Data[1].Id)
}

func TestBulkDeleteMissingIDs(t *testing.T) {
	api := newSqliteAPI(t)
	first := insertTask(t, api, "One", "pending", "low", at(1))
	second := insertTask(t, api, "Two", "pending", "low", at(2))
	third := insertTask(t, api, "Three", "pending", "low", at(3))

	w := serve(api.DeleteTasks, "DELETE", "/api/tasks", parsePayload(models.BatchDeleteRequest{Ids: []int64{first, second, 999}}))

	var resp models.DeleteResponse
	assert.Equal(t, nil, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Tasks deleted successfully", resp.Message)
	assert.Equal(t, int64(2), resp.Deleted)

	var left []int64
	assert.Equal(t, nil, api.Db.Select(&left, "SELECT id FROM tasks"))
	assert.Equal(t, 1, len(left))
	assert.Equal(t, third, left[0])
}

func TestBulkDeleteCategoriesIsAllOrNothing(t *testing.T) {
	api := newSqliteAPI(t)
	free := insertCategory(t, api, "Free", "free", 1, at(1))
	used := insertCategory(t, api, "Used", "used", 1, at(2))
	insertProduct(t, api, used, "Thing", "[]", at(3))

	w := serve(api.DeleteCategories, "DELETE", "/api/categories", parsePayload(models.BatchDeleteRequest{Ids: []int64{free, used}}))
	assert.Equal(t, http.StatusConflict, w.Code)

	var n int
	assert.Equal(t, nil, api.Db.Get(&n, "SELECT COUNT(1) FROM categories"))
	assert.Equal(t, 2, n)
}

func TestExportAllRows(t *testing.T) {
	api := newSqliteAPI(t)
	category := insertCategory(t, api, "Audio", "audio", 1, at(0))
	for i := 0; i < 4; i++ {
		insertProduct(t, api, category, fmt.Sprintf("Speaker %d", i), "[]", at(i))
	}

	w := serve(api.ExportProducts, "GET", "/api/products/export", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, true, strings.Contains(w.Header().Get("Content-Disposition"), `filename="products-`))
	assert.Equal(t, true, strings.HasSuffix(w.Header().Get("Content-Disposition"), `.csv"`))

	records, err := csv.NewReader(w.Body).ReadAll()
	assert.Equal(t, nil, err)
	assert.Equal(t, 5, len(records))
	assert.Equal(t, "ID,Name,Category,Price,Stock,Status,Featured,Created At", strings.Join(records[0], ","))
	assert.Equal(t, "Audio", records[1][2])
	assert.Equal(t, "19.90", records[1][3])
	assert.Equal(t, "Active", records[1][5])
	assert.Equal(t, "No", records[1][6])
}
