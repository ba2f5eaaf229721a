package controllers

import (
	"backoffice/applog"
	"backoffice/config"
	"backoffice/datatable"
	"backoffice/models"
	"backoffice/storage"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"
)

var genericOK = map[string]string{"message": "ok"}

var ErrNotFound = errors.New("not-found")

type GenericResponse struct {
	Message string `json:"message"`
}

type API struct {
	Db      *sqlx.DB
	Redis   *redis.Client
	Storage *storage.Disk
	Config  *config.Config
	// Mail delivers outgoing messages, over SMTP unless replaced.
	Mail func(*gomail.Message) error
}

func NewAPI(cfg *config.Config) *API {
	if cfg == nil {
		cfg = &config.Config{ExportTimezone: "UTC", Storage: config.StorageConfig{URL: "/storage"}}
	}

	api := &API{
		Config:  cfg,
		Storage: storage.NewDisk(cfg.Storage.Dir, cfg.Storage.URL),
	}
	api.Mail = api.dialAndSend

	return api
}

func sendError(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{
		"message": msg,
	})
}

func sendFieldErrors(c *gin.Context, errs []models.FieldError) {
	c.JSON(http.StatusBadRequest, models.FieldResponseError{
		Message: "error",
		Details: errs,
	})
}

// location is the zone dates are rendered in.
func (api *API) location() *time.Location {
	loc, err := time.LoadLocation(api.Config.ExportTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// list runs a listing for kind and writes the page, converting each scanned
// row with project.
func list[T any, R any](api *API, c *gin.Context, kind datatable.Kind, project func(T) R) {
	params := datatable.ParseParams(c.Request.URL.Query(), kind)

	var rows []T
	pagination, err := datatable.List(c.Request.Context(), api.Db, kind, params, &rows)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	data := make([]R, 0, len(rows))
	for _, row := range rows {
		data = append(data, project(row))
	}

	c.JSON(http.StatusOK, datatable.Page{
		Data:       data,
		Pagination: pagination,
		Draw:       params.Draw,
	})
}

// findOne loads the row with the given key through the kind's select list.
func (api *API) findOne(ctx context.Context, kind datatable.Kind, id int64, dest interface{}) error {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", kind.Columns, kind.From, kind.Key)

	err := api.Db.GetContext(ctx, dest, api.Db.Rebind(q), id)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return errors.Wrapf(err, "find %s %d", kind.Name, id)
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// positiveIDs drops non-positive and repeated ids, keeping order.
func positiveIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := map[int64]bool{}
	for _, id := range ids {
		if id < 1 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// deletion describes how rows of one table are removed.
type deletion struct {
	table string
	label string
	// referenced returns the ids that may not be removed.
	referenced func(ctx context.Context, tx *sqlx.Tx, ids []int64) ([]int64, error)
	// files returns stored files to remove once the rows are gone.
	files func(ctx context.Context, tx *sqlx.Tx, ids []int64) ([]string, error)
}

var deletions = map[string]deletion{
	"categories": {
		table: "categories",
		label: "Categories",
		referenced: func(ctx context.Context, tx *sqlx.Tx, ids []int64) ([]int64, error) {
			return selectIn[int64](ctx, tx, "SELECT DISTINCT category_id FROM products WHERE category_id IN (?)", ids)
		},
		files: func(ctx context.Context, tx *sqlx.Tx, ids []int64) ([]string, error) {
			return selectIn[string](ctx, tx, "SELECT image FROM categories WHERE image IS NOT NULL AND image <> '' AND id IN (?)", ids)
		},
	},
	"products": {
		table: "products",
		label: "Products",
		files: func(ctx context.Context, tx *sqlx.Tx, ids []int64) ([]string, error) {
			galleries, err := selectIn[string](ctx, tx, "SELECT images FROM products WHERE id IN (?)", ids)
			if err != nil {
				return nil, err
			}

			var paths []string
			for _, g := range galleries {
				paths = append(paths, models.DecodeImages(g)...)
			}
			return paths, nil
		},
	},
	"tasks": {
		table: "tasks",
		label: "Tasks",
	},
}

func selectIn[T any](ctx context.Context, tx *sqlx.Tx, q string, ids []int64) ([]T, error) {
	query, args, err := sqlx.In(q, ids)
	if err != nil {
		return nil, err
	}

	var out []T
	err = tx.SelectContext(ctx, &out, tx.Rebind(query), args...)
	return out, err
}

// deleteByIDs removes ids from the table in one transaction. When some ids
// are still referenced nothing is removed and those ids are returned.
func (api *API) deleteByIDs(ctx context.Context, d deletion, ids []int64) (deleted int64, conflicts []int64, err error) {
	tx, err := api.Db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, nil, errors.Wrap(err, "begin delete")
	}

	defer tx.Rollback()

	if d.referenced != nil {
		conflicts, err = d.referenced(ctx, tx, ids)
		if err != nil {
			return 0, nil, errors.Wrapf(err, "check %s references", d.table)
		}
		if len(conflicts) > 0 {
			return 0, conflicts, nil
		}
	}

	var files []string
	if d.files != nil {
		files, err = d.files(ctx, tx, ids)
		if err != nil {
			return 0, nil, errors.Wrapf(err, "collect %s files", d.table)
		}
	}

	query, args, err := sqlx.In("DELETE FROM "+d.table+" WHERE id IN (?)", ids)
	if err != nil {
		return 0, nil, err
	}

	tag, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "delete %s", d.table)
	}

	deleted, _ = tag.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, nil, errors.Wrap(err, "commit delete")
	}

	api.removeFiles(files)

	return deleted, nil, nil
}

func (api *API) removeFiles(paths []string) {
	for _, p := range paths {
		if err := api.Storage.Delete(p); err != nil {
			log.Println(err)
		}
	}
}

func (api *API) BatchDeletes(c *gin.Context, table string) {
	d := deletions[table]

	var req models.BatchDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	ids := positiveIDs(req.Ids)
	if len(ids) == 0 {
		sendError(c, http.StatusBadRequest, "missing-ids")
		return
	}

	deleted, conflicts, err := api.deleteByIDs(c.Request.Context(), d, ids)
	if err != nil {
		log.Println(err)
		applog.Error(c, table+".bulk_delete", err, map[string]interface{}{"ids": ids})
		sendError(c, http.StatusInternalServerError, "Failed to delete "+table)
		return
	}

	if len(conflicts) > 0 {
		referenced := map[int64]bool{}
		for _, id := range conflicts {
			referenced[id] = true
		}

		var errInvalid []models.RowError
		for i, id := range req.Ids {
			if referenced[id] {
				errInvalid = append(errInvalid, models.RowError{Row: i, Message: "conflict-id"})
				delete(referenced, id)
			}
		}

		c.JSON(http.StatusConflict, models.RowResponseError{
			Message: "error",
			Detail:  errInvalid,
		})
		return
	}

	applog.Audit(c, table+".bulk_delete", map[string]interface{}{"ids": ids, "deleted": deleted})

	c.JSON(http.StatusOK, models.DeleteResponse{
		Message: d.label + " deleted successfully",
		Deleted: deleted,
	})
}

// deleteOne removes the row named by the :id path parameter.
func (api *API) deleteOne(c *gin.Context, table, notFound string) {
	id, ok := paramID(c)
	if !ok {
		sendError(c, http.StatusNotFound, notFound)
		return
	}

	deleted, conflicts, err := api.deleteByIDs(c.Request.Context(), deletions[table], []int64{id})
	if err != nil {
		log.Println(err)
		applog.Error(c, table+".delete", err, map[string]interface{}{"id": id})
		sendError(c, http.StatusInternalServerError, "Failed to delete "+table)
		return
	}

	if len(conflicts) > 0 {
		sendError(c, http.StatusConflict, "conflict-id")
		return
	}

	if deleted == 0 {
		sendError(c, http.StatusNotFound, notFound)
		return
	}

	applog.Audit(c, table+".delete", map[string]interface{}{"id": id})

	c.JSON(http.StatusOK, genericOK)
}

func ParsePayload(c *gin.Context) (redis models.RedisPayload) {
	payload := c.Request.Header.Get("payload")

	err := json.Unmarshal([]byte(payload), &redis)
	if err != nil {
		log.Println(err)
	}

	return
}

func tokenGenerator() string {
	b := make([]byte, 32)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes", "featured":
		return true
	}
	return false
}
