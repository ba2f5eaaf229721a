package controllers

import (
	"backoffice/storage"
	"context"
	"database/sql"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const (
	maxNameLength      = 255
	maxCategoryImage   = 2 << 20
	maxProductImage    = 5 << 20
	maxSlugWriteRetry  = 3
	uniqueViolationPG  = "23505"
	uniqueViolationSQL = "UNIQUE constraint failed"
)

// uniqueSlug derives a slug from name that no other row of table uses,
// appending -1, -2, ... on collision.
func (api *API) uniqueSlug(ctx context.Context, table, name, fallback string, exceptID int64) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = fallback
	}

	var taken []string
	err := api.Db.SelectContext(ctx, &taken,
		api.Db.Rebind("SELECT slug FROM "+table+" WHERE (slug = ? OR slug LIKE ?) AND id <> ?"),
		base, base+"-%", exceptID)
	if err != nil {
		return "", errors.Wrapf(err, "select %s slugs", table)
	}

	used := make(map[string]bool, len(taken))
	for _, s := range taken {
		used[s] = true
	}

	candidate := base
	for i := 1; used[candidate]; i++ {
		candidate = fmt.Sprintf("%s-%d", base, i)
	}

	return candidate, nil
}

// withSlug calls write with a fresh unique slug, trying again when a
// concurrent writer claimed it first.
func (api *API) withSlug(ctx context.Context, table, name, fallback string, exceptID int64, write func(slug string) error) error {
	for attempt := 1; ; attempt++ {
		s, err := api.uniqueSlug(ctx, table, name, fallback, exceptID)
		if err != nil {
			return err
		}

		err = write(s)
		if err == nil || !isUniqueViolation(err) || attempt == maxSlugWriteRetry {
			return err
		}

		log.Printf("slug %q already taken, retrying", s)
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationPG
	}
	return strings.Contains(err.Error(), uniqueViolationSQL)
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

// formImage returns the uploaded image in field, or nil when none was sent.
// The second value is a validation message.
func formImage(c *gin.Context, field string, maxSize int64) (*multipart.FileHeader, string) {
	if !isMultipart(c) {
		return nil, ""
	}

	fh, err := c.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, ""
	}

	if err != nil {
		log.Println(err)
		return nil, "invalid-" + field
	}

	return fh, checkImage(fh, field, maxSize)
}

func checkImage(fh *multipart.FileHeader, field string, maxSize int64) string {
	if !storage.IsImage(fh.Filename) {
		return "invalid-" + field + "-type"
	}

	if fh.Size > maxSize {
		return field + "-too-large"
	}

	return ""
}

func tooLong(s string) bool {
	return utf8.RuneCountInString(s) > maxNameLength
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
