package datatable

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Query is the dialect-neutral result of Build. Placeholders are `?` and are
// rebound by the executing handle.
type Query struct {
	Where   string
	Args    []interface{}
	OrderBy string
	Limit   int
	Offset  int
}

// Build folds the search term and each filter into predicates, each one
// contributing zero or one predicate.
func (k Kind) Build(p Params) Query {
	var preds []string
	var args []interface{}

	if p.Search != "" && len(k.Searchable) > 0 {
		like := "%" + escapeLike(strings.ToLower(p.Search)) + "%"
		ors := make([]string, 0, len(k.Searchable))
		for _, col := range k.Searchable {
			ors = append(ors, fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, col))
			args = append(args, like)
		}
		preds = append(preds, "("+strings.Join(ors, " OR ")+")")
	}

	for _, f := range k.Filters {
		vals := p.Filters[f.Param]
		if len(vals) == 0 {
			continue
		}
		preds = append(preds, fmt.Sprintf("%s IN (?%s)", f.Column, strings.Repeat(", ?", len(vals)-1)))
		args = append(args, vals...)
	}

	sortCol, ok := k.Sortable[p.SortBy]
	if !ok {
		sortCol = k.Sortable[k.defaultSort()]
	}

	dir := "DESC"
	if p.SortDir == "asc" {
		dir = "ASC"
	}

	orderBy := fmt.Sprintf("%s %s", sortCol, dir)
	if k.Key != "" && sortCol != k.Key {
		orderBy += fmt.Sprintf(", %s %s", k.Key, dir)
	}

	perPage := p.PerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	page := p.Page
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}

	return Query{
		Where:   strings.Join(preds, " AND "),
		Args:    args,
		OrderBy: orderBy,
		Limit:   perPage,
		Offset:  (page - 1) * perPage,
	}
}

func (q Query) whereClause() string {
	if q.Where == "" {
		return ""
	}
	return " WHERE " + q.Where
}

// SelectSQL and CountSQL return the page and total statements for k.
func (q Query) SelectSQL(k Kind) string {
	return fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT %d OFFSET %d",
		k.Columns, k.From, q.whereClause(), q.OrderBy, q.Limit, q.Offset)
}

func (q Query) CountSQL(k Kind) string {
	return fmt.Sprintf("SELECT COUNT(1) FROM %s%s", k.From, q.whereClause())
}

// Queryer is satisfied by *sqlx.DB and *sqlx.Tx.
type Queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

// List runs the page query into dest (a pointer to a slice) and the count
// query, returning pagination metadata.
func List(ctx context.Context, db Queryer, k Kind, p Params, dest interface{}) (Pagination, error) {
	q := k.Build(p)

	if err := sqlx.SelectContext(ctx, db, dest, db.Rebind(q.SelectSQL(k)), q.Args...); err != nil {
		return Pagination{}, err
	}

	var total int
	if err := sqlx.GetContext(ctx, db, &total, db.Rebind(q.CountSQL(k)), q.Args...); err != nil {
		return Pagination{}, err
	}

	return NewPagination(p.Page, p.PerPage, total), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
