package controllers

import (
	"backoffice/applog"
	"backoffice/datatable"
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

var (
	headerStyle = `{
		"border": [
			{"type": "left", "color": "#000000", "style": 1},
			{"type": "top", "color": "#000000", "style": 1},
			{"type": "right", "color": "#000000", "style": 1},
			{"type": "bottom", "color": "#000000", "style": 1}
		],
		"fill": {"type": "pattern", "pattern": 1, "color": ["#96b753"]},
		"font": {"bold": true},
		"alignment": {"shrink_to_fit": true, "horizontal": "center"}
	}`
	cellStyle = `{
		"border": [
			{"type": "left", "color": "#000000", "style": 1},
			{"type": "top", "color": "#000000", "style": 1},
			{"type": "right", "color": "#000000", "style": 1},
			{"type": "bottom", "color": "#000000", "style": 1}
		],
		"alignment": {"shrink_to_fit": true}
	}`
)

// csvFlushEvery bounds how many rows are buffered before they are sent.
const csvFlushEvery = 100

type exportRequest struct {
	Ids []int64 `json:"ids"`
}

// exportIDs reads the optional id whitelist from a JSON body or from the
// ids query parameter. ok is false when ids were given but none is usable.
func exportIDs(c *gin.Context) (ids []int64, ok bool) {
	given := false

	if c.Request.Method == http.MethodPost && strings.HasPrefix(c.ContentType(), "application/json") {
		var req exportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Println(err)
			return nil, false
		}
		given = len(req.Ids) > 0
		ids = req.Ids
	}

	for _, raw := range append(c.QueryArray("ids"), c.QueryArray("ids[]")...) {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			given = true
			if id, err := strconv.ParseInt(part, 10, 64); err == nil {
				ids = append(ids, id)
			}
		}
	}

	ids = positiveIDs(ids)
	return ids, !given || len(ids) > 0
}

// export streams every row of kind, or only the requested ids, as CSV or
// (format=xlsx) as a spreadsheet, ordered by id.
func export[T any](api *API, c *gin.Context, kind datatable.Kind, header []string, record func(T, *time.Location) []string) {
	ids, ok := exportIDs(c)
	if !ok {
		sendError(c, http.StatusBadRequest, "invalid-ids")
		return
	}

	q := fmt.Sprintf("SELECT %s FROM %s", kind.Columns, kind.From)
	var args []interface{}
	if len(ids) > 0 {
		var err error
		q, args, err = sqlx.In(q+" WHERE "+kind.Key+" IN (?)", ids)
		if err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}
	}
	q += " ORDER BY " + kind.Key + " ASC"

	rows, err := api.Db.QueryxContext(c.Request.Context(), api.Db.Rebind(q), args...)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	defer rows.Close()

	loc := api.location()
	next := func() ([]string, bool, error) {
		if !rows.Next() {
			return nil, false, rows.Err()
		}
		var row T
		if err := rows.StructScan(&row); err != nil {
			return nil, false, err
		}
		return record(row, loc), true, nil
	}

	date := time.Now().In(loc).Format("2006-01-02")
	start := time.Now()

	var n int
	if strings.EqualFold(c.Query("format"), "xlsx") {
		n, err = writeXLSX(c, kind.Name+"-"+date+".xlsx", kind.Name, header, next)
	} else {
		n, err = writeCSV(c, kind.Name+"-"+date+".csv", header, next)
	}

	fields := map[string]interface{}{"rows": n, "ids": len(ids)}
	if err != nil {
		log.Println(err)
		applog.Error(c, kind.Name+".export", err, fields)
		return
	}

	log.Printf("exported %s %s rows in %s", humanize.Comma(int64(n)), kind.Name, time.Since(start))
	applog.Audit(c, kind.Name+".export", fields)
}

// writeCSV streams rows as they are read. Once the header is out the status
// is committed, so later failures only end the stream early.
func writeCSV(c *gin.Context, filename string, header []string, next func() ([]string, bool, error)) (int, error) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	if err := w.Write(header); err != nil {
		return 0, err
	}

	n := 0
	for {
		record, ok, err := next()
		if err != nil {
			w.Flush()
			return n, err
		}
		if !ok {
			break
		}

		if err := w.Write(record); err != nil {
			return n, err
		}

		n++
		if n%csvFlushEvery == 0 {
			w.Flush()
			c.Writer.Flush()
		}
	}

	w.Flush()
	return n, w.Error()
}

func writeXLSX(c *gin.Context, filename, sheet string, header []string, next func() ([]string, bool, error)) (int, error) {
	fail := func(err error) (int, error) {
		sendError(c, http.StatusInternalServerError, err.Error())
		return 0, err
	}

	f := excelize.NewFile()
	f.NewSheet(sheet)
	// delete default sheet
	f.DeleteSheet("Sheet1")

	last, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetColWidth(sheet, "A", last, 24); err != nil {
		return fail(err)
	}

	hs, err := f.NewStyle(headerStyle)
	if err != nil {
		return fail(err)
	}

	cs, err := f.NewStyle(cellStyle)
	if err != nil {
		return fail(err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fail(err)
	}

	if err := sw.SetRow("A1", styled(header, hs)); err != nil {
		return fail(err)
	}

	n := 0
	for {
		record, ok, err := next()
		if err != nil {
			return fail(err)
		}
		if !ok {
			break
		}

		n++
		cell, _ := excelize.CoordinatesToCellName(1, n+1)
		if err := sw.SetRow(cell, styled(record, cs)); err != nil {
			return fail(err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fail(err)
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)

	if _, err := f.WriteTo(c.Writer); err != nil {
		return n, err
	}

	return n, nil
}

func styled(values []string, style int) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = excelize.Cell{StyleID: style, Value: v}
	}
	return row
}
