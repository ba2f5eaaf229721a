// Package datatable turns untrusted listing parameters into a bounded,
// deterministic SQL query and a page of rows with pagination metadata.
//
// Every record kind is described by a Kind value; the algorithm is shared.
package datatable

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
	DefaultSort    = "created_at"

	// MaxPage keeps (page-1)*per_page inside an int32 OFFSET.
	MaxPage = math.MaxInt32 / MaxPerPage
)

// Decoder maps a raw filter value to the value stored in the column.
// Returning false drops the value.
type Decoder func(raw string) (interface{}, bool)

// Option is a filter value as shown to the frontend.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Filter struct {
	Param   string
	Column  string
	Decode  Decoder
	Options []Option
}

// Kind is the per-record-type configuration of a listing.
type Kind struct {
	Name string
	// Columns is the select list, From the table expression with any joins.
	Columns string
	From    string
	// Key is the primary key column, used as secondary sort key.
	Key        string
	Searchable []string
	// Sortable maps a sort_by value to its column expression.
	Sortable    map[string]string
	DefaultSort string
	Filters     []Filter
}

func (k Kind) defaultSort() string {
	if k.DefaultSort != "" {
		return k.DefaultSort
	}
	return DefaultSort
}

// SortFields returns the allow-listed sort_by values in stable order.
func (k Kind) SortFields() []string {
	fields := make([]string, 0, len(k.Sortable))
	for f := range k.Sortable {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Labels decodes through a label map. Lookup is case-insensitive.
func Labels(m map[string]interface{}) Decoder {
	return func(raw string) (interface{}, bool) {
		v, ok := m[strings.ToLower(raw)]
		return v, ok
	}
}

// PositiveInt accepts identifiers such as category_id.
func PositiveInt(raw string) (interface{}, bool) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 {
		return nil, false
	}
	return n, true
}
