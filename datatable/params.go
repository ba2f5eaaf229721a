package datatable

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Params are normalized listing parameters. ParseParams never fails: every
// invalid or missing value falls back to its default.
type Params struct {
	Search string
	// Filters holds the decoded values per filter param. A param with no
	// surviving values is absent.
	Filters map[string][]interface{}
	SortBy  string
	SortDir string
	Page    int
	PerPage int
	// Draw is echoed back so a client can drop responses to superseded requests.
	Draw int
}

func ParseParams(values url.Values, k Kind) Params {
	p := Params{
		Search:  strings.TrimSpace(values.Get("q")),
		Filters: map[string][]interface{}{},
		SortBy:  values.Get("sort_by"),
		SortDir: strings.ToLower(strings.TrimSpace(values.Get("sort_dir"))),
		Page:    atoi(values.Get("page")),
		PerPage: atoi(values.Get("per_page")),
		Draw:    atoi(values.Get("draw")),
	}

	if p.Search == "" {
		p.Search = strings.TrimSpace(values.Get("search"))
	}

	for _, f := range k.Filters {
		if decoded := decodeFilter(f, values[f.Param]); len(decoded) > 0 {
			p.Filters[f.Param] = decoded
		}
	}

	if _, ok := k.Sortable[p.SortBy]; !ok {
		p.SortBy = k.defaultSort()
	}

	if p.SortDir != "asc" {
		p.SortDir = "desc"
	}

	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}

	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}

	if p.Page < 1 {
		p.Page = 1
	}

	if p.Page > MaxPage {
		p.Page = MaxPage
	}

	if p.Draw < 0 {
		p.Draw = 0
	}

	return p
}

// decodeFilter splits comma-joined values, decodes them and drops duplicates
// and unrecognized labels.
func decodeFilter(f Filter, raws []string) []interface{} {
	var out []interface{}
	seen := map[string]bool{}

	for _, raw := range raws {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}

			v, ok := f.Decode(part)
			if !ok {
				continue
			}

			key := fmt.Sprintf("%T:%v", v, v)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, v)
		}
	}

	return out
}

// atoi returns 0 for garbage. Out of range numbers saturate so the callers'
// clamps still apply.
func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return n
}
