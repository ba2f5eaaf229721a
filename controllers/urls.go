package controllers

import (
	"strconv"
	"strings"
)

const apiPrefix = "/api"

// URLFor returns the endpoint for an action on a kind ("categories",
// "products", "tasks"). Actions taking a record append its id.
func URLFor(kind, action string, id ...int64) string {
	base := apiPrefix + "/" + kind

	switch action {
	case "index", "datatable", "bulk-delete", "store":
		return base
	case "export", "options":
		return base + "/" + action
	case "show", "update", "destroy":
		if len(id) > 0 {
			return base + "/" + strconv.FormatInt(id[0], 10)
		}
		return base + "/:id"
	}

	return base + "/" + strings.Trim(action, "/")
}
