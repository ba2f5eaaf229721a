package controllers

import (
	"backoffice/datatable"
	"backoffice/models"
	"net/http"

	"github.com/gin-gonic/gin"
)

// listingOptions describes kind's listing. dynamic supplies options for
// filters whose values live in the database.
func (api *API) listingOptions(c *gin.Context, kind datatable.Kind, dynamic map[string][]datatable.Option) {
	filters := map[string][]datatable.Option{}
	for _, f := range kind.Filters {
		options := f.Options
		if d, ok := dynamic[f.Param]; ok {
			options = d
		}
		if options == nil {
			options = []datatable.Option{}
		}
		filters[f.Param] = options
	}

	defaultSort := kind.DefaultSort
	if defaultSort == "" {
		defaultSort = datatable.DefaultSort
	}

	c.JSON(http.StatusOK, models.ListingOptions{
		Kind:        kind.Name,
		Filters:     filters,
		Sortable:    kind.SortFields(),
		DefaultSort: defaultSort,
		PerPage:     datatable.DefaultPerPage,
		MaxPerPage:  datatable.MaxPerPage,
		URLs: map[string]string{
			"datatable":   URLFor(kind.Name, "datatable"),
			"export":      URLFor(kind.Name, "export"),
			"bulk_delete": URLFor(kind.Name, "bulk-delete"),
		},
	})
}
