package controllers

import (
	"backoffice/models"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (api *API) GetDashboard(c *gin.Context) {
	ctx := c.Request.Context()

	var dashboard models.Dashboard

	counts := []struct {
		dest *int
		q    string
		args []interface{}
	}{
		{&dashboard.TotalProducts, "SELECT COUNT(1) FROM products", nil},
		{&dashboard.TotalCategories, "SELECT COUNT(1) FROM categories", nil},
		{&dashboard.FeaturedProducts, "SELECT COUNT(1) FROM products WHERE is_featured = ?", []interface{}{true}},
		{&dashboard.OutOfStockProducts, "SELECT COUNT(1) FROM products WHERE stock = 0", nil},
	}

	for _, count := range counts {
		if err := api.Db.GetContext(ctx, count.dest, api.Db.Rebind(count.q), count.args...); err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}
	}

	var byStatus []struct {
		Status string `db:"status"`
		Total  int    `db:"total"`
	}

	if err := api.Db.SelectContext(ctx, &byStatus, "SELECT status, COUNT(1) AS total FROM tasks GROUP BY status"); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	dashboard.TasksByStatus = map[string]int{}
	for _, s := range models.TaskStatuses {
		dashboard.TasksByStatus[string(s)] = 0
	}
	for _, s := range byStatus {
		dashboard.TasksByStatus[s.Status] = s.Total
	}

	var recent []models.Product
	q := "SELECT " + productKind.Columns + " FROM " + productKind.From + " ORDER BY p.created_at DESC, p.id DESC LIMIT 5"
	if err := api.Db.SelectContext(ctx, &recent, q); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	loc := api.location()
	dashboard.RecentProducts = make([]models.ProductRow, 0, len(recent))
	for _, product := range recent {
		dashboard.RecentProducts = append(dashboard.RecentProducts, api.productRow(product, loc))
	}

	c.JSON(http.StatusOK, dashboard)
}
