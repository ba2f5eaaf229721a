package routers

import (
	"backoffice/controllers"
	"backoffice/middlewares"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func Route(api *controllers.API) *gin.Engine {
	router := gin.Default()
	router.MaxMultipartMemory = 8 << 20
	router.Use(middlewares.RequestID())
	router.Use(CORS())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if api.Storage.Dir != "" {
		router.Static(api.Config.Storage.URL, api.Storage.Dir)
	}

	router.POST("/api/login", api.Authenticate)
	router.GET("/api/check-session", middlewares.Auth(api.Redis), api.CheckSession)
	router.GET("/api/refresh-session", middlewares.Auth(api.Redis), api.RefreshSession)
	router.GET("/api/logout", middlewares.Auth(api.Redis), api.Logout)
	router.POST("/api/forgot-password", api.ForgotPassword)
	router.GET("/api/verify-token/:token", api.VerifyTokenReset)
	router.POST("/api/reset-password/:token", api.UpdateUserReset)

	router.GET("/api/dashboard", middlewares.Auth(api.Redis), api.GetDashboard)

	resource(router, api, "categories", handlers{
		list: api.GetCategories, show: api.GetCategory, options: api.GetCategoryOptions,
		create: api.CreateCategory, update: api.UpdateCategory,
		destroy: api.DeleteCategory, bulkDelete: api.DeleteCategories, export: api.ExportCategories,
	})

	resource(router, api, "products", handlers{
		list: api.GetProducts, show: api.GetProduct, options: api.GetProductOptions,
		create: api.CreateProduct, update: api.UpdateProduct,
		destroy: api.DeleteProduct, bulkDelete: api.DeleteProducts, export: api.ExportProducts,
	})

	resource(router, api, "tasks", handlers{
		list: api.GetTasks, show: api.GetTask, options: api.GetTaskOptions,
		create: api.CreateTask, update: api.UpdateTask,
		destroy: api.DeleteTask, bulkDelete: api.DeleteTasks, export: api.ExportTasks,
	})

	return router
}

type handlers struct {
	list, show, options, create, update, destroy, bulkDelete, export gin.HandlerFunc
}

func resource(router *gin.Engine, api *controllers.API, kind string, h handlers) {
	group := router.Group(controllers.URLFor(kind, "index"))
	group.Use(middlewares.Auth(api.Redis))
	{
		group.GET("", h.list)
		group.GET("/options", h.options)
		group.GET("/export", h.export)
		group.POST("/export", h.export)
		group.GET("/:id", h.show)
		group.POST("", h.create)
		group.PUT("/:id", h.update)
		group.DELETE("/:id", h.destroy)
		// batch delete
		group.DELETE("", h.bulkDelete)
	}
}

// CORS Cross Origin Resource Sharing
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token",
			"Authorization", "Accept", "Origin", "Cache-Control", "X-Requested-With", middlewares.RequestIDHeader},
		ExposeHeaders: []string{"Content-Disposition", middlewares.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	})
}
