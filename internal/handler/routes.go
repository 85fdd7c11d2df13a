package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/deposit-api/internal/middleware"
	"github.com/noah-isme/deposit-api/internal/models"
)

// Routes groups the handlers mounted under the API prefix.
type Routes struct {
	Tokens   middleware.TokenValidator
	Deposits *DepositHandler
	Files    *DepositFileHandler
	Search   *SearchHandler
}

// RegisterRoutes mounts every authenticated API route under prefix.
func RegisterRoutes(router gin.IRouter, prefix string, routes Routes) {
	api := router.Group(prefix)
	api.Use(middleware.JWT(routes.Tokens), middleware.Audit())

	deposits := api.Group("/deposits")
	if h := routes.Deposits; h != nil {
		deposits.POST("", h.Create)
		deposits.GET("", h.List)
		deposits.GET("/:id", h.Get)
		deposits.PUT("/:id", h.Update)
		deposits.DELETE("/:id", h.Delete)
		deposits.POST("/:id/actions/publish", h.Publish)
	}
	if h := routes.Files; h != nil {
		deposits.POST("/:id/files", h.Upload)
		deposits.GET("/:id/files", h.List)
		deposits.PUT("/:id/files", h.Sort)
		deposits.GET("/:id/files/:fileId", h.Get)
		deposits.PUT("/:id/files/:fileId", h.Rename)
		deposits.DELETE("/:id/files/:fileId", h.Delete)
		deposits.GET("/:id/files/:fileId/download", h.Download)
	}

	if h := routes.Search; h != nil {
		admin := api.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
		admin.POST("/search/refresh", h.Refresh)
	}
}
