package routes

import (
	"github.com/Govind-619/storefront/controllers"
	"github.com/Govind-619/storefront/middleware"
	"github.com/gin-gonic/gin"
)

// initAdminRoutes initializes the fulfilment routes
func initAdminRoutes(router *gin.RouterGroup, h *controllers.Handlers, opts Options) {
	admin := router.Group("/admin")
	admin.Use(middleware.AuthMiddleware(opts.DB, opts.JWTSecret), middleware.AdminMiddleware())
	{
		admin.PUT("/orders/:id/status", h.AdminUpdateOrderStatus)
	}
}
