package routes

import (
	"github.com/Govind-619/storefront/controllers"
	"github.com/Govind-619/storefront/middleware"
	"github.com/gin-gonic/gin"
)

// initUserRoutes initializes all user-related routes
func initUserRoutes(router *gin.RouterGroup, h *controllers.Handlers, opts Options) {
	user := router.Group("/user")
	user.Use(middleware.AuthMiddleware(opts.DB, opts.JWTSecret))
	{
		// Cart routes
		cart := user.Group("/cart")
		{
			cart.GET("", h.GetCart)
			cart.POST("/items", h.AddToCart)
			cart.PUT("/items/:product_id", h.UpdateCartItem)
			cart.DELETE("/items/:product_id", h.RemoveFromCart)
			cart.POST("/coupon", h.ApplyCoupon)
			cart.DELETE("/coupon", h.RemoveCoupon)
		}

		user.POST("/checkout", middleware.Idempotency(opts.Idempotency), h.PlaceOrder)

		// Order routes
		orders := user.Group("/orders")
		{
			orders.GET("", h.ListOrders)
			orders.GET("/:id", h.GetOrderDetails)
			orders.PUT("/:id", h.UpdateOrder)
			orders.GET("/:id/invoice", h.DownloadInvoice)
			orders.POST("/:id/pay", h.InitiatePayment)
			orders.GET("/:id/payment-status", h.PaymentStatus)
		}
	}
}
