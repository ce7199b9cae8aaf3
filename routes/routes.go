package routes

import (
	"net/http"

	"github.com/Govind-619/storefront/controllers"
	"github.com/Govind-619/storefront/middleware"
	"github.com/Govind-619/storefront/utils"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Options carries what the router needs besides the handlers.
type Options struct {
	DB        *gorm.DB
	JWTSecret string
	// CORSOrigins is passed to the CORS middleware; empty allows any origin.
	CORSOrigins []string
	// Idempotency is optional; nil turns Idempotency-Key handling off.
	Idempotency middleware.IdempotencyStore
}

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter(h *controllers.Handlers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(utils.RecoveryMiddleware())
	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.LoggerMiddleware())
	router.Use(utils.MetricsMiddleware())
	router.Use(utils.CORSMiddleware(opts.CORSOrigins))
	router.Use(utils.SecurityHeadersMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/" + utils.APIVersion)
	{
		initPaymentRoutes(api, h)
		initUserRoutes(api, h, opts)
		initAdminRoutes(api, h, opts)
	}

	return router
}

// initPaymentRoutes registers the gateway callbacks. They carry no user
// token; the gateway signature authenticates them.
func initPaymentRoutes(router *gin.RouterGroup, h *controllers.Handlers) {
	payments := router.Group("/payments")
	{
		payments.POST("/webhook", h.PaymentWebhook)
		payments.GET("/callback", h.PaymentCallback)
	}
}
