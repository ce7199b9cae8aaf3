package main

import (
	"context"
	"flag"
	"log"

	"github.com/Govind-619/storefront/config"
	"github.com/Govind-619/storefront/controllers"
	"github.com/Govind-619/storefront/gateway"
	"github.com/Govind-619/storefront/middleware"
	"github.com/Govind-619/storefront/notify"
	"github.com/Govind-619/storefront/routes"
	"github.com/Govind-619/storefront/services"
	"github.com/Govind-619/storefront/utils"
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the optional YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("Error loading config:", err)
	}

	// Initialize logger
	if err := utils.InitLogger(utils.LogOptions{
		Dir:        cfg.App.LogDir,
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Debug:      cfg.App.LogDebug,
	}); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		utils.LogError("Failed to connect to database: %v", err)
		log.Fatal("Failed to connect to database:", err)
	}

	gw, err := gateway.New(cfg.Gateway)
	if err != nil {
		utils.LogError("Failed to configure payment gateway: %v", err)
		log.Fatal("Failed to configure payment gateway:", err)
	}

	var sink notify.Sink = notify.LogSink{}
	if cfg.SMTP.Host != "" {
		sink = notify.NewEmailSink(cfg.SMTP)
	}
	dispatcher := notify.NewDispatcher(sink, cfg.App.AdminEmail, cfg.Gateway.Currency)
	dispatcher.Async = true

	opts := routes.Options{DB: db, JWTSecret: cfg.App.JWTSecret, CORSOrigins: cfg.App.CORSOrigins}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       0,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			utils.LogError("Redis unreachable at %s: %v", cfg.Redis.Addr, err)
			log.Fatal("Redis unreachable:", err)
		}
		opts.Idempotency = middleware.NewRedisIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)
	}

	handlers := &controllers.Handlers{
		Cart:       services.NewCartService(db),
		Checkout:   services.NewCheckoutService(db, dispatcher),
		Orders:     services.NewOrderService(db),
		Settlement: services.NewSettlementService(db, gw, dispatcher, cfg.Gateway.Currency),
		Fulfilment: services.NewFulfilmentService(db, dispatcher),
		Currency:   cfg.Gateway.Currency,
	}

	// Set up router
	router := routes.SetupRouter(handlers, opts)

	utils.LogInfo("Server starting on port %s with %s gateway", cfg.App.Port, gw.Name())
	// Start server
	if err := router.Run(":" + cfg.App.Port); err != nil {
		utils.LogError("Error starting server: %v", err)
		log.Fatal("Error starting server:", err)
	}
}
