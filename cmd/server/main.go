package main // Entry point package

import (
	"context" // bounded context for schema setup
	"log"     // Logging library
	"time"    // schema setup timeout

	"github.com/joho/godotenv"    // loads .env files into the environment in dev setups
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/property-management/internal/config"     // Internal config loader
	"github.com/iliyamo/property-management/internal/database"   // MySQL handle and schema setup
	"github.com/iliyamo/property-management/internal/handler"    // HTTP handlers
	"github.com/iliyamo/property-management/internal/middleware" // rate limiting and response cache
	"github.com/iliyamo/property-management/internal/queue"      // RabbitMQ consumer
	"github.com/iliyamo/property-management/internal/repository" // DB repositories
	"github.com/iliyamo/property-management/internal/router"     // Internal router setup
	"github.com/iliyamo/property-management/internal/service"    // billing service and event publisher
)

func main() {
	// A missing .env is fine; production sets real environment variables.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("ensure schema: %v", err)
	}
	cancel()

	// Redis backs both the token-bucket rate limiter and the public
	// browse response cache.  A nil client disables both middlewares.
	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	owners := repository.NewOwnerRepo(db)
	properties := repository.NewPropertyRepo(db)
	reservations := repository.NewReservationRepo(db)
	invoices := repository.NewInvoiceRepo(db)

	billingStore := repository.NewBillingStore(db, owners, reservations, invoices)
	billing := service.NewBillingService(billingStore)
	billing.EnablePublisher(service.PublishInvoiceIssued)

	authHandler := handler.NewAuthHandler(cfg, users, tokens, owners)
	ownerHandler := handler.NewOwnerHandler(owners, properties, reservations)
	tenantHandler := handler.NewTenantHandler(properties, reservations)
	billingHandler := handler.NewBillingHandler(billing, owners, reservations)
	publicHandler := handler.NewPublicHandler(properties)

	// The consumer writes issued-invoice events to the billing log and
	// reconnects on broker failures; it must not block startup.
	go func() {
		if err := queue.StartInvoiceConsumer(); err != nil {
			log.Printf("invoice consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)                               // health check
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)     // register/login/refresh/logout/me
	router.RegisterPublic(e, publicHandler, cache)         // cached guest browse
	router.RegisterOwner(e, ownerHandler, billingHandler, cfg.JWTSecret)
	router.RegisterTenant(e, tenantHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
