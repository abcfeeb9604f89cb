// cmd/api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neonarte/neon-backend/internal/config"
	"github.com/neonarte/neon-backend/internal/domain/cart"
	"github.com/neonarte/neon-backend/internal/domain/inventory"
	"github.com/neonarte/neon-backend/internal/domain/order"
	"github.com/neonarte/neon-backend/internal/domain/product"
	"github.com/neonarte/neon-backend/internal/domain/production"
	"github.com/neonarte/neon-backend/internal/domain/quote"
	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/neonarte/neon-backend/internal/infrastructure/database/postgres"
	"github.com/neonarte/neon-backend/internal/infrastructure/database/redis"
	"github.com/neonarte/neon-backend/internal/infrastructure/oracle"
	"github.com/neonarte/neon-backend/internal/infrastructure/storage"
	"github.com/neonarte/neon-backend/internal/interfaces/http"
	"github.com/neonarte/neon-backend/internal/interfaces/http/handlers"
	"github.com/neonarte/neon-backend/internal/interfaces/http/routes"
	"github.com/neonarte/neon-backend/internal/pkg/email"
	"github.com/neonarte/neon-backend/internal/pkg/logger"
	"github.com/neonarte/neon-backend/internal/pkg/pdf"
	"github.com/neonarte/neon-backend/internal/worker"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	log := logger.Setup(cfg)
	log.WithFields(logrus.Fields{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("starting")

	// Connect to database
	db, err := postgres.NewConnection(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	// Connect to Redis
	redisClient, err := redis.NewConnection(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()

	if err := db.Health(); err != nil {
		log.WithError(err).Fatal("database health check failed")
	}

	// Run database migrations
	migration := postgres.NewMigration(db.GetDB())
	if err := migration.RunAutoMigrations(); err != nil {
		log.WithError(err).Fatal("database migration failed")
	}
	if err := migration.CreateIndexes(); err != nil {
		log.WithError(err).Warn("index creation failed")
	}
	if err := migration.SeedInitialData(cfg.Security.SeedAdminEmail, cfg.Security.SeedAdminPassword); err != nil {
		log.WithError(err).Warn("data seeding failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB := db.GetDB()

	// Background jobs
	queue := worker.NewRedisQueue(redisClient.GetClient())
	dispatcher := worker.NewDispatcher(queue)

	// Infrastructure
	quoteImages := storage.NewLocalStore(cfg, "quotes")
	productImages := storage.NewLocalStore(cfg, "products")
	documents := pdf.NewService(cfg)

	estimator, err := oracle.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to configure pricing oracle")
	}

	emailService, err := email.NewEmailService(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to configure email")
	}

	// Domain services
	reconciler := inventory.NewReconciler()
	userService := user.NewService(gormDB, cfg)
	adminService := user.NewAdminService(gormDB, cfg)
	productService := product.NewService(gormDB)
	inventoryService := inventory.NewService(gormDB, reconciler)
	productionService := production.NewService(gormDB, reconciler)
	quoteService := quote.NewService(gormDB, cfg, estimator, worker.NewQuoteNotifier(dispatcher), quoteImages, productService)
	cartService := cart.NewService(gormDB)
	orderService := order.NewService(gormDB, reconciler)
	orderService.SetNotifier(worker.NewOrderNotifier(dispatcher))

	pool := worker.NewPool(queue, cfg.Worker.PollTimeout)
	worker.NewEmailWorker(orderService, emailService, documents).Register(pool)
	pool.Start(ctx, cfg.Worker.EmailWorkers)

	server := http.NewServer(cfg, gormDB, redisClient.GetClient(), routes.Handlers{
		Auth:       handlers.NewAuthHandler(userService),
		Quotes:     handlers.NewQuoteHandler(quoteService, documents),
		Uploads:    handlers.NewUploadHandler(productImages, quoteImages, quoteService),
		Products:   handlers.NewProductHandler(productService, inventoryService, productionService),
		Production: handlers.NewProductionHandler(productionService),
		Cart:       handlers.NewCartHandler(cartService),
		Orders:     handlers.NewOrderHandler(orderService),
		Invoices:   handlers.NewInvoiceHandler(orderService, documents, cfg),
		Admin:      handlers.NewUserAdminHandler(adminService),
	})

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Error("HTTP server stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down gracefully")

	// Give server 30 seconds to shutdown gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("failed to shutdown HTTP server gracefully")
	}

	pool.Wait()
	log.Info("shutdown completed")
}
