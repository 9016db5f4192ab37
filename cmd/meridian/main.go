package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/delivery"
	"github.com/meridian-erp/meridian-erp/internal/imports"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/masterdata"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/customers"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/products"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/suppliers"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/warehouses"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/roles"
	"github.com/meridian-erp/meridian-erp/internal/sales/invoices"
	"github.com/meridian-erp/meridian-erp/internal/sales/quotations"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "meridian_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	permCache := rbac.NewPermissionCache(cfg.PermissionCacheTTL, nil)
	rbacService := rbac.NewService(dbpool, permCache)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	customerService := customers.NewService(customers.NewRepository(dbpool))
	supplierService := suppliers.NewService(suppliers.NewRepository(dbpool))
	warehouseService := warehouses.NewService(warehouses.NewRepository(dbpool))
	productService := products.NewService(products.NewRepository(dbpool))
	masterdataHandler := masterdata.NewHandler(logger, customerService, supplierService, warehouseService, productService, rbacMiddleware)

	quotationService := quotations.NewService(quotations.NewRepository(dbpool), cfg.InvoiceDueDays, idempotencyStore)
	quotationHandler := quotations.NewHandler(logger, quotationService, auditLogger, rbacMiddleware)

	invoiceService := invoices.NewService(invoices.NewRepository(dbpool))
	invoiceHandler := invoices.NewHandler(logger, invoiceService, rbacMiddleware)

	inventoryService := inventory.NewService(inventory.NewRepository(dbpool))
	inventoryHandler := inventory.NewHandler(logger, inventoryService, rbacMiddleware)

	deliveryService := delivery.NewService(delivery.NewRepository(dbpool), idempotencyStore)
	deliveryHandler := delivery.NewHandler(logger, deliveryService, rbacMiddleware)

	importService := imports.NewService(imports.NewRepository(dbpool), idempotencyStore)
	importHandler := imports.NewHandler(logger, importService, rbacMiddleware)

	userService := users.NewService(users.NewRepository(dbpool), rbacService)
	userHandler := users.NewHandler(logger, userService, rbacMiddleware)

	roleService := roles.NewService(roles.NewRepository(dbpool), rbacService)
	roleHandler := roles.NewHandler(logger, roleService, rbacMiddleware)

	router := app.NewRouter(app.RouterParams{
		Config:         cfg,
		SessionManager: sessionManager,
		RBAC:           rbacMiddleware,

		AuthHandler:       authHandler,
		MasterdataHandler: masterdataHandler,
		QuotationHandler:  quotationHandler,
		InvoiceHandler:    invoiceHandler,
		DeliveryHandler:   deliveryHandler,
		InventoryHandler:  inventoryHandler,
		ImportHandler:     importHandler,
		UserHandler:       userHandler,
		RoleHandler:       roleHandler,

		Middlewares: app.MiddlewareStack(app.MiddlewareConfig{
			Logger:         logger,
			Config:         cfg,
			SessionManager: sessionManager,
		}),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
