package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/packtrack/packtrack/internal/app"
	"github.com/packtrack/packtrack/internal/ledger"
	"github.com/packtrack/packtrack/internal/masterdata"
	"github.com/packtrack/packtrack/internal/observability"
	"github.com/packtrack/packtrack/internal/platform/cache"
	"github.com/packtrack/packtrack/internal/platform/db"
	"github.com/packtrack/packtrack/internal/production"
	"github.com/packtrack/packtrack/internal/receiving"
	"github.com/packtrack/packtrack/internal/shared"
	"github.com/packtrack/packtrack/internal/shipping"
	"github.com/packtrack/packtrack/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Derived figures fall back to direct aggregation without Redis.
		logger.Warn("redis unavailable, stock cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	stockCache := ledger.NewCache(redisClient, cfg.StockCacheTTL)
	ledgerStore := ledger.NewStore(pool)
	ledgerService := ledger.NewService(ledgerStore, stockCache, logger)
	stockHandler := ledger.NewHandler(logger, ledgerService)

	masterdataRepo := masterdata.NewRepository(pool)
	masterdataService := masterdata.NewService(masterdataRepo)
	masterdataHandler := masterdata.NewHandler(logger, masterdataService)

	receivingRepo := receiving.NewRepository(pool)
	receivingService := receiving.NewService(receivingRepo, auditLogger, ledgerService, logger)
	receivingHandler := receiving.NewHandler(logger, receivingService)

	productionRepo := production.NewRepository(pool)
	productionService := production.NewService(productionRepo, auditLogger, ledgerService, logger)
	productionHandler := production.NewHandler(logger, productionService)

	shippingRepo := shipping.NewRepository(pool)
	shippingService := shipping.NewService(shippingRepo, auditLogger, ledgerService, logger)
	shippingHandler := shipping.NewHandler(logger, shippingService)

	var jobHandler *jobs.Handler
	if redisClient != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, jobClient, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		MasterDataHandler: masterdataHandler,
		StockHandler:      stockHandler,
		ReceivingHandler:  receivingHandler,
		ProductionHandler: productionHandler,
		ShippingHandler:   shippingHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
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
