package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/prairieworks/grainledger-backend/api/controllers"
	"github.com/prairieworks/grainledger-backend/api/routes"
	"github.com/prairieworks/grainledger-backend/internal/audit"
	"github.com/prairieworks/grainledger-backend/internal/contracts"
	"github.com/prairieworks/grainledger-backend/internal/images"
	"github.com/prairieworks/grainledger-backend/internal/ledger"
	"github.com/prairieworks/grainledger-backend/internal/tickets"
	"github.com/prairieworks/grainledger-backend/internal/xlsx"
	"github.com/prairieworks/grainledger-backend/pkg/config"
	"github.com/prairieworks/grainledger-backend/pkg/db"
	"github.com/prairieworks/grainledger-backend/pkg/logger"
	"github.com/prairieworks/grainledger-backend/pkg/metrics"
	"github.com/prairieworks/grainledger-backend/pkg/migrate"
	"github.com/prairieworks/grainledger-backend/pkg/outbox"
	pkgredis "github.com/prairieworks/grainledger-backend/pkg/redis"
	"github.com/prairieworks/grainledger-backend/pkg/storage/gcs"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{"database": dbClient}

	var idempotencyStore pkgredis.IdempotencyStore
	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err := pkgredis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		idempotencyStore = redisClient
		readiness["redis"] = redisClient
	} else {
		logg.Warn(ctx, "redis not configured, idempotency keys disabled")
	}

	conn := dbClient.DB()
	contractsRepo := contracts.NewRepository(conn)
	ticketsRepo := tickets.NewRepository(conn)

	contractsSvc, err := contracts.NewService(contractsRepo, dbClient, logg)
	exitOnError(ctx, logg, "contracts service", err)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	exitOnError(ctx, logg, "ledger service", err)

	auditSvc, err := audit.NewService(audit.NewRepository(conn))
	exitOnError(ctx, logg, "audit service", err)

	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)
	allocMetrics := metrics.NewAllocationMetrics(prometheus.DefaultRegisterer)

	ticketsSvc, err := tickets.NewService(ticketsRepo, contractsRepo, ledgerSvc, auditSvc, outboxSvc, dbClient, logg, allocMetrics)
	exitOnError(ctx, logg, "tickets service", err)

	xlsxSvc, err := xlsx.NewService(contractsSvc, ticketsSvc, logg)
	exitOnError(ctx, logg, "spreadsheet service", err)

	var imagesSvc images.Service
	if cfg.GCS.BucketName != "" {
		gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap gcs", err)
			os.Exit(1)
		}
		defer func() {
			if err := gcsClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing gcs", err)
			}
		}()
		imagesSvc, err = images.NewService(ticketsRepo, gcsClient, cfg.GCS.UploadURLExpiry, cfg.GCS.DownloadURLExpiry)
		exitOnError(ctx, logg, "images service", err)
		readiness["gcs"] = gcsClient
	} else {
		logg.Warn(ctx, "gcs bucket not configured, ticket image routes disabled")
	}

	handler := routes.NewRouter(routes.Dependencies{
		Config:           cfg,
		Logger:           logg,
		TicketsService:   ticketsSvc,
		ContractsService: contractsSvc,
		XLSXService:      xlsxSvc,
		ImagesService:    imagesSvc,
		IdempotencyStore: idempotencyStore,
		ReadinessPings:   readiness,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	startCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(startCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(startCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(startCtx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(startCtx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
	logg.Info(startCtx, "api server stopped")
}

func exitOnError(ctx context.Context, logg *logger.Logger, what string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to create "+what, err)
	os.Exit(1)
}
