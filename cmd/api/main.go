package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/api"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/api/auth"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/catalog"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/config"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/ingest"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/logging"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/metrics"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/ratelimit"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/worker"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New("api-service", cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	factoryRes, err := catalog.NewStore(ctx, catalog.FactoryConfig{
		Backend:       cfg.StateBackend,
		MySQLDSN:      cfg.MySQLDSN,
		RunMigrations: cfg.RunMigrations,
		MigrationsDir: cfg.MigrationsDir,
	})
	if err != nil {
		logger.Fatal("catalog store init failed", zap.Error(err))
	}
	if factoryRes.DB != nil {
		defer factoryRes.DB.Close()
	}

	pub, err := auth.LoadRSAPublicKeyFromEnv(cfg.AdminJWTPublicKeyEnv)
	if err != nil {
		logger.Fatal("admin public key invalid", zap.Error(err))
	}
	if cfg.AdminSecret == "" && pub == nil {
		logger.Warn("no admin credential configured, admin endpoints will reject every request")
	}

	m := metrics.New()
	importer := ingest.NewImporter(factoryRes.Store, ingest.ParseIDMode(cfg.IDMode), logger.Named("import"), m)

	handler := api.NewRouter(api.Deps{
		Store:              factoryRes.Store,
		DB:                 factoryRes.DB,
		Importer:           importer,
		Logger:             logger,
		Metrics:            m,
		GeneralGate:        ratelimit.NewGeneralGate(ratelimit.SystemClock),
		SubmissionGuard:    ratelimit.NewSubmissionGuard(ratelimit.SystemClock),
		ImageAllowedHosts:  cfg.ImageAllowedHosts,
		ImageProxyTimeout:  cfg.ImageProxyTimeout,
		AdminSecret:        cfg.AdminSecret,
		AdminPublicKey:     pub,
		DefaultMinDiscount: cfg.DefaultMinDiscount,
		TrustProxy:         cfg.TrustProxy,
	})

	if cfg.ImportSchedule != "" {
		runner := worker.Runner{
			Importer: ingest.NewDirImporter(importer, cfg.ImportWorkers),
			Dir:      cfg.DataDir,
			Schedule: cfg.ImportSchedule,
			Logger:   logger.Named("worker"),
		}
		go func() {
			if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("import schedule stopped", zap.Error(err))
			}
		}()
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting", zap.String("addr", server.Addr), zap.String("backend", cfg.StateBackend))

		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	waitForShutdown(logger, server, cancel)
}

func waitForShutdown(logger *zap.Logger, server *http.Server, cancel func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("shutdown signal received")
	cancel()

	ctx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()

	_ = server.Shutdown(ctx)
	logger.Info("shutdown complete")
}
