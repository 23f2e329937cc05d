package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"contentgen/internal/adapter/repo"
	"contentgen/internal/content"
	"contentgen/internal/domain"
	"contentgen/internal/generate"
	"contentgen/internal/http/handlers"
	httpapi "contentgen/internal/http/httpapi"
	"contentgen/internal/infra"
	"contentgen/internal/infra/google"
	"contentgen/internal/ledger"
	"contentgen/internal/metrics"
	"contentgen/internal/middleware"
	"contentgen/internal/payment"
	"contentgen/internal/quota"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	quotaStore, err := quota.OpenSQLiteStore(cfg.QuotaDBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open quota store")
	}
	defer func() {
		_ = quotaStore.Close()
	}()

	collector := metrics.NewCollector()

	client, err := generate.NewClient(generate.Options{
		BaseURL:  cfg.UpstreamBaseURL,
		OnStatus: collector.RecordUpstreamStatus,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build generation client")
	}

	tracker := quota.NewTracker(quotaStore, logger)
	usageStore := repo.NewUsageRepository(infra.NewSQLRunner(dbpool, logger))
	if err := usageStore.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare usage schema")
	}
	ldg := ledger.New(usageStore, tracker, logger)
	orch := content.New(client, tracker, ldg, collector, logger)

	initiator, err := payment.NewInitiator(cfg.UpstreamBaseURL, nil, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build payment initiator")
	}
	poller, err := payment.NewPoller(payment.PollerOptions{
		BaseURL:  cfg.UpstreamBaseURL,
		Interval: cfg.PaymentPollInterval,
		Deadline: cfg.PaymentDeadline,
		OnTerminal: func(status domain.PaymentStatus) {
			collector.RecordPaymentResult(string(status))
		},
	}, ldg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build payment poller")
	}
	manager := payment.NewManager(initiator, poller, logger)

	var googleVerifier middleware.IDTokenVerifier
	if cfg.GoogleClientID != "" {
		googleVerifier = google.NewVerifier(google.DefaultIssuer, cfg.GoogleClientID, nil)
	}

	app := handlers.NewApp(orch, manager, logger)
	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		JWTSecret:       cfg.JWTSecret,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Logger:          logger,
		Metrics:         collector,
		GoogleVerifier:  googleVerifier,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
