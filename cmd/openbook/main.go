package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dspereira/openbook/internal/config"
	"github.com/dspereira/openbook/internal/domain"
	"github.com/dspereira/openbook/internal/engine"
	"github.com/dspereira/openbook/internal/events"
	"github.com/dspereira/openbook/internal/handler"
	"github.com/dspereira/openbook/internal/service"
	"github.com/dspereira/openbook/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Instantiate stores.
	accountStore := store.NewAccountStore()
	orderStore := store.NewOrderStore()
	tradeLedger := store.NewTradeLedger()
	webhookStore := store.NewWebhookStore()

	// Domain.
	symbols := domain.NewSymbolRegistry()

	// Engine. Books resolve queue links through the order store.
	books := engine.NewBookManager(orderStore.Resolve)
	matcher := engine.NewMatcher(books, accountStore, orderStore, tradeLedger, symbols)

	// Market-data feed: Kafka when brokers are configured, logs otherwise.
	var feed events.Feed
	if len(cfg.KafkaBrokers) > 0 {
		feed = events.NewKafkaFeed(cfg.KafkaBrokers, cfg.KafkaTopic)
		logger.Info("kafka feed enabled", slog.String("topic", cfg.KafkaTopic))
	} else {
		feed = events.NewLogFeed(logger)
	}
	defer feed.Close()

	// Services.
	webhookSvc := service.NewWebhookService(webhookStore, accountStore, cfg.WebhookTimeout)
	accountSvc := service.NewAccountService(accountStore, symbols)
	orderSvc := service.NewOrderService(matcher, accountStore, orderStore, webhookSvc, feed)
	marketSvc := service.NewMarketService(tradeLedger, books, matcher, symbols)

	// Router.
	router := handler.NewRouter(accountSvc, orderSvc, marketSvc, webhookSvc, logger)

	// Start depth snapshot publisher with cancellable context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	depthPub := engine.NewDepthPublisher(cfg.SnapshotInterval, cfg.SnapshotDepth, books, feed)
	depthPub.Start(ctx)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop HTTP server, cancel context (stops snapshots).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
}
