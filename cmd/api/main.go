package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/whatsapp-concierge/cmd/mainconfig"
	"github.com/wolfman30/whatsapp-concierge/internal/api/router"
	"github.com/wolfman30/whatsapp-concierge/internal/app/bootstrap"
	appconfig "github.com/wolfman30/whatsapp-concierge/internal/config"
	"github.com/wolfman30/whatsapp-concierge/internal/observability/metrics"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting whatsapp concierge",
		"env", cfg.Env,
		"port", cfg.Port,
		"answer_engine", cfg.AnswerEngine,
		"reply_mode", cfg.ReplyMode,
	)

	ctx := context.Background()
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	metricsHandler, conciergeMetrics := setupMetrics(cfg)

	engine, cleanup, err := bootstrap.BuildAnswerEngine(ctx, cfg, bootstrap.EngineDeps{
		Redis:   redisClient,
		AWS:     mainconfig.Loader(cfg),
		Metrics: conciergeMetrics,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to build answer engine", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	sessions := bootstrap.BuildSessionStore(cfg, redisClient, logger)
	msgRouter := bootstrap.BuildMessageRouter(cfg, engine, conciergeMetrics, logger)
	messagingHandler := bootstrap.BuildMessagingHandler(cfg, msgRouter, sessions, conciergeMetrics, logger)

	r := router.New(&router.Config{
		Logger:           logger,
		MessagingHandler: messagingHandler,
		MetricsHandler:   metricsHandler,
	})

	// WriteTimeout leaves room for an inline answer bounded by ANSWER_TIMEOUT.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AnswerTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	messagingHandler.Wait()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics registers concierge metrics on a private registry. Both return
// values are nil when METRICS_ENABLED is false.
func setupMetrics(cfg *appconfig.Config) (http.Handler, *metrics.ConciergeMetrics) {
	if !cfg.MetricsEnabled {
		return nil, nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewConciergeMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}
