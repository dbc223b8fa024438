package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	osignal "os/signal"
	"syscall"
	"time"

	"syncrun/internal/core/services"
	"syncrun/internal/infrastructure/archive"
	"syncrun/internal/infrastructure/httpapi"
	"syncrun/internal/infrastructure/monitoring"
	wshub "syncrun/internal/infrastructure/signal"
	"syncrun/internal/infrastructure/streaming"
	"syncrun/pkg/config"
	"syncrun/pkg/logger"
	"syncrun/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "syncrun-hub",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: "production",
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}
	defer tp.Shutdown(context.Background())

	registry := services.NewRegistryService()
	session := services.NewSessionService()

	var metric *monitoring.PrometheusCollector
	if cfg.Monitoring.PrometheusEnabled {
		metric = monitoring.NewPrometheusCollector()
	}

	store := archive.NewHTTPStore(cfg, log)
	pipeline := streaming.NewManager(cfg, log, store, metric)

	wsHub := wshub.NewHub(cfg, log, metric, registry, session, pipeline)

	checker := monitoring.NewHealthChecker()
	checker.AddCheck("registry", func(ctx context.Context) (bool, error) {
		return true, nil
	}, 30*time.Second, 5*time.Second)

	apiHub := httpapi.NewHub(wsHub, pipeline, registry, cfg.Streaming.LiveRoot)
	router := httpapi.NewRouter(cfg, zapLogger, apiHub, checker)

	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Infow("starting hub", "address", cfg.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	osignal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("graceful shutdown failed", "error", err)
	}

	pipeline.StopAll()

	log.Info("hub stopped")
}
