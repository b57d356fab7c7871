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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reliability-insights/internal/cache"
	"reliability-insights/internal/config"
	"reliability-insights/internal/handlers"
	"reliability-insights/internal/logger"
	"reliability-insights/internal/pipeline"
	"reliability-insights/internal/source"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.Path("config.yaml"))
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("starting reliability insights service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Инициализация Redis
	redisCache, err := cache.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
	if err != nil {
		return err
	}
	defer redisCache.Close()
	log.Info("connected to Redis", logger.String("addr", cfg.Redis.Addr))

	src, closeSource, err := source.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSource()
	log.Info("event source ready", logger.String("kind", cfg.Source.Kind))

	p := pipeline.New(cfg, log, pipeline.WithPublisher(redisCache))

	// Периодический пересчет из одной горутины, запуски не пересекаются
	go refresh(ctx, p, src, cfg.Server.RefreshInterval, log)

	handler := handlers.NewHandler(redisCache, log)

	mux := http.NewServeMux()
	handler.Routes(mux)

	// Prometheus metrics endpoint
	mux.Handle("/prometheus", promhttp.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", logger.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Ожидание сигнала завершения
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

// refresh пересчитывает конвейер сразу и затем по таймеру
func refresh(ctx context.Context, p *pipeline.Pipeline, src pipeline.EventSource, interval time.Duration, log logger.Logger) {
	runOnce := func() {
		if _, err := p.Run(ctx, src); err != nil && ctx.Err() == nil {
			log.Warn("refresh failed, keeping previous results", logger.Error(err))
		}
	}

	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
