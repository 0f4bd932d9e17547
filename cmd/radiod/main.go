package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Unknownaod/shoreroleplay-radio/internal/core/ports"
	"github.com/Unknownaod/shoreroleplay-radio/internal/core/services"
	"github.com/Unknownaod/shoreroleplay-radio/internal/infrastructure/backend"
	"github.com/Unknownaod/shoreroleplay-radio/internal/infrastructure/directory"
	"github.com/Unknownaod/shoreroleplay-radio/internal/infrastructure/middleware"
	"github.com/Unknownaod/shoreroleplay-radio/internal/infrastructure/monitoring"
	redisrepo "github.com/Unknownaod/shoreroleplay-radio/internal/infrastructure/repositories/redis"
	ws "github.com/Unknownaod/shoreroleplay-radio/internal/infrastructure/signal"
	"github.com/Unknownaod/shoreroleplay-radio/pkg/config"
	"github.com/Unknownaod/shoreroleplay-radio/pkg/logger"
	"github.com/Unknownaod/shoreroleplay-radio/pkg/tracing"
)

func main() {
	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/shoreroleplay/radio.yaml",
		"config.yaml",
	}

	configPath := configPaths[0]
	for _, path := range configPaths {
		if _, statErr := os.Stat(path); statErr == nil {
			configPath = path
			break
		}
	}

	// Load falls back to defaults when the file does not exist.
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format).Sugar()
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "shoreroleplay-radio",
		JaegerURL:   cfg.Tracing.JaegerURL,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}
	defer tp.Shutdown(context.Background())

	var metrics ports.Metrics
	if cfg.Monitoring.PrometheusEnabled {
		metrics = monitoring.NewPrometheusCollector()
		go serveMetrics(cfg.Monitoring.PrometheusPort, log)
	}

	var snapshotStore ports.SnapshotStore
	if cfg.Redis.Enabled {
		redisClient, err := redisrepo.NewClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, log)
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		snapshotStore = redisrepo.NewDirectoryStore(redisClient)
	}

	backendClient := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout, log)

	dir := directory.NewCache(backendClient, snapshotStore, cfg.Directory.RefreshInterval, metrics, log)
	dir.Start(ctx)

	radio := services.NewRadioService(dir, services.RelayLimits{
		PTTMaxStarts:      cfg.Radio.PTTMaxStarts,
		PTTWindow:         cfg.Radio.PTTWindow,
		AudioChunksPerSec: cfg.Radio.AudioChunksPerSec,
		AudioBucketTTL:    cfg.Radio.AudioBucketTTL,
	}, metrics, log)

	wsServer := ws.NewWebSocketServer(radio, backendClient, dir, orNoop(metrics), ws.Options{
		AuthTimeout:    cfg.Backend.RequestTimeout,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		SendBufferSize: cfg.Radio.SendBufferSize,
		MaxMessageSize: cfg.RateLimiting.WebSocket.MaxMessageSizeBytes,
	}, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	router.GET("/ws", middleware.NewWSConnectRateLimitMiddleware(cfg), wsServer.HandleWebSocket)
	router.GET("/health", wsServer.HealthCheck)

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		log.Infow("starting radio relay", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("failed to bind listen address", "address", cfg.Server.Address, "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server shutdown failed", "error", err)
	}
}

func serveMetrics(port int, log *zap.SugaredLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	log.Infow("serving metrics", "address", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorw("metrics server failed", "error", err)
	}
}

// orNoop keeps the signal server nil-safe when monitoring is disabled.
func orNoop(m ports.Metrics) ports.Metrics {
	if m != nil {
		return m
	}
	return services.NoopMetrics()
}
