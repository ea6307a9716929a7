package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parley/internal/core/services"
	httphandlers "parley/internal/handlers/http"
	"parley/internal/infrastructure/middleware"
	"parley/internal/infrastructure/monitoring"
	"parley/internal/infrastructure/repositories/memory"
	wssignal "parley/internal/infrastructure/signal"
	"parley/pkg/config"
	"parley/pkg/logger"
	"parley/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/parley/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}
	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	appLog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer appLog.Sync()

	// Tracing
	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		SampleRate:  cfg.Tracing.SampleRatio,
	})
	if err != nil {
		appLog.Fatalw("tracing init failed", "error", err)
	}

	// Core wiring
	roomRepo := memory.NewMemoryRoomRepository()
	roomService := services.NewRoomService(roomRepo, cfg.Rooms.MaxIDLength, cfg.Rooms.MaxNameLength, appLog)
	collector := monitoring.NewPrometheusCollector()

	wsServer := wssignal.NewWebSocketServer(roomService, collector, appLog)
	wsServer.SetPingInterval(cfg.Signal.PingInterval)
	wsServer.SetPongTimeout(cfg.Signal.PongTimeout)
	if cfg.RateLimiting.Enabled {
		wsServer.SetMessageRate(cfg.RateLimiting.WebSocket.MessagesPerSecond, cfg.RateLimiting.WebSocket.Burst)
		wsServer.SetMaxMessageSize(cfg.RateLimiting.WebSocket.MaxMessageSizeBytes)
	}

	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddCheck("room_registry", func(ctx context.Context) (bool, error) {
		_, err := roomRepo.Count(ctx)
		return err == nil, err
	}, 2*time.Second)

	// HTTP API
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(appLog))
	router.Use(middleware.ErrorHandlerMiddleware(appLog))
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	httphandlers.NewRoomHandler(roomService).SetupRoutes(router)

	if cfg.Assistant.Enabled {
		assistantService, err := services.NewAssistantService(
			cfg.Assistant.APIKey,
			cfg.Assistant.Model,
			cfg.Assistant.BaseURL,
			cfg.Assistant.Timeout,
			appLog,
		)
		if err != nil {
			appLog.Fatalw("assistant init failed", "error", err)
		}
		httphandlers.NewAssistantHandler(assistantService).SetupRoutes(router)
		appLog.Info("assistant endpoint enabled")
	}

	router.GET("/health", func(c *gin.Context) {
		status := healthChecker.CheckAll(c.Request.Context())
		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status.Status,
			"timestamp": status.Timestamp,
			"checks":    status.Checks,
			"uptime":    time.Since(startTime).String(),
			"clients":   wsServer.ConnectedClients(),
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if _, err := roomRepo.Count(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "timestamp": time.Now()})
	})

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		appLog.Info("Prometheus metrics enabled")
	}

	apiSrv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Rendezvous endpoint on its own listener
	wsMux := http.NewServeMux()
	wsMux.HandleFunc(cfg.Signal.Path, wsServer.HandleWebSocket)
	signalSrv := &http.Server{
		Addr:    cfg.Signal.Address,
		Handler: wsMux,
	}

	serverErr := make(chan error, 2)
	go func() {
		appLog.Infof("Starting Parley API server on %s", cfg.Server.Address)
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()
	go func() {
		appLog.Infof("Starting Parley rendezvous server on %s%s", cfg.Signal.Address, cfg.Signal.Path)
		if err := signalSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		appLog.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		appLog.Infow("Received shutdown signal", "signal", sig)
	}

	appLog.Info("Shutting down Parley...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := signalSrv.Shutdown(shutdownCtx); err != nil {
		appLog.Errorw("Error during rendezvous server shutdown", "error", err)
		signalSrv.Close()
	}
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		appLog.Errorw("Error during API server shutdown", "error", err)
		apiSrv.Close()
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		appLog.Errorw("Error shutting down tracing", "error", err)
	}

	appLog.Info("Parley stopped")
}
