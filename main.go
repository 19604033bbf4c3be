package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"video-clipper/internal/config"
	"video-clipper/internal/encoder"
	"video-clipper/internal/handlers"
	"video-clipper/internal/logging"
	"video-clipper/internal/metrics"
	"video-clipper/internal/middleware"
	"video-clipper/internal/pool"
	"video-clipper/internal/probe"
	"video-clipper/internal/registry"
	"video-clipper/internal/startup"
	"video-clipper/internal/thumbnail"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	startup.PrintBanner()
	startup.LogSystemInfo()

	// Load configuration
	cfg, err := config.Load("", runtime.NumCPU())
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}
	logging.SetLevel(logging.ParseLevel(cfg.Optimization.LogLevel))
	startup.LogConfig(&cfg)

	if err := startup.PrepareDirectories(&cfg); err != nil {
		logging.Fatal("Directory setup error: %v", err)
	}
	startup.LogFFmpegCheck(&cfg)

	// Initialize the video registry with its SQLite mirror
	reg, err := registry.New(context.Background(), filepath.Join(cfg.Server.UploadDir, "registry.db"), cfg.Limits.MaxCachedVideos)
	if err != nil {
		logging.Fatal("Failed to initialize video registry: %v", err)
	}
	defer func() {
		if err := reg.Close(); err != nil {
			logging.Warn("Registry close error: %v", err)
		}
	}()

	// Wire the encode pipeline
	prober := probe.New(cfg.FFmpeg.FFprobePath, probe.DefaultTimeout)
	encodeTimeout := time.Duration(cfg.Limits.ClipGenerationTimeoutSeconds * float64(time.Second))
	enc := encoder.New(cfg.FFmpeg, encodeTimeout)
	thumb := thumbnail.New(cfg.FFmpeg.FFmpegPath)
	workPool := pool.New(enc, thumb, cfg.Performance.MaxConcurrentClips)

	// Initialize handlers
	h := handlers.New(cfg, reg, prober, workPool)

	// Setup router
	router := setupRouter(h, cfg.Server.OutputDir)
	startup.LogHTTPRoutes(router)

	// Apply logging middleware
	loggedHandler := middleware.Logger(middleware.DefaultLoggingConfig())(router)

	// Apply metrics middleware
	handler := middleware.Metrics(middleware.DefaultMetricsConfig())(loggedHandler)
	metrics.InitializeMetrics()

	// Metrics server on its own port
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	metricsPort := getEnvInt("METRICS_PORT", 9090)
	var metricsSrv *http.Server
	if metricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf(":%d", metricsPort),
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Create server. WriteTimeout stays 0: clip generation can outlive any
	// reasonable fixed response deadline.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, reg)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            cfg.Server.Port,
		MetricsPort:     metricsPort,
		MetricsEnabled:  metricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, outputDir string) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Core API
	r.HandleFunc("/upload", h.Upload).Methods("POST")
	r.HandleFunc("/clip", h.Clip).Methods("POST")
	r.HandleFunc("/config", h.GetConfig).Methods("GET")
	r.HandleFunc("/", h.Index).Methods("GET")

	// Generated clips and thumbnails
	r.PathPrefix("/clips/").Handler(
		http.StripPrefix("/clips/", http.FileServer(http.Dir(outputDir))))

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, reg *registry.Registry) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Closing video registry")
	if err := reg.Close(); err != nil {
		logging.Warn("Registry close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Video registry closed")
	}

	startup.LogShutdownComplete()
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
