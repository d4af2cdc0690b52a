package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fbeunder/RecordingTranscribe/internal/capture"
	"github.com/Fbeunder/RecordingTranscribe/internal/config"
	"github.com/Fbeunder/RecordingTranscribe/internal/metrics"
	"github.com/Fbeunder/RecordingTranscribe/internal/recorder"
	"github.com/Fbeunder/RecordingTranscribe/internal/server"
	"github.com/Fbeunder/RecordingTranscribe/internal/storage"
	"github.com/Fbeunder/RecordingTranscribe/internal/transcription"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "record-transcribe"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.HTTP.Port),
		slog.String("http_address", cfg.HTTP.Address),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("chunk_size", cfg.Audio.ChunkSize),
		slog.String("download_dir", cfg.Storage.DownloadDir),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.String("default_language", cfg.Transcription.DefaultLanguage),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize file store
	store := storage.NewStore(cfg.Storage.DownloadDir, logger)
	logger.Info("File store initialized",
		slog.String("download_dir", store.Dir()),
	)

	// Initialize capture backend and recorder
	backend := capture.NewPortAudioBackend()
	rec := recorder.NewRecorder(backend, store, cfg.Audio, logger)
	logger.Info("Recorder initialized",
		slog.Duration("stop_timeout", cfg.Audio.GetStopTimeoutDuration()),
	)

	// Initialize transcription client and service
	client, err := transcription.NewClient(transcription.Config{
		Endpoint:      cfg.Transcription.Endpoint,
		APIKey:        cfg.Transcription.APIKey,
		Timeout:       cfg.Transcription.GetTimeoutDuration(),
		MaxRetries:    cfg.Transcription.MaxRetries,
		MaxConcurrent: cfg.Transcription.MaxConcurrent,
		OnRetry:       appMetrics.RecordTranscriptionRetry,
	})
	if err != nil {
		logger.Error("Failed to create transcription client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	transcoder := storage.NewFFmpegTranscoder(cfg.Storage.FFmpegPath, logger)
	transcriber := transcription.NewService(client, transcoder, store,
		cfg.Transcription.DefaultLanguage, cfg.Transcription.DetectLanguages, logger)
	logger.Info("Transcription service initialized",
		slog.String("endpoint", cfg.Transcription.Endpoint),
		slog.String("default_language", cfg.Transcription.DefaultLanguage),
	)

	// Initialize and start the HTTP API server
	httpServer := server.NewHTTPServer(cfg.HTTP, logger, rec, transcriber, store, client, appMetrics)
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Stop any active recording and release the capture backend
	if err := rec.Close(); err != nil {
		logger.Error("Error closing recorder", slog.String("error", err.Error()))
	}

	// Wait for in-flight transcription requests
	if err := client.Close(); err != nil {
		logger.Error("Error closing transcription client", slog.String("error", err.Error()))
	}

	// Log final statistics
	stats := client.GetStats()
	logger.Info("Final transcription statistics",
		slog.Uint64("total_requests", stats.TotalRequests),
		slog.Uint64("success_requests", stats.SuccessRequests),
		slog.Uint64("failed_requests", stats.FailedRequests),
		slog.Float64("success_rate", stats.SuccessRate),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
