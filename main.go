package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"rain-checker/api"
	"rain-checker/collector"
	"rain-checker/config"
	"rain-checker/datasource"
	"rain-checker/logging"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	// Parse command line arguments
	port := flag.Int("port", 0, "Port to run the server on (overrides config)")
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	enableRateLimiting := flag.Bool("rate-limit", true, "Enable OpenWeatherMap rate limiting")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port > 0 {
		cfg.Port = *port
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	if cfg.APIKeyConfigured() {
		logger.Info("OpenWeatherMap API key configured")
	} else {
		logger.Warn("OpenWeatherMap API key not configured; rain checks will fail until OPENWEATHER_API_KEY is set")
	}

	var provider datasource.Provider = datasource.NewOpenWeatherMapProvider(datasource.OpenWeatherMapOptions{
		APIKey:      cfg.OpenWeather.APIKey,
		GeoBaseURL:  cfg.OpenWeather.GeoBaseURL,
		DataBaseURL: cfg.OpenWeather.DataBaseURL,
		HTTPClient:  &http.Client{Timeout: cfg.OpenWeather.Timeout},
		Logger:      logger,
	})

	// Apply rate limiting if enabled
	if *enableRateLimiting && *cfg.OpenWeather.RateLimit {
		provider = datasource.NewRateLimitedProvider(provider, cfg.OpenWeather.RPS, cfg.OpenWeather.Burst)
		logger.Info("applied rate limiting to OpenWeatherMap provider",
			zap.Float64("rps", cfg.OpenWeather.RPS),
			zap.Int("burst", cfg.OpenWeather.Burst),
		)
	}

	checker := collector.NewRainChecker(provider, collector.RealClock{Location: loc}, logger)
	checker.SetFetchTimeout(cfg.OpenWeather.Timeout)

	server, err := api.NewServer(checker, api.Options{
		Port:            cfg.Port,
		Development:     cfg.Development(),
		TrustProxy:      cfg.TrustProxy,
		RateLimitMax:    cfg.RateLimit.Max,
		RateLimitWindow: cfg.RateLimit.Window,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}

	// Set up channel for graceful shutdown
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		if errors.Is(err, syscall.EADDRINUSE) {
			logger.Fatal("port already in use", zap.String("addr", server.Addr()), zap.Error(err))
		}
		logger.Fatal("server stopped", zap.Error(err))
	case sig := <-shutdownChan:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return
	}
	logger.Info("shutdown complete")
}
