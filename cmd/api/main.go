package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conduitchat/conduit/internal/completion"
	"github.com/conduitchat/conduit/internal/config"
	"github.com/conduitchat/conduit/internal/database"
	"github.com/conduitchat/conduit/internal/embedding"
	"github.com/conduitchat/conduit/internal/knowledge"
	"github.com/conduitchat/conduit/internal/logging"
	"github.com/conduitchat/conduit/internal/middleware"
	"github.com/conduitchat/conduit/internal/monitoring"
	"github.com/conduitchat/conduit/internal/server"
	"github.com/conduitchat/conduit/internal/tools"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logging
	logging.Setup(&cfg.Logging, cfg.Server.Env)

	log.Info().
		Str("env", cfg.Server.Env).
		Str("name", cfg.Server.Name).
		Str("knowledge_driver", cfg.Knowledge.Driver).
		Msg("Starting Conduit chat server")

	ctx := context.Background()

	store, closeStore, err := newVectorStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to knowledge store")
	}
	defer closeStore()

	// Initialize Prometheus metrics
	monitoring.Init()
	log.Info().Msg("Prometheus metrics initialized")

	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(cfg.Monitoring.PrometheusPort)
	}

	deps := server.Deps{
		Completion: completion.NewClient(&cfg.Completion),
		OpenAI:     openai.NewClient(cfg.Agent.OpenAIKey),
		Store:      store,
		Embedder:   embedding.NewOpenAI(&cfg.Agent),
		Registry: tools.NewRegistry(&cfg.Tools, &http.Client{
			Timeout:   30 * time.Second,
			Transport: tools.NewBreakerTransport(nil, nil),
		}),
		Limiter: newRateLimiter(cfg),
	}

	srv := server.NewAPIServer(cfg, deps)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().
			Int("port", cfg.Server.Port).
			Msg("API server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().
		Str("signal", sig.String()).
		Msg("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}

// newVectorStore builds the configured knowledge store backend. The driver
// is fixed for the process lifetime; requests cannot switch it.
func newVectorStore(ctx context.Context, cfg *config.Config) (knowledge.VectorStore, func(), error) {
	switch cfg.Knowledge.Driver {
	case "mongo":
		store, err := knowledge.NewMongoStore(ctx, &cfg.Knowledge)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := store.Close(closeCtx); err != nil {
				log.Error().Err(err).Msg("Failed to close mongo store")
			}
		}, nil
	default:
		db, err := database.New(cfg.Knowledge.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return knowledge.NewPostgresStore(db.Pool), db.Close, nil
	}
}

// newRateLimiter builds the Redis-backed limiter, or nil when disabled
func newRateLimiter(cfg *config.Config) *middleware.RateLimiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid REDIS_URL")
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		// The limiter fails open, so a cold Redis only disables limiting.
		log.Warn().Err(err).Msg("Redis unreachable at startup, rate limiting degraded")
	}

	return middleware.NewRateLimiter(client, &cfg.RateLimit)
}

func startMetricsServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.Handler())

	metricsServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Info().
		Int("port", port).
		Msg("Prometheus metrics server listening")

	if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Metrics server error")
	}
}
