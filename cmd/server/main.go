package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/fajarsembar01/home/internal/config"
	"github.com/fajarsembar01/home/internal/fetcher"
	"github.com/fajarsembar01/home/internal/handler"
	"github.com/fajarsembar01/home/internal/job"
	"github.com/fajarsembar01/home/internal/repository"
	"github.com/fajarsembar01/home/internal/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)
	logger.Info("starting propertibot", "version", Version, "build_time", BuildTime, "git_commit", GitCommit)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	gin.SetMode(cfg.Server.GinMode)

	repo, err := repository.NewPostgresRepository(
		cfg.GetPostgreSQLDSN(),
		cfg.PostgreSQL.MaxConnections,
		cfg.PostgreSQL.MaxIdleConnections,
	)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer repo.Close()
	logger.Info("connected to PostgreSQL")

	if cfg.PostgreSQL.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := repo.Migrate(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("database migrations applied")
	}

	client := newAIClient(cfg, logger)
	extractor := service.NewListingExtractor(client, cfg.AI.Temperature, logger)
	parser := service.NewQueryParser(client, cfg.AI.Temperature, logger)
	ranker := service.NewRanker(cfg.Ranking.WeightText, cfg.Ranking.WeightPrice, cfg.Ranking.WeightRecency)
	listings := service.NewListingService(repo, extractor, parser, fetcher.New(cfg.Fetch), ranker, cfg.Search, logger)

	var limiter handler.RateCounter
	if cfg.Redis.URL != "" {
		rdb, err := newRedis(cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		limiter = rdb
		logger.Info("rate limiting enabled", "per_minute", cfg.Redis.RateLimitPerMinute)
	} else {
		logger.Warn("REDIS_URL not set, rate limiting disabled")
	}

	router := handler.NewRouter(handler.RouterDeps{
		Listings:  listings,
		Assistant: service.NewAssistant(client, logger),
		Users:     repo,
		DB:        repo,
		Limiter:   limiter,
		RateLimit: cfg.Redis.RateLimitPerMinute,
		Server:    cfg.Server,
		Build:     handler.BuildInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit},
		Logger:    logger,
	})

	scheduler, err := job.Start(cfg.Retention, repo, logger)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer scheduler.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// newAIClient returns nil when no provider is configured; extraction then
// uses the rule-based fallback and search parsing yields empty filters.
func newAIClient(cfg *config.Config, logger *slog.Logger) service.AIClient {
	switch cfg.AI.Provider {
	case "openai":
		if !cfg.OpenAI.Enabled {
			logger.Warn("OPENAI_API_KEY not set, AI extraction disabled")
			return nil
		}
		logger.Info("AI provider: openai", "api_base", cfg.OpenAI.APIBase, "model", cfg.OpenAI.ChatModel)
		return service.NewOpenAIClient(&cfg.OpenAI)
	case "gemini":
		if !cfg.Gemini.Enabled {
			logger.Warn("GEMINI_API_KEY not set, AI extraction disabled")
			return nil
		}
		logger.Info("AI provider: gemini", "model", cfg.Gemini.Model)
		return service.NewGeminiClient(&cfg.Gemini)
	default:
		logger.Info("AI provider disabled")
		return nil
	}
}

func newRedis(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return rdb, nil
}
