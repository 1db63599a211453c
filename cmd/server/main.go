package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/connexus-ai/companion-rank/internal/cache"
	"github.com/connexus-ai/companion-rank/internal/catalog"
	"github.com/connexus-ai/companion-rank/internal/config"
	"github.com/connexus-ai/companion-rank/internal/middleware"
	"github.com/connexus-ai/companion-rank/internal/repository"
	"github.com/connexus-ai/companion-rank/internal/router"
	"github.com/connexus-ai/companion-rank/internal/service"
)

const Version = "0.1.0"

func getPort(cfg *config.Config) string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return fmt.Sprintf("%d", cfg.Port)
}

// buildDependencies wires the ranking engine's storage, services, and
// HTTP layer from config. The returned closer releases the database
// pool and (if configured) the Redis connection; callers must invoke
// it on shutdown.
func buildDependencies(ctx context.Context, cfg *config.Config) (*router.Dependencies, func(), error) {
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return nil, nil, fmt.Errorf("buildDependencies: db pool: %w", err)
	}

	productRepo := repository.NewProductRepository(pool)
	cat, err := catalog.New(ctx, productRepo)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("buildDependencies: catalog: %w", err)
	}

	vectorRepo := repository.NewVectorRepo(pool)
	vectorSearch := service.NewVectorSearch(cat, vectorRepo)
	llmRepo := repository.NewLLMRepo(pool)
	feedbackRepo := repository.NewFeedbackRepo(pool)
	armRepo := repository.NewArmRepo(pool)

	var publisher service.ArmPublisher
	var armBus *cache.ArmBus
	if cfg.RedisURL != "" {
		armBus, err = cache.NewArmBus(cfg.RedisURL)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("buildDependencies: arm bus: %w", err)
		}
		publisher = armBus
	}

	bandit := service.NewBanditState(armRepo, publisher, cfg.TSInitStrength, cfg.TSMaxTotal, cfg.UpdateStrength, 0)
	if err := bandit.ReloadFromStore(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("buildDependencies: bandit reload: %w", err)
	}

	subCtx, stopSub := context.WithCancel(context.Background())
	if armBus != nil {
		go armBus.Subscribe(subCtx, bandit)
	}

	scorer := service.NewScorer(bandit, cfg.DemoMode, cfg.TSBaseWeightDemo, cfg.TSWeightHalflife, cfg.PriceThreshold, cfg.PriceMaxPenalty)
	mmr := service.NewMMRReranker(cfg.MMRPureTopK, cfg.MMRReturnSize, cfg.MMRWindowSize, cfg.MMRLambda, cfg.MMRMinScore)

	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(reg)

	pipeline := service.NewPipeline(
		cat,
		vectorSearch,
		llmRepo,
		bandit,
		scorer,
		mmr,
		feedbackRepo,
		armRepo,
		publisher,
		metrics,
		service.PipelineConfig{
			MMREnabled: cfg.MMREnabled,
			RecallSize: cfg.MMRRecallSize,
			ReturnSize: cfg.MMRReturnSize,
			RRFK:       cfg.RRFK,
		},
	)

	var rateLimiter *middleware.RateLimiter
	if cfg.Environment == "production" {
		rateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			MaxRequests: 120,
			Window:      time.Minute,
		})
	}

	closer := func() {
		stopSub()
		if rateLimiter != nil {
			rateLimiter.Stop()
		}
		if armBus != nil {
			armBus.Close()
		}
		pool.Close()
	}

	deps := &router.Dependencies{
		DB:          pool,
		Version:     Version,
		FrontendURL: cfg.FrontendURL,
		Metrics:     metrics,
		MetricsReg:  reg,
		Recommender: pipeline,
		Feedback:    pipeline,
		MainLister:  cat,
		RateLimiter: rateLimiter,
	}
	return deps, closer, nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	deps, closer, err := buildDependencies(ctx, cfg)
	cancel()
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer closer()

	port := getPort(cfg)
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router.New(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("companion-rank starting", "version", Version, "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received signal, shutting down gracefully", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
