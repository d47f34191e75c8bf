package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/joshuarebo/insmile-ai/internal/application"
	appanalysis "github.com/joshuarebo/insmile-ai/internal/application/analysis"
	appchat "github.com/joshuarebo/insmile-ai/internal/application/chat"
	appplan "github.com/joshuarebo/insmile-ai/internal/application/plan"
	"github.com/joshuarebo/insmile-ai/internal/config"
	domain "github.com/joshuarebo/insmile-ai/internal/domain/analysis"
	plandomain "github.com/joshuarebo/insmile-ai/internal/domain/plan"
	aiclient "github.com/joshuarebo/insmile-ai/internal/infra/ai/openai"
	"github.com/joshuarebo/insmile-ai/internal/infra/cache"
	"github.com/joshuarebo/insmile-ai/internal/infra/httpserver"
	"github.com/joshuarebo/insmile-ai/internal/infra/registry"
	"github.com/joshuarebo/insmile-ai/internal/infra/storage"
	"github.com/joshuarebo/insmile-ai/internal/middleware"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Mode.Debug)
	defer log.Sync()

	ctx := context.Background()

	images, err := newImageStore(ctx, cfg)
	if err != nil {
		log.Fatal("storage init error", zap.Error(err))
	}

	gateway := aiclient.NewClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model, cfg.AI.MaxTokens)
	if cfg.AI.APIKey == "" {
		log.Warn("no API key configured; provider calls will fail",
			zap.Bool("allowMockFallback", cfg.Mode.AllowMockFallback))
	}

	clock := application.SystemClock{}
	reg := registry.NewMemory(clock)
	analyses := cache.NewLatest[*domain.Result](512)
	plans := cache.NewLatest[*plandomain.Plan](512)

	analysisSvc := &appanalysis.Service{
		Registry:    reg,
		Images:      images,
		Gateway:     gateway,
		Latest:      analyses,
		Mode:        cfg.Mode,
		Clock:       clock,
		Log:         log,
		CallTimeout: cfg.AITimeout(),
	}
	planSvc := &appplan.Service{
		Registry:     reg,
		Gateway:      gateway,
		Analyses:     analyses,
		Plans:        plans,
		Mode:         cfg.Mode,
		Clock:        clock,
		Log:          log,
		PollInterval: cfg.PlanPollInterval(),
		PollAttempts: cfg.Plan.PollAttempts,
		CallTimeout:  cfg.AITimeout(),
	}
	chatSvc := &appchat.Service{
		Gateway:     gateway,
		Analyses:    analyses,
		Plans:       plans,
		Mode:        cfg.Mode,
		Log:         log,
		CallTimeout: cfg.AITimeout(),
	}

	checkers := map[string]middleware.HealthChecker{
		"provider": middleware.HealthCheckerFunc(func(ctx context.Context) error {
			if cfg.AI.APIKey == "" && !cfg.Mode.ShouldFallback() {
				return fmt.Errorf("no API key configured and mock fallback disabled")
			}
			return nil
		}),
	}
	if hc, ok := images.(middleware.HealthChecker); ok {
		checkers["storage"] = hc
	}
	health := middleware.HealthHandler(cfg.Mode, checkers)
	metrics := middleware.MetricsHandler(func() map[string]interface{} {
		counts := reg.CountByStatus()
		sources := reg.CountBySource()
		return map[string]interface{}{
			"jobs_queued":     counts[domain.StatusQueued],
			"jobs_processing": counts[domain.StatusProcessing],
			"jobs_completed":  counts[domain.StatusCompleted],
			"jobs_failed":     counts[domain.StatusFailed],
			"jobs_mock":       sources[domain.SourceMock],
		}
	})

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	mux.Use(middleware.LoggingMiddleware(log))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.RateLimitMiddleware(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst))
	mux.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	mux.Mount("/", httpserver.NewRouter(analysisSvc, planSvc, chatSvc, health, metrics))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening",
			zap.String("addr", addr),
			zap.Bool("forceReal", cfg.Mode.ForceReal),
			zap.Bool("allowMockFallback", cfg.Mode.AllowMockFallback),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("model", cfg.AI.Model))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}
}

func newLogger(debug bool) *zap.Logger {
	var log *zap.Logger
	var err error
	if debug {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	return log
}

func newImageStore(ctx context.Context, cfg *config.Config) (domain.ImageStore, error) {
	switch cfg.Storage.Driver {
	case "minio":
		return storage.NewMinio(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
	default:
		return storage.NewLocal(cfg.Storage.LocalDir)
	}
}
