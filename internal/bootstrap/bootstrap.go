package bootstrap

import (
	"context"
	"fmt"

	"github.com/AdamCJJ/jiffy-volume-app/internal/config"
	"github.com/AdamCJJ/jiffy-volume-app/internal/core/ports"
	"github.com/AdamCJJ/jiffy-volume-app/internal/core/usecase"
	"github.com/AdamCJJ/jiffy-volume-app/internal/infrastructure/llm/openai"
	"github.com/AdamCJJ/jiffy-volume-app/internal/infrastructure/policy"
	"github.com/AdamCJJ/jiffy-volume-app/internal/infrastructure/repository/postgres"
	"github.com/AdamCJJ/jiffy-volume-app/internal/infrastructure/resilience"
	"github.com/AdamCJJ/jiffy-volume-app/internal/infrastructure/session/memory"
	"github.com/AdamCJJ/jiffy-volume-app/internal/observability/metrics"
)

const serviceName = "api"

type App struct {
	Config config.Config

	Auth      ports.AuthGate
	Estimates ports.EstimateService
	History   ports.HistoryService
	Metrics   *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if cfg.AppPIN == "" {
		return nil, fmt.Errorf("APP_PIN is required")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewEstimateRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	policies, err := policy.Load(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("load policy profiles: %w", err)
	}
	profile, err := policies.Profile(cfg.PolicyProfile)
	if err != nil {
		return nil, fmt.Errorf("select policy profile: %w", err)
	}

	serverMetrics := metrics.NewHTTPServerMetrics(serviceName)

	executor := resilience.NewExecutor(resilience.Config{
		BreakerEnabled:     cfg.BreakerEnabled,
		BreakerMinRequests: uint32(cfg.BreakerMinRequests),
		BreakerOpenTimeout: cfg.BreakerOpenTimeout,
	})

	invokerOpts := []openai.Option{
		openai.WithHTTPTimeout(cfg.InferenceTimeout),
		openai.WithExecutor(executor),
		openai.WithUsageRecorder(serverMetrics),
	}
	if cfg.OpenAIBaseURL != "" {
		invokerOpts = append(invokerOpts, openai.WithBaseURL(cfg.OpenAIBaseURL))
	}
	invoker := openai.New(cfg.OpenAIAPIKey, cfg.ModelName, profile.MaxOutputTokens, invokerOpts...)

	sessions := memory.New()
	auth := usecase.NewAuthUseCase(cfg.AppPIN, sessions, cfg.SessionTTL)
	estimates := usecase.NewEstimateUseCase(repo, invoker, profile.Instructions, serverMetrics.EstimateObserver(serviceName))
	history := usecase.NewHistoryUseCase(repo)

	return &App{
		Config: cfg,

		Auth:      auth,
		Estimates: estimates,
		History:   history,
		Metrics:   serverMetrics,

		closeFn: func() {
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
