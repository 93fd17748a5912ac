package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"GoodNewsFeed/internal/api"
	"GoodNewsFeed/internal/config"
	"GoodNewsFeed/internal/infrastructure/llm"
	"GoodNewsFeed/internal/infrastructure/newsapi"
	"GoodNewsFeed/internal/infrastructure/runstate"
	"GoodNewsFeed/internal/infrastructure/scheduler"
	"GoodNewsFeed/internal/infrastructure/sentiment"
	"GoodNewsFeed/internal/infrastructure/storage"
	"GoodNewsFeed/internal/infrastructure/telegram"
	"GoodNewsFeed/internal/logging"
	"GoodNewsFeed/internal/ports"
	"GoodNewsFeed/internal/source"
	"GoodNewsFeed/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.SQLiteStore
	scheduler *usecase.Scheduler
	server    *http.Server
}

// New builds a runnable application instance. Missing credentials
// disable the corresponding stage instead of failing startup.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	runState := runstate.NewFileStore(cfg.Storage.RunStatePath)

	registry := source.NewRegistry()
	registry.Register(newsapi.NewClient(cfg.NewsAPI, baseLogger.With("component", "source.newsapi")))
	articleSource := source.NewMultiSource(registry, cfg.Providers, baseLogger.With("component", "source"))

	var scorer ports.SentimentScorer
	if cfg.Sentiment.InferenceURL != "" {
		scorer = sentiment.NewClient(cfg.Sentiment.InferenceURL, cfg.Sentiment.APIKey)
	}
	gate := usecase.NewSentimentGate(store, scorer, cfg.Sentiment.RejectThreshold,
		baseLogger.With("component", "gate"))

	var (
		classifier ports.Classifier
		moderator  ports.Moderator
	)
	if cfg.Groq.APIKey != "" {
		groq := llm.NewGroqClient(cfg.Groq)
		classifier = groq
		moderator = groq
	} else {
		baseLogger.Warn("GROQ_API_KEY not set, classification and moderation disabled")
	}

	engine := usecase.NewEngine(store, classifier, usecase.EngineConfig{
		Models:      cfg.Groq.Models,
		MaxAttempts: cfg.Groq.MaxAttempts,
		Concurrency: cfg.Groq.Concurrency,
		Pacing:      cfg.Groq.Pacing.Std(),
	}, baseLogger.With("component", "classifier"))

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Store:         store,
		RunState:      runState,
		Source:        articleSource,
		Gate:          gate,
		Engine:        engine,
		Notifier:      notifier,
		Logger:        baseLogger.With("component", "pipeline"),
		RetentionDays: cfg.Storage.RetentionDays,
		BatchLimit:    cfg.Groq.BatchLimit,
	})

	driver := scheduler.NewCronScheduler(cfg.Scheduler.Interval.Std())
	runScheduler := usecase.NewScheduler(driver, pipeline, runState, cfg.Scheduler.Staleness.Std(),
		baseLogger.With("component", "scheduler"))

	submissions := usecase.NewSubmissions(store, moderator, baseLogger.With("component", "submissions"))
	server := api.NewServer(store, submissions, baseLogger.With("component", "api"))

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		store:     store,
		scheduler: runScheduler,
		server: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run starts the scheduler and the HTTP listener, then blocks until the
// context is cancelled and everything has shut down.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler stop failed", "error", err)
	}
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("server shutdown failed", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close failed", "error", err)
	}

	return nil
}
