package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"GoodNewsFeed/internal/domain"
	"GoodNewsFeed/internal/ports"
)

const (
	defaultMaxAttempts = 3
	defaultConcurrency = 3
	defaultPacing      = 400 * time.Millisecond
	defaultBackoff     = 2 * time.Second
)

// EngineConfig bounds the classification engine's retry and throughput
// behaviour.
type EngineConfig struct {
	// Models is the ordered backend pool, best tier first.
	Models []string
	// MaxAttempts caps attempts per backend for ordinary failures.
	MaxAttempts int
	// Concurrency caps in-flight rows.
	Concurrency int
	// Pacing is slept after each resolved row to throttle aggregate rate.
	Pacing time.Duration
	// Backoff is the base delay between retries on the same backend; the
	// actual delay grows with the attempt number.
	Backoff time.Duration
}

// Judgement pairs a processed article with the verdict written for it.
type Judgement struct {
	Article domain.Article
	Verdict domain.Verdict
}

// Engine obtains a verdict for every unjudged row by querying the model
// pool with ordered fallback. A rotation cursor advances one position per
// row so consecutive rows start on different backends, smoothing load
// across the pool. When every backend is exhausted the row is resolved as
// not good so it is never retried forever.
type Engine struct {
	store  ports.ArticleStore
	client ports.Classifier
	cfg    EngineConfig
	cursor atomic.Uint64
	logger *slog.Logger
}

// NewEngine wires the engine, applying defaults for unset limits.
func NewEngine(store ports.ArticleStore, client ports.Classifier, cfg EngineConfig, logger *slog.Logger) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Pacing < 0 {
		cfg.Pacing = defaultPacing
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	return &Engine{
		store:  store,
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Run classifies up to batchLimit unjudged rows under the concurrency cap
// and returns the judgements applied. A single row's failure never aborts
// the batch; it degrades to a negative verdict instead.
func (e *Engine) Run(ctx context.Context, batchLimit int) ([]Judgement, error) {
	if e.client == nil || len(e.cfg.Models) == 0 {
		e.warn("classification backend not configured, engine skipped")
		return nil, nil
	}

	articles, err := e.store.SelectUnjudged(ctx, batchLimit)
	if err != nil {
		return nil, fmt.Errorf("load unjudged: %w", err)
	}
	if len(articles) == 0 {
		e.debug("no articles require classification")
		return nil, nil
	}

	var (
		mu         sync.Mutex
		judgements []Judgement
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.cfg.Concurrency)

	for _, article := range articles {
		article := article
		group.Go(func() error {
			verdict, ok := e.judge(groupCtx, article.Title, article.Content)
			if !ok {
				// Terminal resolution: mark not good with no category so
				// the row never stays queued behind a broken backend.
				verdict = domain.Verdict{IsGood: false}
				e.warn("no backend produced a verdict, marked not good", "title", article.Title)
			}

			if err := e.store.ApplyVerdict(groupCtx, article.ID, verdict); err != nil {
				e.error("apply verdict failed", "id", article.ID, "error", err)
				return nil
			}

			if ok {
				e.info("article judged",
					"title", article.Title,
					"is_good", verdict.IsGood,
					"category", verdict.Category)
			}

			mu.Lock()
			judgements = append(judgements, Judgement{Article: article, Verdict: verdict})
			mu.Unlock()

			// Gentle pause between rows to respect backend quotas.
			e.sleep(groupCtx, e.cfg.Pacing)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return judgements, err
	}

	e.info("classification done", "processed", len(judgements))
	return judgements, nil
}

// judge walks the rotated trial list: each backend is visited at most
// once, with bounded retries per backend. A rate-limit refusal rotates to
// the next backend immediately instead of burning local retries.
func (e *Engine) judge(ctx context.Context, title, content string) (domain.Verdict, bool) {
	start := int(e.cursor.Add(1)-1) % len(e.cfg.Models)

	for i := range e.cfg.Models {
		model := e.cfg.Models[(start+i)%len(e.cfg.Models)]

		for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
			verdict, err := e.client.Classify(ctx, model, title, content)
			if err == nil && !domain.KnownCategory(verdict.Category) {
				// A malformed verdict is a backend failure, not a "none".
				err = fmt.Errorf("unknown category %q", verdict.Category)
			}
			if err == nil {
				// The category/goodness coupling is an invariant the pool
				// does not always honour; clamp rather than trust.
				verdict.IsGood = verdict.Category != domain.CategoryNone
				return verdict, true
			}

			if errors.Is(err, domain.ErrRateLimited) {
				e.warn("backend rate limited, rotating", "model", model)
				break
			}

			if ctx.Err() != nil {
				return domain.Verdict{}, false
			}

			e.error("classification attempt failed",
				"model", model, "attempt", attempt, "error", err)

			if attempt < e.cfg.MaxAttempts {
				if !e.retryDelay(ctx, attempt) {
					return domain.Verdict{}, false
				}
			}
		}
	}

	return domain.Verdict{}, false
}

// retryDelay sleeps an increasing backoff; false means the context died.
func (e *Engine) retryDelay(ctx context.Context, attempt int) bool {
	return e.sleep(ctx, e.cfg.Backoff*time.Duration(attempt))
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *Engine) debug(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

func (e *Engine) info(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Info(msg, args...)
	}
}

func (e *Engine) warn(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}

func (e *Engine) error(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Error(msg, args...)
	}
}
