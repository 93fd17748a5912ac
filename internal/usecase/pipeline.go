package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"GoodNewsFeed/internal/domain"
	"GoodNewsFeed/internal/ports"
)

const (
	defaultRetentionDays = 7
	defaultBatchLimit    = 20
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Store         ports.ArticleStore
	RunState      ports.RunState
	Source        ports.ArticleSource
	Gate          *SentimentGate
	Engine        *Engine
	Notifier      ports.Notifier
	Logger        *slog.Logger
	RetentionDays int
	BatchLimit    int
}

// Pipeline sequences one full ingestion-and-filtering run: prune, window
// computation, run-state stamping, ingestion, sentiment gate,
// classification.
type Pipeline struct {
	store         ports.ArticleStore
	runState      ports.RunState
	source        ports.ArticleSource
	gate          *SentimentGate
	engine        *Engine
	notifier      ports.Notifier
	logger        *slog.Logger
	retentionDays int
	batchLimit    int
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.RetentionDays <= 0 {
		deps.RetentionDays = defaultRetentionDays
	}
	if deps.BatchLimit <= 0 {
		deps.BatchLimit = defaultBatchLimit
	}
	return &Pipeline{
		store:         deps.Store,
		runState:      deps.RunState,
		source:        deps.Source,
		gate:          deps.Gate,
		engine:        deps.Engine,
		notifier:      deps.Notifier,
		logger:        deps.Logger,
		retentionDays: deps.RetentionDays,
		batchLimit:    deps.BatchLimit,
	}
}

// RunOnce executes a single pipeline run. An ingestion failure degrades
// to an empty page so the gate and the classifier still run against
// whatever the store already holds.
func (p *Pipeline) RunOnce(ctx context.Context) error {
	now := time.Now().UTC()

	pruned, err := p.store.Prune(ctx, now.AddDate(0, 0, -p.retentionDays))
	if err != nil {
		return fmt.Errorf("prune articles: %w", err)
	}
	if pruned > 0 {
		p.info("pruned old articles", "removed", pruned, "retention_days", p.retentionDays)
	}

	lastRun := p.runState.LastRun()
	stored, err := p.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count articles: %w", err)
	}

	firstRun := IsFirstRun(lastRun, stored)
	window := ComputeWindow(firstRun, lastRun, now)
	p.info("computed ingestion window",
		"first_run", firstRun,
		"minutes_back", window.MinutesBack,
		"max_articles", window.MaxArticles)

	// Stamp the run start before ingestion so overlapping triggers see a
	// fresh timestamp. A run that dies partway is re-covered by the next
	// run's window, bounded by the five-minute floor.
	if err := p.runState.SetLastRun(now); err != nil {
		return fmt.Errorf("stamp run state: %w", err)
	}

	if err := p.ingest(ctx, window); err != nil {
		p.warn("ingestion failed, continuing with stored rows", "error", err)
	}

	if p.gate != nil {
		if _, err := p.gate.Run(ctx); err != nil {
			p.warn("sentiment gate failed", "error", err)
		}
	}

	var judgements []Judgement
	if p.engine != nil {
		judgements, err = p.engine.Run(ctx, p.batchLimit)
		if err != nil {
			p.warn("classification failed", "error", err)
		}
	}

	p.notify(ctx, judgements)
	return nil
}

func (p *Pipeline) ingest(ctx context.Context, window domain.FetchWindow) error {
	if p.source == nil {
		return nil
	}

	articles, err := p.source.Fetch(ctx, window)
	if err != nil {
		return fmt.Errorf("fetch articles: %w", err)
	}

	inserted := 0
	for _, article := range articles {
		if err := p.store.UpsertIgnore(ctx, article); err != nil {
			p.warn("persist article failed", "id", article.ID, "error", err)
			continue
		}
		inserted++
	}

	p.info("ingestion done", "fetched", len(articles), "persisted", inserted)
	return nil
}

// notify publishes a digest of rows judged good in this run; disabled
// without a notifier and silent when nothing good was found.
func (p *Pipeline) notify(ctx context.Context, judgements []Judgement) {
	if p.notifier == nil {
		return
	}

	digest := buildDigest(judgements)
	if digest == "" {
		return
	}

	if err := p.notifier.PublishDigest(ctx, digest); err != nil {
		p.warn("publish digest failed", "error", err)
	}
}

func buildDigest(judgements []Judgement) string {
	var formatted string
	for _, j := range judgements {
		if !j.Verdict.IsGood {
			continue
		}
		formatted += fmt.Sprintf("- %s [%s]\n%s\n%s\n\n",
			j.Article.Title,
			j.Verdict.Category,
			j.Verdict.Reason,
			j.Article.URL)
	}
	return formatted
}

func (p *Pipeline) info(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
