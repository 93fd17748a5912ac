package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"GoodNewsFeed/internal/ports"
)

// DefaultRejectThreshold disqualifies rows whose negativity exceeds it.
const DefaultRejectThreshold = 0.7

// SentimentGate bulk-scores unscored rows and early-rejects strongly
// negative ones before the costlier classification stage runs.
type SentimentGate struct {
	store     ports.ArticleStore
	scorer    ports.SentimentScorer
	threshold float64
	logger    *slog.Logger
}

// NewSentimentGate wires the gate; a threshold <= 0 falls back to the
// default.
func NewSentimentGate(store ports.ArticleStore, scorer ports.SentimentScorer, threshold float64, logger *slog.Logger) *SentimentGate {
	if threshold <= 0 {
		threshold = DefaultRejectThreshold
	}
	return &SentimentGate{
		store:     store,
		scorer:    scorer,
		threshold: threshold,
		logger:    logger,
	}
}

// Run scores every row with a null sentiment. Rows whose negativity
// exceeds the threshold are marked not good in the same write, so the
// gate is one-way: a rejected row never reaches the classifier.
func (g *SentimentGate) Run(ctx context.Context) (int, error) {
	if g.scorer == nil {
		g.warn("sentiment scorer not configured, gate skipped")
		return 0, nil
	}

	articles, err := g.store.SelectUnscored(ctx)
	if err != nil {
		return 0, fmt.Errorf("load unscored: %w", err)
	}
	if len(articles) == 0 {
		return 0, nil
	}

	texts := make([]string, len(articles))
	for i, article := range articles {
		texts[i] = article.Title + "\n\n" + article.Content
	}

	scores, err := g.scorer.ScoreBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("score batch: %w", err)
	}
	if len(scores) != len(articles) {
		return 0, fmt.Errorf("scorer returned %d scores for %d texts", len(scores), len(articles))
	}

	rejected := 0
	for i, article := range articles {
		positivity := scores[i].Positivity()
		negativity := 1 - positivity
		reject := negativity > g.threshold
		if reject {
			rejected++
		}

		if err := g.store.ApplySentiment(ctx, article.ID, positivity*100, reject); err != nil {
			return 0, fmt.Errorf("apply sentiment %s: %w", article.ID, err)
		}
		g.debug("scored article", "title", article.Title, "negativity", negativity, "rejected", reject)
	}

	g.info("sentiment gate done", "scored", len(articles), "rejected", rejected)
	return len(articles), nil
}

func (g *SentimentGate) debug(msg string, args ...interface{}) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}

func (g *SentimentGate) info(msg string, args ...interface{}) {
	if g.logger != nil {
		g.logger.Info(msg, args...)
	}
}

func (g *SentimentGate) warn(msg string, args ...interface{}) {
	if g.logger != nil {
		g.logger.Warn(msg, args...)
	}
}
