package ports

import (
	"context"
	"time"

	"GoodNewsFeed/internal/domain"
)

// ArticleSource pulls fresh articles from upstream providers for the
// computed look-back window. A failed provider degrades to an empty page.
type ArticleSource interface {
	Fetch(ctx context.Context, window domain.FetchWindow) ([]domain.Article, error)
}

// ArticleStore is the content-addressed persistence layer for articles.
type ArticleStore interface {
	// UpsertIgnore inserts the article; an already-seen id is a no-op.
	UpsertIgnore(ctx context.Context, article domain.Article) error
	// SelectUnscored returns rows the sentiment gate has not seen yet.
	SelectUnscored(ctx context.Context) ([]domain.Article, error)
	// SelectUnjudged returns up to limit rows awaiting classification.
	SelectUnjudged(ctx context.Context, limit int) ([]domain.Article, error)
	// ApplySentiment records the positivity score (0-100); reject also
	// sets is_good=0 in the same statement.
	ApplySentiment(ctx context.Context, id string, score float64, reject bool) error
	// ApplyVerdict records the final judgement. An empty verdict category
	// is stored as NULL.
	ApplyVerdict(ctx context.Context, id string, verdict domain.Verdict) error
	// Prune deletes rows published before the cutoff and reports how many.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
	// QueryGood returns good rows deduplicated by case-insensitive title,
	// newest per title group, ordered by order ("published" or
	// "sentiment") descending, capped at limit.
	QueryGood(ctx context.Context, limit int, order string) ([]domain.Article, error)
	// Count returns the total number of stored rows.
	Count(ctx context.Context) (int64, error)
}

// RunState persists the timestamp stamped at the start of each pipeline
// run. LastRun returns domain.Epoch when no run was ever recorded.
type RunState interface {
	LastRun() time.Time
	SetLastRun(t time.Time) error
}

// SentimentScorer bulk-scores texts through the first-layer model.
type SentimentScorer interface {
	ScoreBatch(ctx context.Context, texts []string) ([]domain.SentimentScore, error)
}

// Classifier is one call against a named classification backend. Quota
// refusals wrap domain.ErrRateLimited.
type Classifier interface {
	Classify(ctx context.Context, model, title, content string) (domain.Verdict, error)
}

// Moderator runs the single-shot safety check for user submissions.
type Moderator interface {
	Moderate(ctx context.Context, title, content string) (domain.Moderation, error)
}

// Notifier publishes run digests to an outbound channel.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
