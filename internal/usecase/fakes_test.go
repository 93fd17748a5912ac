package usecase

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"GoodNewsFeed/internal/domain"
	"GoodNewsFeed/internal/infrastructure/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "articles.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedArticle(t *testing.T, store *storage.SQLiteStore, url, title string) domain.Article {
	t.Helper()

	article := domain.Article{
		ID:         domain.RemoteArticleID(url),
		Title:      title,
		URL:        url,
		Content:    "content of " + title,
		Published:  time.Now().UTC(),
		SourceType: domain.SourceRemote,
	}
	if err := store.UpsertIgnore(context.Background(), article); err != nil {
		t.Fatalf("seed article %s: %v", title, err)
	}
	return article
}

type fakeScorer struct {
	scores []domain.SentimentScore
	err    error
	texts  []string
}

func (f *fakeScorer) ScoreBatch(_ context.Context, texts []string) ([]domain.SentimentScore, error) {
	f.texts = texts
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

type classifyCall struct {
	model string
	title string
}

type fakeClassifier struct {
	mu    sync.Mutex
	calls []classifyCall
	fn    func(model, title string) (domain.Verdict, error)
}

func (f *fakeClassifier) Classify(_ context.Context, model, title, _ string) (domain.Verdict, error) {
	f.mu.Lock()
	f.calls = append(f.calls, classifyCall{model: model, title: title})
	f.mu.Unlock()
	return f.fn(model, title)
}

func (f *fakeClassifier) callsFor(title string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var models []string
	for _, call := range f.calls {
		if call.title == title {
			models = append(models, call.model)
		}
	}
	return models
}

type fakeModerator struct {
	moderation domain.Moderation
	err        error
}

func (f *fakeModerator) Moderate(_ context.Context, _, _ string) (domain.Moderation, error) {
	if f.err != nil {
		return domain.Moderation{}, f.err
	}
	return f.moderation, nil
}

type fakeSource struct {
	articles []domain.Article
	err      error
	window   domain.FetchWindow
}

func (f *fakeSource) Fetch(_ context.Context, window domain.FetchWindow) ([]domain.Article, error) {
	f.window = window
	if f.err != nil {
		return nil, f.err
	}
	return f.articles, nil
}

type fakeRunState struct {
	mu   sync.Mutex
	last time.Time
}

func (f *fakeRunState) LastRun() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last.IsZero() {
		return domain.Epoch
	}
	return f.last
}

func (f *fakeRunState) SetLastRun(t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = t
	return nil
}
