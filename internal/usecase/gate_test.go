package usecase

import (
	"context"
	"errors"
	"testing"

	"GoodNewsFeed/internal/domain"
)

func TestSentimentGateScoresAndRejects(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	sunny := seedArticle(t, store, "https://example.com/sunny", "Sunny rescue")
	grim := seedArticle(t, store, "https://example.com/grim", "Grim report")

	scorer := &fakeScorer{scores: []domain.SentimentScore{
		{Label: "positive", Confidence: 0.75},
		{Label: "negative", Confidence: 0.9},
	}}

	gate := NewSentimentGate(store, scorer, DefaultRejectThreshold, nil)
	scored, err := gate.Run(context.Background())
	if err != nil {
		t.Fatalf("run gate: %v", err)
	}
	if scored != 2 {
		t.Fatalf("scored = %d, want 2", scored)
	}
	if len(scorer.texts) != 2 {
		t.Fatalf("scorer received %d texts, want 2", len(scorer.texts))
	}
	if want := sunny.Title + "\n\n" + sunny.Content; scorer.texts[0] != want && scorer.texts[1] != want {
		t.Fatalf("scorer texts %q missing %q", scorer.texts, want)
	}

	rows, err := store.QueryGood(context.Background(), 10, "")
	if err != nil {
		t.Fatalf("query good: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("no rows should be judged good yet, got %d", len(rows))
	}

	unjudged, err := store.SelectUnjudged(context.Background(), 10)
	if err != nil {
		t.Fatalf("select unjudged: %v", err)
	}
	if len(unjudged) != 1 {
		t.Fatalf("unjudged = %d, want 1 (negative row gated out)", len(unjudged))
	}
	if unjudged[0].ID != sunny.ID {
		t.Fatalf("surviving row = %s, want %s", unjudged[0].ID, sunny.ID)
	}
	if unjudged[0].Sentiment == nil || *unjudged[0].Sentiment != 75 {
		t.Fatalf("sentiment = %v, want 75", unjudged[0].Sentiment)
	}
	_ = grim
}

func TestSentimentGateSecondRunIsIdle(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seedArticle(t, store, "https://example.com/one", "One")

	scorer := &fakeScorer{scores: []domain.SentimentScore{{Label: "neutral", Confidence: 0.6}}}
	gate := NewSentimentGate(store, scorer, 0, nil)

	if _, err := gate.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	scorer.texts = nil

	scored, err := gate.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if scored != 0 {
		t.Fatalf("second run scored = %d, want 0", scored)
	}
	if scorer.texts != nil {
		t.Fatalf("scorer should not be called when nothing is unscored")
	}
}

func TestSentimentGateWithoutScorerSkips(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seedArticle(t, store, "https://example.com/x", "X")

	gate := NewSentimentGate(store, nil, 0, nil)
	scored, err := gate.Run(context.Background())
	if err != nil {
		t.Fatalf("run gate: %v", err)
	}
	if scored != 0 {
		t.Fatalf("scored = %d, want 0 when no scorer is wired", scored)
	}
}

func TestSentimentGateScorerFailureAborts(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seedArticle(t, store, "https://example.com/x", "X")

	scorer := &fakeScorer{err: errors.New("inference down")}
	gate := NewSentimentGate(store, scorer, 0, nil)

	if _, err := gate.Run(context.Background()); err == nil {
		t.Fatalf("expected error from failing scorer")
	}

	unscored, err := store.SelectUnscored(context.Background())
	if err != nil {
		t.Fatalf("select unscored: %v", err)
	}
	if len(unscored) != 1 {
		t.Fatalf("row should remain unscored after a failed batch, got %d", len(unscored))
	}
}
