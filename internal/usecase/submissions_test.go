package usecase

import (
	"context"
	"errors"
	"testing"

	"GoodNewsFeed/internal/domain"
)

func TestSubmitAcceptedStory(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	moderator := &fakeModerator{moderation: domain.Moderation{Accepted: true}}
	submissions := NewSubmissions(store, moderator, nil)

	article, err := submissions.Submit(context.Background(), "  Neighbour fixed my fence  ", "They just showed up with tools.")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if article.Title != "Neighbour fixed my fence" {
		t.Fatalf("title = %q, want trimmed title", article.Title)
	}
	if article.ID != domain.SubmissionID(article.Title, article.Content) {
		t.Fatalf("id is not content-addressed")
	}
	if article.SourceType != domain.SourceUserSubmitted {
		t.Fatalf("source type = %q", article.SourceType)
	}

	good, err := store.QueryGood(context.Background(), 10, "")
	if err != nil {
		t.Fatalf("query good: %v", err)
	}
	if len(good) != 1 {
		t.Fatalf("good rows = %d, want 1", len(good))
	}
	row := good[0]
	if row.IsGood == nil || !*row.IsGood {
		t.Fatalf("stored submission must already be good")
	}
	if row.Category == nil || *row.Category != domain.CategoryUserSubmitted {
		t.Fatalf("category = %v, want user_submitted", row.Category)
	}
	if row.Reason != "Verified by user submission." {
		t.Fatalf("reason = %q", row.Reason)
	}

	unjudged, err := store.SelectUnjudged(context.Background(), 10)
	if err != nil {
		t.Fatalf("select unjudged: %v", err)
	}
	if len(unjudged) != 0 {
		t.Fatalf("submissions must bypass the classification queue")
	}
}

func TestSubmitRejectedStory(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	moderator := &fakeModerator{moderation: domain.Moderation{Accepted: false, Reason: "Contains personal attacks."}}
	submissions := NewSubmissions(store, moderator, nil)

	_, err := submissions.Submit(context.Background(), "Rant", "Everyone is terrible.")
	var rejection *RejectionError
	if !errors.As(err, &rejection) {
		t.Fatalf("err = %v, want RejectionError", err)
	}
	if rejection.Reason != "Contains personal attacks." {
		t.Fatalf("reason = %q", rejection.Reason)
	}

	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected story must not be stored")
	}
}

func TestSubmitModeratorOutage(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	moderator := &fakeModerator{err: errors.New("groq timeout")}
	submissions := NewSubmissions(store, moderator, nil)

	_, err := submissions.Submit(context.Background(), "Title", "Story")
	if !errors.Is(err, ErrModeratorUnavailable) {
		t.Fatalf("err = %v, want ErrModeratorUnavailable", err)
	}
}

func TestSubmitWithoutModerator(t *testing.T) {
	t.Parallel()

	submissions := NewSubmissions(newTestStore(t), nil, nil)
	if _, err := submissions.Submit(context.Background(), "Title", "Story"); !errors.Is(err, ErrModeratorUnavailable) {
		t.Fatalf("err = %v, want ErrModeratorUnavailable", err)
	}
}

func TestSubmitRequiresTitleAndStory(t *testing.T) {
	t.Parallel()

	submissions := NewSubmissions(newTestStore(t), &fakeModerator{moderation: domain.Moderation{Accepted: true}}, nil)
	if _, err := submissions.Submit(context.Background(), "Title", "   "); err == nil {
		t.Fatalf("empty story must be refused before moderation")
	}
	if _, err := submissions.Submit(context.Background(), "", "Story"); err == nil {
		t.Fatalf("empty title must be refused before moderation")
	}
}
