package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"GoodNewsFeed/internal/domain"
	"GoodNewsFeed/internal/ports"
)

// submissionReason is stored as the fixed justification for accepted
// user stories.
const submissionReason = "Verified by user submission."

// ErrModeratorUnavailable distinguishes a moderation outage from a
// rejection so the caller can word the two differently.
var ErrModeratorUnavailable = errors.New("moderator unavailable")

// RejectionError carries the moderator's justification for turning a
// submission down.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return "submission rejected: " + e.Reason
}

// Submissions accepts user stories after a single-shot safety check and
// persists them as already-judged good articles.
type Submissions struct {
	store     ports.ArticleStore
	moderator ports.Moderator
	logger    *slog.Logger
}

// NewSubmissions wires the submission path.
func NewSubmissions(store ports.ArticleStore, moderator ports.Moderator, logger *slog.Logger) *Submissions {
	return &Submissions{
		store:     store,
		moderator: moderator,
		logger:    logger,
	}
}

// Submit moderates and stores a user story. It returns a RejectionError
// when the moderator turns the story down, and ErrModeratorUnavailable
// when the check itself could not run.
func (s *Submissions) Submit(ctx context.Context, title, content string) (domain.Article, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return domain.Article{}, fmt.Errorf("both a title and a story are required")
	}

	if s.moderator == nil {
		return domain.Article{}, ErrModeratorUnavailable
	}

	moderation, err := s.moderator.Moderate(ctx, title, content)
	if err != nil {
		s.warn("moderation call failed", "error", err)
		return domain.Article{}, fmt.Errorf("%w: %v", ErrModeratorUnavailable, err)
	}
	if !moderation.Accepted {
		return domain.Article{}, &RejectionError{Reason: moderation.Reason}
	}

	good := true
	category := domain.CategoryUserSubmitted
	article := domain.Article{
		ID:         domain.SubmissionID(title, content),
		Title:      title,
		Content:    content,
		Published:  time.Now().UTC(),
		IsGood:     &good,
		Category:   &category,
		Reason:     submissionReason,
		SourceType: domain.SourceUserSubmitted,
	}

	if err := s.store.UpsertIgnore(ctx, article); err != nil {
		return domain.Article{}, fmt.Errorf("persist submission: %w", err)
	}

	s.info("user submission accepted", "title", title)
	return article, nil
}

func (s *Submissions) info(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Submissions) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
