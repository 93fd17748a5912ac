package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"GoodNewsFeed/internal/domain"
	"GoodNewsFeed/internal/ports"
	"GoodNewsFeed/internal/usecase"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Server is the thin JSON layer over the store and the submission path.
type Server struct {
	store       ports.ArticleStore
	submissions *usecase.Submissions
	logger      *slog.Logger
}

// NewServer wires handlers; rendering proper lives with the client.
func NewServer(store ports.ArticleStore, submissions *usecase.Submissions, logger *slog.Logger) *Server {
	return &Server{
		store:       store,
		submissions: submissions,
		logger:      logger,
	}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/api/good-news", s.handleGoodNews)
	r.Post("/api/submissions", s.handleSubmission)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}

type articleResponse struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	URL        string   `json:"url,omitempty"`
	Content    string   `json:"content"`
	Published  string   `json:"published"`
	Sentiment  *float64 `json:"sentiment,omitempty"`
	Category   string   `json:"category,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	SourceType string   `json:"source_type"`
}

func (s *Server) handleGoodNews(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxListLimit {
			s.writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	sort := r.URL.Query().Get("sort")
	if sort == "" {
		sort = "published"
	}
	if sort != "published" && sort != "sentiment" {
		s.writeError(w, http.StatusBadRequest, "sort must be published or sentiment")
		return
	}

	articles, err := s.store.QueryGood(r.Context(), limit, sort)
	if err != nil {
		s.error("query good news failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "could not load articles")
		return
	}

	payload := make([]articleResponse, 0, len(articles))
	for _, article := range articles {
		payload = append(payload, toResponse(article))
	}
	s.writeJSON(w, http.StatusOK, payload)
}

type submissionRequest struct {
	Title string `json:"title"`
	Story string `json:"story"`
}

func (s *Server) handleSubmission(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	article, err := s.submissions.Submit(r.Context(), req.Title, req.Story)
	if err != nil {
		var rejection *usecase.RejectionError
		switch {
		case errors.As(err, &rejection):
			s.writeError(w, http.StatusUnprocessableEntity, "Submission rejected: "+rejection.Reason)
		case errors.Is(err, usecase.ErrModeratorUnavailable):
			s.writeError(w, http.StatusServiceUnavailable,
				"The moderator is currently unavailable. Please try again later.")
		default:
			s.writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	s.writeJSON(w, http.StatusCreated, toResponse(article))
}

func toResponse(article domain.Article) articleResponse {
	resp := articleResponse{
		ID:         article.ID,
		Title:      article.Title,
		URL:        article.URL,
		Content:    article.Content,
		Published:  article.Published.UTC().Format(time.RFC3339),
		Sentiment:  article.Sentiment,
		Reason:     article.Reason,
		SourceType: string(article.SourceType),
	}
	if article.Category != nil {
		resp.Category = string(*article.Category)
	}
	return resp
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.error("encode response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) error(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
