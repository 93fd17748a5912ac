package source

import (
	"context"
	"log/slog"

	"GoodNewsFeed/internal/config"
	"GoodNewsFeed/internal/domain"
	"GoodNewsFeed/internal/ports"
)

// MultiSource implements ArticleSource via registered provider
// strategies. A provider failure is logged and skipped so one broken
// upstream never empties the whole run.
type MultiSource struct {
	registry  *Registry
	providers []config.ProviderConfig
	logger    *slog.Logger
}

var _ ports.ArticleSource = (*MultiSource)(nil)

// NewMultiSource wires the provider registry with config-selected
// providers.
func NewMultiSource(reg *Registry, providers []config.ProviderConfig, log *slog.Logger) *MultiSource {
	return &MultiSource{
		registry:  reg,
		providers: providers,
		logger:    log,
	}
}

// Fetch hands the window verbatim to every configured provider and
// aggregates the results, deduplicated by content address.
func (s *MultiSource) Fetch(ctx context.Context, window domain.FetchWindow) ([]domain.Article, error) {
	if s.registry == nil {
		return nil, nil
	}

	s.debug("fetch window", "providers", len(s.providers), "minutes_back", window.MinutesBack)

	seen := map[string]struct{}{}
	var aggregated []domain.Article
	for _, cfg := range s.providers {
		provider, err := s.registry.Resolve(cfg.Name)
		if err != nil {
			s.warn("provider unavailable", "provider", cfg.Name, "error", err)
			continue
		}

		results, err := provider.Fetch(ctx, Request{Window: window, Options: cfg.Options})
		if err != nil {
			s.warn("provider fetch failed", "provider", cfg.Name, "error", err)
			continue
		}

		for _, article := range results {
			if _, ok := seen[article.ID]; ok {
				continue
			}
			seen[article.ID] = struct{}{}
			aggregated = append(aggregated, article)
		}
		s.debug("provider produced articles", "provider", cfg.Name, "count", len(results))
	}

	s.debug("source done", "total_articles", len(aggregated))
	return aggregated, nil
}

func (s *MultiSource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *MultiSource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
