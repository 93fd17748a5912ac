package newsapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"GoodNewsFeed/internal/config"
	"GoodNewsFeed/internal/domain"
	"GoodNewsFeed/internal/source"
)

const (
	// NewsAPI's free tier delivers data with up to a 24-hour delay; both
	// window ends are shifted back so queries actually return results.
	freeTierDelay = 24 * time.Hour

	maxPages        = 5
	attemptsPerPage = 3
)

// Client fetches time-windowed articles from the NewsAPI "everything"
// endpoint with paging and rate-limit-aware retries.
type Client struct {
	http     *resty.Client
	baseURL  string
	apiKey   string
	sources  []string
	pageSize int
	logger   *slog.Logger
}

var _ source.Provider = (*Client)(nil)

// NewClient wires the provider from configuration.
func NewClient(cfg config.NewsAPIConfig, logger *slog.Logger) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	return &Client{
		http:     resty.New().SetTimeout(30 * time.Second),
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		sources:  cfg.Sources,
		pageSize: pageSize,
		logger:   logger,
	}
}

// Name identifies the strategy inside the registry.
func (c *Client) Name() string {
	return "newsapi"
}

type pagePayload struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
		Content     string `json:"content"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Fetch pages through the look-back window until the article cap, the
// page budget, or the end of the result set is reached. A failed page
// ends paging without failing the run.
func (c *Client) Fetch(ctx context.Context, req source.Request) ([]domain.Article, error) {
	if c.apiKey == "" {
		c.warn("NEWS_API_KEY not set, cannot fetch news")
		return nil, nil
	}

	windowEnd := time.Now().UTC().Add(-freeTierDelay)
	windowStart := windowEnd.Add(-time.Duration(req.Window.MinutesBack) * time.Minute)

	limit := req.Window.MaxArticles
	if limit <= 0 {
		limit = c.pageSize
	}
	pages := (limit + c.pageSize - 1) / c.pageSize
	if pages > maxPages {
		pages = maxPages
	}

	params := map[string]string{
		"sources":  strings.Join(c.sources, ","),
		"from":     windowStart.Format("2006-01-02T15:04:05"),
		"to":       windowEnd.Format("2006-01-02T15:04:05"),
		"sortBy":   "publishedAt",
		"language": "en",
		"pageSize": strconv.Itoa(c.pageSize),
		"apiKey":   c.apiKey,
	}

	seen := map[string]struct{}{}
	var parsed []domain.Article
	for page := 1; page <= pages; page++ {
		c.debug("fetching page", "page", page, "pages", pages)

		payload, err := c.fetchPage(ctx, params, page)
		if err != nil {
			c.warn("page fetch failed, stopping paging", "page", page, "error", err)
			break
		}

		for _, raw := range payload.Articles {
			published, err := time.Parse(time.RFC3339, raw.PublishedAt)
			if err != nil {
				// A record without a usable timestamp is skipped, not fatal.
				continue
			}

			content := raw.Description
			if content == "" {
				content = raw.Content
			}

			article := domain.Article{
				ID:         domain.RemoteArticleID(raw.URL),
				Title:      flattenHTML(raw.Title),
				URL:        raw.URL,
				Content:    flattenHTML(content),
				Published:  published.UTC(),
				SourceType: domain.SourceRemote,
			}

			if _, ok := seen[article.ID]; ok {
				continue
			}
			seen[article.ID] = struct{}{}
			parsed = append(parsed, article)
		}

		if len(payload.Articles) < c.pageSize || len(parsed) >= limit {
			break
		}
	}

	c.debug("newsapi fetch done", "articles", len(parsed))
	return parsed, nil
}

func (c *Client) fetchPage(ctx context.Context, params map[string]string, page int) (*pagePayload, error) {
	for attempt := 1; attempt <= attemptsPerPage; attempt++ {
		var payload pagePayload
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetQueryParam("page", strconv.Itoa(page)).
			SetResult(&payload).
			Get(c.baseURL)
		if err != nil {
			return nil, fmt.Errorf("request page %d: %w", page, err)
		}

		if resp.StatusCode() == http.StatusTooManyRequests {
			wait := retryAfter(resp.Header().Get("Retry-After"), attempt)
			c.warn("rate limited, backing off", "page", page, "wait", wait, "attempt", attempt)
			if !sleep(ctx, wait) {
				return nil, ctx.Err()
			}
			continue
		}

		if !resp.IsSuccess() {
			return nil, fmt.Errorf("page %d returned status %d", page, resp.StatusCode())
		}

		if payload.Status != "ok" {
			return nil, fmt.Errorf("page %d returned error: %s", page, payload.Message)
		}

		return &payload, nil
	}

	return nil, fmt.Errorf("page %d still rate limited after %d attempts", page, attemptsPerPage)
}

// retryAfter honours the Retry-After header and falls back to a linearly
// growing delay.
func retryAfter(header string, attempt int) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Duration(attempt) * 2 * time.Second
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// flattenHTML strips markup fragments that some outlets leak into titles
// and descriptions, leaving plain text.
func flattenHTML(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}

func (c *Client) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Client) warn(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
