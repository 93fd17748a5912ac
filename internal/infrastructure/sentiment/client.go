package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"GoodNewsFeed/internal/domain"
	"GoodNewsFeed/internal/ports"
)

// Client talks to an external inference service hosting the sentiment
// model. The service accepts a batch of texts and returns one
// label/confidence pair per text, in order.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.SentimentScorer = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// ScoreBatch posts all texts in one call; partial failure is not modelled
// on this path, the whole batch either scores or errors.
func (c *Client) ScoreBatch(ctx context.Context, texts []string) ([]domain.SentimentScore, error) {
	payload := map[string]any{
		"texts":      texts,
		"truncation": true,
	}

	var resp struct {
		Predictions []struct {
			Label string  `json:"label"`
			Score float64 `json:"score"`
		} `json:"predictions"`
	}

	if err := c.post(ctx, payload, &resp); err != nil {
		return nil, err
	}

	if len(resp.Predictions) != len(texts) {
		return nil, fmt.Errorf("scorer returned %d predictions for %d texts", len(resp.Predictions), len(texts))
	}

	scores := make([]domain.SentimentScore, len(resp.Predictions))
	for i, pred := range resp.Predictions {
		scores[i] = domain.SentimentScore{Label: pred.Label, Confidence: pred.Score}
	}
	return scores, nil
}

func (c *Client) post(ctx context.Context, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
