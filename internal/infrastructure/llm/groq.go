package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"GoodNewsFeed/internal/config"
	"GoodNewsFeed/internal/domain"
	"GoodNewsFeed/internal/ports"
)

const classificationPrompt = `You are a news classification expert. Your task is to analyze an article and classify it based on the following criteria for "good news".

Classification Guide:
- "cute_or_fun": genuinely lighthearted, amusing, adorable, or delightfully silly items (e.g. an otter playing piano, a harmless viral meme). Generic lifestyle trends, celebrity outfits, brand promo, or listicles that read like ads do not count.
- "improvement": clear, evidence-based progress that benefits society, the planet, or knowledge (e.g. a peer-reviewed medical breakthrough, a major poverty drop, a verified clean-energy milestone). Pure product marketing or one-off luxury launches do not count.
- "heartwarming": authentic acts of kindness, courage, inclusion, or community generosity (e.g. strangers rescue a dog, a huge donation saves a library, the first Deaf pilot licensed). General tips and tricks do not count.
- "none": use this category if the article is neutral, political, tragic, or does not fit any of the above. The is_good_news field must be false if the category is "none".

Respond in valid JSON with exactly these fields:
- is_good_news (boolean)
- category (one of "cute_or_fun", "improvement", "heartwarming", "none")
- reason (a brief justification for the classification)`

const moderationPrompt = `You are a content moderator for a 'Good News' website. Your task is to determine if a user's submission is safe AND a genuinely positive, uplifting news story.
- Set is_safe_and_good to true if the submission is BOTH safe for a general audience and a genuinely positive story. It can be brief. It counts as good as long as it is not a sarcastic comment, a rant, an advertisement, or political complaining.
- Otherwise, set is_safe_and_good to false.
- The reason field should briefly explain your decision, especially if it fails the check.

Respond in valid JSON with exactly these fields:
- is_safe_and_good (boolean)
- reason (string)`

// GroqClient talks to the Groq OpenAI-compatible chat completions API
// for both article classification and submission moderation.
type GroqClient struct {
	http            *resty.Client
	baseURL         string
	apiKey          string
	moderationModel string
}

var _ ports.Classifier = (*GroqClient)(nil)
var _ ports.Moderator = (*GroqClient)(nil)

// NewGroqClient builds a client from configuration.
func NewGroqClient(cfg config.GroqConfig) *GroqClient {
	return &GroqClient{
		http:            resty.New().SetTimeout(60 * time.Second),
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:          cfg.APIKey,
		moderationModel: cfg.ModerationModel,
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Classify asks the named model for a structured verdict. A non-verdict
// response is an error so the engine's retry/fallback applies; quota
// refusals wrap domain.ErrRateLimited.
func (g *GroqClient) Classify(ctx context.Context, model, title, content string) (domain.Verdict, error) {
	raw, err := g.complete(ctx, model, classificationPrompt,
		fmt.Sprintf("Please classify this article:\nTitle: %s\n\nContent: %s", title, content))
	if err != nil {
		return domain.Verdict{}, err
	}

	var payload struct {
		IsGoodNews bool   `json:"is_good_news"`
		Category   string `json:"category"`
		Reason     string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return domain.Verdict{}, fmt.Errorf("malformed verdict: %w", err)
	}

	category := domain.Category(payload.Category)
	if !domain.KnownCategory(category) {
		return domain.Verdict{}, fmt.Errorf("malformed verdict: unknown category %q", payload.Category)
	}

	return domain.Verdict{
		IsGood:   payload.IsGoodNews,
		Category: category,
		Reason:   payload.Reason,
	}, nil
}

// Moderate runs the single-shot safety check for user submissions on the
// dedicated moderation model, with one retry and no backend fallback.
func (g *GroqClient) Moderate(ctx context.Context, title, content string) (domain.Moderation, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		raw, err := g.complete(ctx, g.moderationModel, moderationPrompt,
			fmt.Sprintf("Please moderate this submission:\nTitle: %s\n\nStory: %s", title, content))
		if err != nil {
			lastErr = err
			continue
		}

		var payload struct {
			IsSafeAndGood bool   `json:"is_safe_and_good"`
			Reason        string `json:"reason"`
		}
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			lastErr = fmt.Errorf("malformed moderation response: %w", err)
			continue
		}

		return domain.Moderation{Accepted: payload.IsSafeAndGood, Reason: payload.Reason}, nil
	}

	return domain.Moderation{}, lastErr
}

func (g *GroqClient) complete(ctx context.Context, model, system, user string) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("groq client misconfigured: missing api key")
	}

	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: &respFormat{Type: "json_object"},
	}

	var parsed chatResponse
	resp, err := g.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+g.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&parsed).
		SetError(&parsed).
		Post(g.baseURL + "/chat/completions")
	if err != nil {
		return "", fmt.Errorf("groq request: %w", err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		return "", fmt.Errorf("groq model %s: %w", model, domain.ErrRateLimited)
	}

	if parsed.Error != nil {
		if isRateLimitMessage(parsed.Error.Message) {
			return "", fmt.Errorf("groq model %s: %s: %w", model, parsed.Error.Message, domain.ErrRateLimited)
		}
		return "", fmt.Errorf("groq error: %s", parsed.Error.Message)
	}

	if !resp.IsSuccess() {
		return "", fmt.Errorf("groq returned status %d", resp.StatusCode())
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("groq returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

func isRateLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests")
}
