package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// Category is the classification outcome assigned by the LLM filter.
type Category string

const (
	CategoryCuteOrFun     Category = "cute_or_fun"
	CategoryImprovement   Category = "improvement"
	CategoryHeartwarming  Category = "heartwarming"
	CategoryNone          Category = "none"
	CategoryUserSubmitted Category = "user_submitted"
)

// KnownCategory reports whether the label belongs to the closed set a
// classification backend is allowed to return.
func KnownCategory(c Category) bool {
	switch c {
	case CategoryCuteOrFun, CategoryImprovement, CategoryHeartwarming, CategoryNone:
		return true
	}
	return false
}

// SourceType distinguishes remotely ingested rows from user submissions.
type SourceType string

const (
	SourceRemote        SourceType = "ai_generated"
	SourceUserSubmitted SourceType = "user_submitted"
)

// Article is the unit of work flowing through the pipeline. Sentiment,
// IsGood and Category are nil until the respective stage has run.
type Article struct {
	ID         string
	Title      string
	URL        string
	Content    string
	Published  time.Time
	Sentiment  *float64
	IsGood     *bool
	Category   *Category
	Reason     string
	SourceType SourceType
}

// Verdict is the structured output of the classification stage. An empty
// Category means the row was resolved without a successful judgement.
type Verdict struct {
	IsGood   bool
	Category Category
	Reason   string
}

// Moderation is the outcome of the single-shot safety check applied to
// user-submitted stories.
type Moderation struct {
	Accepted bool
	Reason   string
}

// SentimentScore is one label/confidence pair returned by the bulk scorer.
type SentimentScore struct {
	Label      string
	Confidence float64
}

// Positivity maps a scorer label/confidence pair onto a 0-1 positivity
// scale: positive keeps the confidence, negative inverts it, anything
// else is treated as neutral.
func (s SentimentScore) Positivity() float64 {
	switch s.Label {
	case "positive":
		return s.Confidence
	case "negative":
		return 1 - s.Confidence
	}
	return 0.5
}

// FetchWindow is the look-back window and article cap handed verbatim to
// the ingestion provider.
type FetchWindow struct {
	MinutesBack int
	MaxArticles int
}

// ErrRateLimited marks a backend refusal caused by quota exhaustion.
// Clients wrap it so the classification engine can rotate immediately
// instead of burning local retries.
var ErrRateLimited = errors.New("backend rate limited")

// RemoteArticleID derives the content address of a remotely ingested
// record from its canonical URL.
func RemoteArticleID(url string) string {
	return hashHex(url)
}

// SubmissionID derives the content address of a user-submitted story from
// its title and body.
func SubmissionID(title, content string) string {
	return hashHex(title + "-" + content)
}

func hashHex(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// Epoch is the run-state sentinel meaning "never run".
var Epoch = time.Unix(0, 0).UTC()
