package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv      = "GOOD_NEWS_CONFIG"
	databasePathEnv    = "DATABASE_PATH"
	newsAPIKeyEnv      = "NEWS_API_KEY"
	groqAPIKeyEnv      = "GROQ_API_KEY"
	sentimentURLEnv    = "SENTIMENT_INFERENCE_URL"
	sentimentAPIKeyEnv = "SENTIMENT_API_KEY"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	serverAddrEnv      = "SERVER_ADDR"
	logLevelEnv        = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Storage       StorageConfig      `yaml:"storage"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Providers     []ProviderConfig   `yaml:"providers"`
	NewsAPI       NewsAPIConfig      `yaml:"newsapi"`
	Sentiment     SentimentConfig    `yaml:"sentiment"`
	Groq          GroqConfig         `yaml:"groq"`
	Notifications NotificationConfig `yaml:"notifications"`
	Server        ServerConfig       `yaml:"server"`
}

// LoggingConfig controls the slog handler level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StorageConfig describes the SQLite file, the run-state file and the
// retention window applied when pruning.
type StorageConfig struct {
	DatabasePath  string `yaml:"databasePath"`
	RunStatePath  string `yaml:"runStatePath"`
	RetentionDays int    `yaml:"retentionDays"`
}

// SchedulerConfig defines how often the trigger fires and how stale the
// last run must be before a new one is scheduled.
type SchedulerConfig struct {
	Interval  Duration `yaml:"interval"`
	Staleness Duration `yaml:"staleness"`
}

// ProviderConfig selects a registered source strategy by name.
type ProviderConfig struct {
	Name    string            `yaml:"name"`
	Options map[string]string `yaml:"options"`
}

// NewsAPIConfig wires the remote article provider.
type NewsAPIConfig struct {
	BaseURL  string   `yaml:"baseUrl"`
	APIKey   string   `yaml:"apiKey"`
	Sources  []string `yaml:"sources"`
	PageSize int      `yaml:"pageSize"`
}

// SentimentConfig describes the first-layer inference service and the
// negativity threshold above which rows are gated out.
type SentimentConfig struct {
	InferenceURL    string  `yaml:"inferenceUrl"`
	APIKey          string  `yaml:"apiKey"`
	RejectThreshold float64 `yaml:"rejectThreshold"`
}

// GroqConfig defines the classification backend pool and its limits.
type GroqConfig struct {
	BaseURL         string   `yaml:"baseUrl"`
	APIKey          string   `yaml:"apiKey"`
	Models          []string `yaml:"models"`
	ModerationModel string   `yaml:"moderationModel"`
	MaxAttempts     int      `yaml:"maxAttempts"`
	Concurrency     int      `yaml:"concurrency"`
	BatchLimit      int      `yaml:"batchLimit"`
	Pacing          Duration `yaml:"pacing"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send digests.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads .env, YAML configuration (if present) and applies
// environment overrides on top of defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Providers) == 0 {
		cfg.Providers = defaultConfig().Providers
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Storage.DatabasePath = v
	}
	if v := os.Getenv(newsAPIKeyEnv); v != "" {
		c.NewsAPI.APIKey = v
	}
	if v := os.Getenv(groqAPIKeyEnv); v != "" {
		c.Groq.APIKey = v
	}
	if v := os.Getenv(sentimentURLEnv); v != "" {
		c.Sentiment.InferenceURL = v
	}
	if v := os.Getenv(sentimentAPIKeyEnv); v != "" {
		c.Sentiment.APIKey = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv(serverAddrEnv); v != "" {
		c.Server.Addr = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Storage.DatabasePath != "" {
		base.Storage.DatabasePath = override.Storage.DatabasePath
	}
	if override.Storage.RunStatePath != "" {
		base.Storage.RunStatePath = override.Storage.RunStatePath
	}
	if override.Storage.RetentionDays > 0 {
		base.Storage.RetentionDays = override.Storage.RetentionDays
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Staleness > 0 {
		base.Scheduler.Staleness = override.Scheduler.Staleness
	}

	if override.NewsAPI.BaseURL != "" {
		base.NewsAPI.BaseURL = override.NewsAPI.BaseURL
	}
	if override.NewsAPI.APIKey != "" {
		base.NewsAPI.APIKey = override.NewsAPI.APIKey
	}
	if len(override.NewsAPI.Sources) > 0 {
		base.NewsAPI.Sources = override.NewsAPI.Sources
	}
	if override.NewsAPI.PageSize > 0 {
		base.NewsAPI.PageSize = override.NewsAPI.PageSize
	}

	if override.Sentiment.InferenceURL != "" {
		base.Sentiment.InferenceURL = override.Sentiment.InferenceURL
	}
	if override.Sentiment.APIKey != "" {
		base.Sentiment.APIKey = override.Sentiment.APIKey
	}
	if override.Sentiment.RejectThreshold > 0 {
		base.Sentiment.RejectThreshold = override.Sentiment.RejectThreshold
	}

	if override.Groq.BaseURL != "" {
		base.Groq.BaseURL = override.Groq.BaseURL
	}
	if override.Groq.APIKey != "" {
		base.Groq.APIKey = override.Groq.APIKey
	}
	if len(override.Groq.Models) > 0 {
		base.Groq.Models = override.Groq.Models
	}
	if override.Groq.ModerationModel != "" {
		base.Groq.ModerationModel = override.Groq.ModerationModel
	}
	if override.Groq.MaxAttempts > 0 {
		base.Groq.MaxAttempts = override.Groq.MaxAttempts
	}
	if override.Groq.Concurrency > 0 {
		base.Groq.Concurrency = override.Groq.Concurrency
	}
	if override.Groq.BatchLimit > 0 {
		base.Groq.BatchLimit = override.Groq.BatchLimit
	}
	if override.Groq.Pacing > 0 {
		base.Groq.Pacing = override.Groq.Pacing
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}

	if len(override.Providers) > 0 {
		base.Providers = override.Providers
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Storage: StorageConfig{
			DatabasePath:  "storage/articles.db",
			RunStatePath:  "storage/last_run.txt",
			RetentionDays: 7,
		},
		Scheduler: SchedulerConfig{
			Interval:  Duration(time.Minute),
			Staleness: Duration(15 * time.Minute),
		},
		Providers: []ProviderConfig{{Name: "newsapi"}},
		NewsAPI: NewsAPIConfig{
			BaseURL:  "https://newsapi.org/v2/everything",
			PageSize: 100,
			Sources:  defaultNewsSources(),
		},
		Sentiment: SentimentConfig{
			InferenceURL:    "",
			RejectThreshold: 0.7,
		},
		Groq: GroqConfig{
			BaseURL:         "https://api.groq.com/openai/v1",
			Models:          []string{"llama3-70b-8192", "llama-3.1-8b-instant", "gemma2-9b-it"},
			ModerationModel: "llama3-8b-8192",
			MaxAttempts:     3,
			Concurrency:     3,
			BatchLimit:      20,
			Pacing:          Duration(400 * time.Millisecond),
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// defaultNewsSources is a curated list of major, reputable NewsAPI source
// IDs with frequent human-interest coverage.
func defaultNewsSources() []string {
	return []string{
		"bbc-news",
		"abc-news",
		"associated-press",
		"reuters",
		"usa-today",
		"time",
		"national-geographic",
		"new-scientist",
		"techcrunch",
		"wired",
		"bloomberg",
		"axios",
		"espn",
		"nbc-news",
		"cbs-news",
		"independent",
		"newsweek",
		"abc-news-au",
	}
}
