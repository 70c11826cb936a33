package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Provider selects which LLM backend generates content.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderGroq   Provider = "groq"
)

// Config holds the configuration for the application.
type Config struct {
	GeminiAPIKey string
	GeminiModel  string
	GroqAPIKey   string
	Provider     Provider

	DatabasePath string
	LLMTimeout   time.Duration

	// Telegram Config (optional for the CLI, required for the bot)
	TelegramBotToken    string
	TelegramWebhookURL  string
	TelegramAllowUserID int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	if geminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	geminiModel := os.Getenv("GEMINI_MODEL")
	if geminiModel == "" {
		geminiModel = "gemini-2.5-flash"
	}

	groqAPIKey := os.Getenv("GROQ_API_KEY")

	provider := Provider(os.Getenv("LLM_PROVIDER"))
	switch provider {
	case "":
		provider = ProviderGemini
	case ProviderGemini:
	case ProviderGroq:
		if groqAPIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY environment variable not set but LLM_PROVIDER=groq")
		}
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q (use gemini or groq)", provider)
	}

	databasePath := os.Getenv("DATABASE_PATH")
	if databasePath == "" {
		databasePath = "data/recetario.db"
	}

	llmTimeout := 60 * time.Second
	if raw := os.Getenv("LLM_TIMEOUT_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("invalid LLM_TIMEOUT_SECONDS %q", raw)
		}
		llmTimeout = time.Duration(seconds) * time.Second
	}

	var telegramAllowUserID int64
	if raw := os.Getenv("TELEGRAM_ALLOW_USER_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOW_USER_ID %q", raw)
		}
		telegramAllowUserID = id
	}

	return &Config{
		GeminiAPIKey:        geminiAPIKey,
		GeminiModel:         geminiModel,
		GroqAPIKey:          groqAPIKey,
		Provider:            provider,
		DatabasePath:        databasePath,
		LLMTimeout:          llmTimeout,
		TelegramBotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:  os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowUserID: telegramAllowUserID,
	}, nil
}
