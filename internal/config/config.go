package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by TENET_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("TENET_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

// LLMProvider returns the configured Governor LLM provider.
// Defaults to "anthropic" if not set.
// Valid values: openai, anthropic, mock
func LLMProvider() string {
	p := os.Getenv("LLM_PROVIDER")
	if p == "" {
		return "anthropic"
	}
	return p
}

// EmbeddingProvider returns the configured embedding provider.
// Defaults to "openai" if not set.
// Valid values: openai, mock
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// LLMAPIKey returns the API key for the configured LLM provider.
func LLMAPIKey() string {
	switch LLMProvider() {
	case "openai":
		return OpenAIAPIKey()
	case "mock":
		return ""
	default:
		return AnthropicAPIKey()
	}
}

// EmbeddingAPIKey returns the API key for the configured embedding provider.
func EmbeddingAPIKey() string {
	switch EmbeddingProvider() {
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// GovernorMaxTokens caps the Governor's completion size.
// Defaults to 1024 if not set.
func GovernorMaxTokens() int {
	n, err := strconv.Atoi(os.Getenv("GOVERNOR_MAX_TOKENS"))
	if err != nil || n <= 0 {
		return 1024
	}
	return n
}

// AutoLinkMinWeight is the minimum suggestion weight persisted as a belief
// edge when auto-linking. Defaults to 0.5 if not set.
func AutoLinkMinWeight() float64 {
	w, err := strconv.ParseFloat(os.Getenv("AUTO_LINK_MIN_WEIGHT"), 64)
	if err != nil || w <= 0 || w > 1 {
		return 0.5
	}
	return w
}

// ModerationMinLength is the minimum content length before a draft is
// blocked. Defaults to 10 if not set.
func ModerationMinLength() int {
	n, err := strconv.Atoi(os.Getenv("MODERATION_MIN_LENGTH"))
	if err != nil || n <= 0 {
		return 10
	}
	return n
}

// ModerationMaxLength is the maximum content length before a draft is
// blocked. Defaults to 10000 if not set.
func ModerationMaxLength() int {
	n, err := strconv.Atoi(os.Getenv("MODERATION_MAX_LENGTH"))
	if err != nil || n <= 0 {
		return 10000
	}
	return n
}

// ModerationBannedKeywords is the comma-separated banned keyword list.
func ModerationBannedKeywords() []string {
	raw := os.Getenv("MODERATION_BANNED_KEYWORDS")
	if raw == "" {
		return nil
	}
	var keywords []string
	for _, kw := range strings.Split(raw, ",") {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

// MigrationsPath returns the directory holding SQL migrations.
func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
