package config

import (
	"os"
	"strconv"
	"strings"
)

// Config carries every tunable the service reads from the environment.
type Config struct {
	Env  string
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	EmbeddingURL     string
	EmbeddingAPIKey  string
	EmbeddingModel   string
	EmbedBatchSize   int
	EmbedMaxBatch    int
	EmbedRateLimit   float64
	EmbedTimeoutSecs int

	GenerationURL     string
	GenerationAPIKey  string
	GenerationModel   string
	GenTimeoutSecs    int

	ChunkSize    int
	ChunkOverlap int

	RetrieveLimit   int
	AnswerMaxChunks int
	AnswerMaxTokens int

	CacheSize    int
	CacheTTLMins int

	UploadDir string
}

// Load reads the configuration from environment variables, falling back to
// development defaults.
func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "ragdocs"),
		DBPassword: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "ragdocs"),
		DBName:     getEnv("DB_NAME", "ragdocs"),

		EmbeddingURL:     getEnv("EMBEDDING_URL", "https://api.openai.com"),
		EmbeddingAPIKey:  getSecret("OPENAI_API_KEY", "OPENAI_API_KEY_FILE", ""),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "text-embedding-3-large"),
		EmbedBatchSize:   getEnvInt("EMBED_BATCH_SIZE", 50),
		EmbedMaxBatch:    getEnvInt("EMBED_MAX_BATCH", 100),
		EmbedRateLimit:   getEnvFloat("EMBED_RATE_LIMIT", 2),
		EmbedTimeoutSecs: getEnvInt("EMBED_TIMEOUT_SECS", 60),

		GenerationURL:    getEnv("GENERATION_URL", "https://api.anthropic.com"),
		GenerationAPIKey: getSecret("ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY_FILE", ""),
		GenerationModel:  getEnv("GENERATION_MODEL", "claude-3-haiku-20240307"),
		GenTimeoutSecs:   getEnvInt("GENERATION_TIMEOUT_SECS", 120),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),

		RetrieveLimit:   getEnvInt("RETRIEVE_LIMIT", 15),
		AnswerMaxChunks: getEnvInt("ANSWER_MAX_CHUNKS", 5),
		AnswerMaxTokens: getEnvInt("ANSWER_MAX_TOKENS", 1000),

		CacheSize:    getEnvInt("ANSWER_CACHE_SIZE", 0),
		CacheTTLMins: getEnvInt("ANSWER_CACHE_TTL_MINS", 10),

		UploadDir: getEnv("UPLOAD_DIR", "uploads"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getSecret reads the value directly from the environment, or from the file
// a *_FILE variable points at, in that order.
func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
