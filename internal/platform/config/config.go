// Package config はアプリケーション全体の設定を提供します
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI設定（Embeddings + 応答生成）
	OpenAI OpenAIConfig

	// 翻訳設定
	Translation TranslationConfig

	// 検索設定
	Search SearchConfig

	// 会話設定
	Chat ChatConfig

	// HTTPサーバー設定
	HTTP HTTPConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN は接続文字列を返す
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey             string
	EmbeddingModel     string
	EmbeddingDimension int
	ChatModel          string
}

// TranslationConfig は翻訳設定
// Enabledがfalseの場合、クエリもチャンクも翻訳せずに埋め込む
type TranslationConfig struct {
	Enabled    bool
	SourceLang string
	TargetLang string
}

// SearchConfig は検索の既定値設定
type SearchConfig struct {
	Threshold    float64
	TopK         int
	CacheTTLSecs int
}

// ChatConfig は会話の既定値設定
type ChatConfig struct {
	MaxPromptTokens int
}

// HTTPConfig はHTTPサーバー設定
type HTTPConfig struct {
	Addr string
}

// Load は.envファイルと環境変数から設定を読み込みます
// .envファイルが存在しない場合は環境変数のみで動作する
func Load(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "assist"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "assist"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
			ChatModel:          getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		},
		Translation: TranslationConfig{
			Enabled:    getEnvAsBool("TRANSLATION_ENABLED", false),
			SourceLang: getEnv("TRANSLATION_SOURCE_LANG", "ko"),
			TargetLang: getEnv("TRANSLATION_TARGET_LANG", "en"),
		},
		Search: SearchConfig{
			Threshold:    getEnvAsFloat("SEARCH_THRESHOLD", 0.1),
			TopK:         getEnvAsInt("SEARCH_TOP_K", 5),
			CacheTTLSecs: getEnvAsInt("SEARCH_CACHE_TTL", 3600),
		},
		Chat: ChatConfig{
			MaxPromptTokens: getEnvAsInt("CHAT_MAX_PROMPT_TOKENS", 3000),
		},
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
	}

	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	return cfg, nil
}

// getEnv は環境変数を文字列として取得します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
