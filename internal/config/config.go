package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// LINE
	LineChannelSecret      string
	LineChannelAccessToken string

	// OpenAI
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	OpenAITimeout   time.Duration
	OpenAIMaxTokens int

	// Cloudinary
	CloudinaryCloudName    string
	CloudinaryUploadPreset string
	CloudinaryTimeout      time.Duration

	// Rate Limit
	RateLimitEstimate int // 推定呼び出しのreq/min/user

	// Server
	ServerPort string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.LineChannelSecret = os.Getenv("LINE_CHANNEL_SECRET")
	if cfg.LineChannelSecret == "" {
		missing = append(missing, "LINE_CHANNEL_SECRET")
	}

	cfg.LineChannelAccessToken = os.Getenv("LINE_CHANNEL_ACCESS_TOKEN")
	if cfg.LineChannelAccessToken == "" {
		missing = append(missing, "LINE_CHANNEL_ACCESS_TOKEN")
	}

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}

	cfg.CloudinaryCloudName = os.Getenv("CLOUDINARY_CLOUD_NAME")
	if cfg.CloudinaryCloudName == "" {
		missing = append(missing, "CLOUDINARY_CLOUD_NAME")
	}

	cfg.CloudinaryUploadPreset = os.Getenv("CLOUDINARY_UPLOAD_PRESET")
	if cfg.CloudinaryUploadPreset == "" {
		missing = append(missing, "CLOUDINARY_UPLOAD_PRESET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.OpenAIBaseURL = getEnvString("OPENAI_BASE_URL", "https://api.openai.com/v1")
	cfg.OpenAIModel = getEnvString("OPENAI_MODEL", "gpt-4o-mini")
	cfg.OpenAITimeout = getEnvDuration("OPENAI_TIMEOUT", 30*time.Second)
	cfg.OpenAIMaxTokens = getEnvInt("OPENAI_MAX_TOKENS", 1000)
	cfg.CloudinaryTimeout = getEnvDuration("CLOUDINARY_TIMEOUT", 30*time.Second)
	cfg.RateLimitEstimate = getEnvInt("RATE_LIMIT_ESTIMATE", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
