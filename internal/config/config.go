// Package config は環境変数ベースの設定読み込みを提供する。
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

	// Auth
	JWTSecret     string
	SessionMaxAge int // セッション有効期間（秒）

	// Seed
	AdminEmail    string
	AdminPassword string

	// Upload
	UploadDir     string
	UploadBaseURL string // ファイルリレー先の内部アップロードAPIのベースURL
	UploadMaxSize int64  // 1ファイルあたりの最大バイト数

	// Rate Limit
	RateLimitGeneral int // 管理API全般（req/min/user）
	RateLimitSubmit  int // 公開応募エンドポイント（req/min/IP）

	// Cleanup
	CleanupInterval      time.Duration
	SessionRetentionDays int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
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

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 28800) // 8時間
	cfg.AdminEmail = getEnvString("ADMIN_EMAIL", "admin@demo.com")
	cfg.AdminPassword = getEnvString("ADMIN_PASSWORD", "admin123")
	cfg.UploadDir = getEnvString("UPLOAD_DIR", "./uploads")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.UploadBaseURL = getEnvString("UPLOAD_BASE_URL", "http://localhost:"+cfg.ServerPort)
	cfg.UploadMaxSize = getEnvInt64("UPLOAD_MAX_SIZE", 10*1024*1024)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSubmit = getEnvInt("RATE_LIMIT_SUBMIT", 10)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", time.Hour)
	cfg.SessionRetentionDays = getEnvInt("SESSION_RETENTION_DAYS", 90)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

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

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
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
