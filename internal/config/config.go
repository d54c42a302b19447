// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// セッション設定
	SessionSecret string // セッションCookie署名用の秘密鍵
	BcryptCost    int    // パスワードハッシュのコスト

	// サーバー設定
	Port    string // サーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// データベース設定
	DatabaseURL    string // PostgreSQL接続URL（空の場合はインメモリ）
	DBMaxOpenConns int    // 最大オープン接続数

	// アクティビティ記録（Asynq + Redis）
	QueueRedisURL    string // 空の場合は記録しない
	ActivityLimit    int    // ユーザーごとに保持する件数
	ActivityTTLHours int    // 記録の有効期限（時間）

	// ログ設定
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		SessionSecret: getEnv("SESSION_SECRET", ""),
		BcryptCost:    getEnvAsInt("BCRYPT_COST", 12),

		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:8080"),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),

		QueueRedisURL:    getEnv("QUEUE_REDIS_URL", ""),
		ActivityLimit:    getEnvAsInt("ACTIVITY_LIMIT", 10),
		ActivityTTLHours: getEnvAsInt("ACTIVITY_TTL_HOURS", 24*30),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.ActivityLimit <= 0 {
		return fmt.Errorf("ACTIVITY_LIMIT must be positive, got %d", c.ActivityLimit)
	}

	// ローカル開発ではインメモリDBと固定鍵で動かせるようにする
	if c.GinMode == "release" {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 bytes in release mode")
		}
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required in release mode")
		}
	}

	return nil
}

// UseMemoryStore は永続化にインメモリ実装を使うかどうかを返します。
func (c *Config) UseMemoryStore() bool {
	return c.DatabaseURL == ""
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
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
