// Package config は環境変数からアプリケーション設定を読み込みます。
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DB_DRIVER に指定できる値
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

// AUTH_MODE に指定できる値
const (
	AuthRequired = "required"
	AuthOptional = "optional"
	AuthOff      = "off"
)

// Config はプロセス全体の設定です。
type Config struct {
	Port    string
	GinMode string

	DBDriver    string
	DatabaseURL string
	MySQL       MySQLConfig
	MaxConns    int
	Table       string

	SupabaseURL     string
	SupabaseAnonKey string
	JWTSecret       string
	AuthMode        string

	// RequireEmailConfirmed は未確認メールのユーザーを todo ルートから締め出します。
	RequireEmailConfirmed bool

	CORSOrigins     []string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// MySQLConfig は MySQL 接続用の個別設定です。
type MySQLConfig struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

// DSN は MySQL 接続文字列 (DSN) を構築します。
// 例: user:pass@tcp(db:3306)/dbname?parseTime=true
func (m MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", m.User, m.Pass, m.Host, m.Port, m.Name)
}

// Load は .env を読み込んだうえで環境変数から Config を構築します。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env が無くても環境変数だけで動かせる
		slog.Warn("No .env file loaded", "error", err)
	}
	return FromEnv()
}

// FromEnv は現在の環境変数だけから Config を構築します。
func FromEnv() (*Config, error) {
	maxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	requireConfirmed, err := strconv.ParseBool(getEnv("REQUIRE_EMAIL_CONFIRMATION", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUIRE_EMAIL_CONFIRMATION: %w", err)
	}
	shutdown, err := time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "release"),
		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		MySQL: MySQLConfig{
			User: os.Getenv("DB_USER"),
			Pass: os.Getenv("DB_PASS"),
			Host: getEnv("DB_HOST", "localhost"),
			Port: getEnv("DB_PORT", "3306"),
			Name: os.Getenv("DB_NAME"),
		},
		MaxConns:        maxConns,
		Table:           getEnv("DB_TABLE", "tasks"),
		SupabaseURL:     strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseAnonKey: os.Getenv("SUPABASE_ANON_KEY"),
		JWTSecret:       os.Getenv("SUPABASE_JWT_SECRET"),
		AuthMode:        strings.ToLower(getEnv("AUTH_MODE", AuthRequired)),

		RequireEmailConfirmed: requireConfirmed,

		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdown,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は設定の組み合わせを検証します。
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL environment variable not set")
		}
	case DriverMySQL:
		if c.MySQL.User == "" || c.MySQL.Name == "" {
			return errors.New("DB_USER and DB_NAME environment variables must be set for mysql")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.AuthMode {
	case AuthRequired, AuthOptional:
		if c.JWTSecret == "" && (c.SupabaseURL == "" || c.SupabaseAnonKey == "") {
			return errors.New("SUPABASE_JWT_SECRET or SUPABASE_URL and SUPABASE_ANON_KEY must be set when auth is enabled")
		}
	case AuthOff:
	default:
		return fmt.Errorf("unsupported AUTH_MODE %q", c.AuthMode)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
