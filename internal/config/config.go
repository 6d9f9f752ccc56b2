package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken     string          `yaml:"discord_token"`
	LogLevel         string          `yaml:"log_level"`
	Language         string          `yaml:"language"`
	MessageCacheSize int             `yaml:"message_cache_size"`
	Storage          StorageConfig   `yaml:"storage"`
	Cache            CacheConfig     `yaml:"cache"`
	Sanitizer        SanitizerConfig `yaml:"sanitizer"`
	Evaluator        EvaluatorConfig `yaml:"evaluator"`
	Defaults         SetupDefaults   `yaml:"defaults"`
	Audit            AuditConfig     `yaml:"audit"`
	Health           HealthConfig    `yaml:"health"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"`
	Dir         string `yaml:"dir"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresURL string `yaml:"postgres_url"`
	RedisURL    string `yaml:"redis_url"`
}

type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

type SanitizerConfig struct {
	MaxLength    int  `yaml:"max_length"`
	MaxSegments  int  `yaml:"max_segments"`
	RejectMarkup bool `yaml:"reject_markup"`
}

type EvaluatorConfig struct {
	URL            string          `yaml:"url"`
	TimeoutSeconds int             `yaml:"timeout_seconds"`
	UserAgent      string          `yaml:"user_agent"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	Requests      int `yaml:"requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

type SetupDefaults struct {
	TimeoutMinutes int    `yaml:"timeout_minutes"`
	Emoji          string `yaml:"emoji"`
}

type AuditConfig struct {
	ChannelID string `yaml:"channel_id"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

func DefaultConfig() Config {
	return Config{
		LogLevel:         "info",
		Language:         "fr",
		MessageCacheSize: 200,
		Storage: StorageConfig{
			Backend:    BackendFile,
			Dir:        "guilds",
			SQLitePath: "counter.db",
		},
		Cache:     CacheConfig{TTLSeconds: 30},
		Sanitizer: SanitizerConfig{MaxLength: 1000, MaxSegments: 100},
		Evaluator: EvaluatorConfig{
			TimeoutSeconds: 5,
			UserAgent:      "counter-bot/1.0.0",
			RateLimit:      RateLimitConfig{Requests: 30, WindowSeconds: 10},
		},
		Defaults: SetupDefaults{TimeoutMinutes: 5, Emoji: "✅"},
		Health:   HealthConfig{Enabled: false, Addr: ":8080"},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is required")
	}
	c.Storage.Backend = normalizeBackend(c.Storage.Backend)
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Dir == "" {
			return errors.New("storage.dir is required for the file backend")
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("storage.sqlite_path is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Storage.PostgresURL == "" {
			return errors.New("storage.postgres_url is required for the postgres backend")
		}
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("storage.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Cache.TTLSeconds < 0 {
		c.Cache.TTLSeconds = 0
	}
	if c.Sanitizer.MaxLength <= 0 {
		c.Sanitizer.MaxLength = 1000
	}
	if c.Sanitizer.MaxSegments <= 0 {
		c.Sanitizer.MaxSegments = 100
	}
	if c.Evaluator.TimeoutSeconds <= 0 {
		c.Evaluator.TimeoutSeconds = 5
	}
	if c.Defaults.TimeoutMinutes < 0 || c.Defaults.TimeoutMinutes > 1440 {
		c.Defaults.TimeoutMinutes = 5
	}
	if strings.TrimSpace(c.Defaults.Emoji) == "" {
		c.Defaults.Emoji = "✅"
	}
	c.Language = normalizeLanguage(c.Language)
	return nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.Language = envString("LANGUAGE", cfg.Language)
	cfg.MessageCacheSize = envInt("MESSAGE_CACHE_SIZE", cfg.MessageCacheSize)
	cfg.Storage.Backend = envString("STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.Dir = envString("GUILDS_DIR", cfg.Storage.Dir)
	cfg.Storage.SQLitePath = envString("SQLITE_PATH", cfg.Storage.SQLitePath)
	cfg.Storage.PostgresURL = envString("DATABASE_URL", cfg.Storage.PostgresURL)
	cfg.Storage.RedisURL = envString("REDIS_URL", cfg.Storage.RedisURL)
	cfg.Cache.TTLSeconds = envInt("CACHE_TTL_SECONDS", cfg.Cache.TTLSeconds)
	cfg.Sanitizer.MaxLength = envInt("SANITIZER_MAX_LENGTH", cfg.Sanitizer.MaxLength)
	cfg.Sanitizer.MaxSegments = envInt("SANITIZER_MAX_SEGMENTS", cfg.Sanitizer.MaxSegments)
	cfg.Sanitizer.RejectMarkup = envBool("SANITIZER_REJECT_MARKUP", cfg.Sanitizer.RejectMarkup)
	cfg.Evaluator.URL = envString("MATHEVAL_URL", cfg.Evaluator.URL)
	cfg.Evaluator.TimeoutSeconds = envInt("MATHEVAL_TIMEOUT_SECONDS", cfg.Evaluator.TimeoutSeconds)
	cfg.Evaluator.RateLimit.Requests = envInt("MATHEVAL_RATE_REQUESTS", cfg.Evaluator.RateLimit.Requests)
	cfg.Evaluator.RateLimit.WindowSeconds = envInt("MATHEVAL_RATE_WINDOW_SECONDS", cfg.Evaluator.RateLimit.WindowSeconds)
	cfg.Defaults.TimeoutMinutes = envInt("DEFAULT_TIMEOUT_MINUTES", cfg.Defaults.TimeoutMinutes)
	cfg.Defaults.Emoji = envString("DEFAULT_EMOJI", cfg.Defaults.Emoji)
	cfg.Audit.ChannelID = envString("AUDIT_CHANNEL_ID", cfg.Audit.ChannelID)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))
	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func normalizeBackend(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "", "files", "text":
		return BackendFile
	case "sqlite3":
		return BackendSQLite
	case "pg", "postgresql":
		return BackendPostgres
	default:
		return value
	}
}

func normalizeLanguage(value string) string {
	switch strings.ToLower(value) {
	case "en":
		return "en"
	default:
		return "fr"
	}
}
