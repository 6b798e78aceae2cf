package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"
)

// Config holds the full engine configuration.
type Config struct {
	ServerConfig   ServerConfig   `json:"server"`
	EngineConfig   EngineConfig   `json:"engine"`
	BotConfig      BotConfig      `json:"bot"`
	FeedConfig     FeedConfig     `json:"feed"`
	RiskConfig     RiskConfig     `json:"risk"`
	DatabaseConfig DatabaseConfig `json:"database"`
	RedisConfig    RedisConfig    `json:"redis"`
	LoggingConfig  LoggingConfig  `json:"logging"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// EngineConfig controls the tick loop and snapshot retention.
type EngineConfig struct {
	TickInterval    time.Duration `json:"tick_interval"`
	HistoryCapacity int           `json:"history_capacity"` // price points retained per asset
	ValueSeriesCap  int           `json:"value_series_cap"` // portfolio value points retained
	UserID          string        `json:"user_id"`          // allocation owner for single-tenant deployments
	DryRun          bool          `json:"dry_run"`          // in-memory stores, no Postgres/Redis
}

type BotConfig struct {
	Mode            string        `json:"mode"` // OFF, CONSERVATIVE, BALANCED, AGGRESSIVE, PROPHET
	TickMinInterval time.Duration `json:"tick_min_interval"`
	MaxCandidates   int           `json:"max_candidates"` // signals considered per tick
}

type FeedConfig struct {
	Source string `json:"source"` // "synthetic" is the only built-in source
	Seed   int64  `json:"seed"`   // 0 means time-seeded
}

type RiskConfig struct {
	RiskFreeRatePct float64 `json:"risk_free_rate_pct"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

type LoggingConfig struct {
	Level   string `json:"level"`   // debug, info, warn, error
	Console bool   `json:"console"` // human-readable output instead of JSON
}

// Load reads config.json if present, then applies environment overrides.
// Environment variables always win.
func Load() (*Config, error) {
	cfg, err := loadFromFile("config.json")
	if err != nil {
		cfg = defaults()
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		ServerConfig: ServerConfig{Host: "0.0.0.0", Port: 8080},
		EngineConfig: EngineConfig{
			TickInterval:    15 * time.Second,
			HistoryCapacity: 2016, // 7 days at 5-minute cadence
			ValueSeriesCap:  365,
			UserID:          "default",
			DryRun:          true,
		},
		BotConfig: BotConfig{
			Mode:            "OFF",
			TickMinInterval: 15 * time.Second,
			MaxCandidates:   2,
		},
		FeedConfig: FeedConfig{Source: "synthetic"},
		RiskConfig: RiskConfig{RiskFreeRatePct: 5},
		DatabaseConfig: DatabaseConfig{
			Host: "localhost", Port: 5432, User: "postgres",
			Database: "energy_trading", SSLMode: "disable",
		},
		RedisConfig:   RedisConfig{Address: "localhost:6379", PoolSize: 10},
		LoggingConfig: LoggingConfig{Level: "info"},
	}
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.ServerConfig.Host = getEnvOrDefault("SERVER_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.Port = getEnvIntOrDefault("SERVER_PORT", cfg.ServerConfig.Port)

	cfg.EngineConfig.TickInterval = getEnvDurationOrDefault("ENGINE_TICK_INTERVAL", cfg.EngineConfig.TickInterval)
	cfg.EngineConfig.HistoryCapacity = getEnvIntOrDefault("ENGINE_HISTORY_CAPACITY", cfg.EngineConfig.HistoryCapacity)
	cfg.EngineConfig.ValueSeriesCap = getEnvIntOrDefault("ENGINE_VALUE_SERIES_CAP", cfg.EngineConfig.ValueSeriesCap)
	cfg.EngineConfig.UserID = getEnvOrDefault("ENGINE_USER_ID", cfg.EngineConfig.UserID)
	cfg.EngineConfig.DryRun = getEnvBoolOrDefault("ENGINE_DRY_RUN", cfg.EngineConfig.DryRun)

	cfg.BotConfig.Mode = getEnvOrDefault("BOT_MODE", cfg.BotConfig.Mode)
	cfg.BotConfig.TickMinInterval = getEnvDurationOrDefault("BOT_TICK_MIN_INTERVAL", cfg.BotConfig.TickMinInterval)
	cfg.BotConfig.MaxCandidates = getEnvIntOrDefault("BOT_MAX_CANDIDATES", cfg.BotConfig.MaxCandidates)

	cfg.FeedConfig.Source = getEnvOrDefault("FEED_SOURCE", cfg.FeedConfig.Source)
	cfg.FeedConfig.Seed = int64(getEnvIntOrDefault("FEED_SEED", int(cfg.FeedConfig.Seed)))

	cfg.RiskConfig.RiskFreeRatePct = getEnvFloatOrDefault("RISK_FREE_RATE_PCT", cfg.RiskConfig.RiskFreeRatePct)

	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", cfg.DatabaseConfig.SSLMode)

	cfg.RedisConfig.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.RedisConfig.Enabled)
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", cfg.RedisConfig.PoolSize)

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Console = getEnvBoolOrDefault("LOG_CONSOLE", cfg.LoggingConfig.Console)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
