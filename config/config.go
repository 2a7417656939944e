package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerConfig    ServerConfig    `json:"server"`
	DatabaseConfig  DatabaseConfig  `json:"database"`
	RedisConfig     RedisConfig     `json:"redis"`
	AuthConfig      AuthConfig      `json:"auth"`
	LoggingConfig   LoggingConfig   `json:"logging"`
	AnalyticsConfig AnalyticsConfig `json:"analytics"`
}

// ServerConfig holds the HTTP API server configuration
type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"`
	ReadTimeout     int    `json:"read_timeout"`     // seconds
	WriteTimeout    int    `json:"write_timeout"`    // seconds
	ShutdownTimeout int    `json:"shutdown_timeout"` // seconds
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds Redis configuration for snapshot caching
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// AuthConfig holds token validation settings. Tokens are issued by the
// platform's identity service; this service only validates them.
type AuthConfig struct {
	Enabled   bool   `json:"enabled"`
	JWTSecret string `json:"jwt_secret"`
}

type LoggingConfig struct {
	Level       string `json:"level"`        // DEBUG, INFO, WARN, ERROR
	Output      string `json:"output"`       // stdout, stderr, or file path
	JSONFormat  bool   `json:"json_format"`  // Output as JSON
	IncludeFile bool   `json:"include_file"` // Include file and line number
}

// AnalyticsConfig tunes the edge engine invocation and its result cache
type AnalyticsConfig struct {
	MaxEdges         int           `json:"max_edges"`          // edge list truncation cap
	MaxSessions      int           `json:"max_sessions"`       // upper bound on sessions per call
	CacheTTL         time.Duration `json:"cache_ttl"`          // snapshot cache lifetime
	DefaultRangeDays int           `json:"default_range_days"` // lookback when the caller gives no range
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", 8080)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", "0.0.0.0")
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", "*")
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", 30)
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", 30)
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10)

	// Database config
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", "localhost")
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", 5432)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", "journal")
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", "journal")
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

	// Redis config
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", "false") == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", "localhost:6379")
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", 0)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", 10)

	// Auth config - ALWAYS apply from environment
	cfg.AuthConfig.Enabled = getEnvOrDefault("AUTH_ENABLED", "false") == "true"
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", "INFO")
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", "stdout")
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", "true") == "true"
	cfg.LoggingConfig.IncludeFile = getEnvOrDefault("LOG_INCLUDE_FILE", "false") == "true"

	// Analytics config
	cfg.AnalyticsConfig.MaxEdges = getEnvIntOrDefault("ANALYTICS_MAX_EDGES", 1500)
	cfg.AnalyticsConfig.MaxSessions = getEnvIntOrDefault("ANALYTICS_MAX_SESSIONS", 5000)
	cfg.AnalyticsConfig.CacheTTL = getEnvDurationOrDefault("ANALYTICS_CACHE_TTL", 5*time.Minute)
	cfg.AnalyticsConfig.DefaultRangeDays = getEnvIntOrDefault("ANALYTICS_DEFAULT_RANGE_DAYS", 90)
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
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

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
