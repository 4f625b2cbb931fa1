package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the weather analysis server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Blob     BlobConfig
	Analysis AnalysisConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	RateLimitPerMin int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type BlobConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type AnalysisConfig struct {
	// Strategies selects the statistics computed per upload:
	// "regression", "clustering", or both.
	Strategies   []string
	ClusterCount int

	Workers        int
	MaxUploadBytes int64
	ResultTTL      time.Duration
	TaskRetention  time.Duration

	// StatusWaitMax bounds how long a status request may block; the client's
	// requested timeout is clamped to it.
	StatusWaitMax time.Duration
}

var validStrategies = map[string]bool{
	"regression": true,
	"clustering": true,
}

// Load reads configuration from environment variables and returns a validated
// Config. Returns an error with a descriptive message if any required value is
// missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("WEATHER_PORT", 8080),
			Env:             envString("WEATHER_ENV", "development"),
			RateLimitPerMin: envInt("WEATHER_RATE_LIMIT_PER_MIN", 60),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Blob: BlobConfig{
			Endpoint:  os.Getenv("BLOB_ENDPOINT"),
			AccessKey: os.Getenv("BLOB_ACCESS_KEY"),
			SecretKey: os.Getenv("BLOB_SECRET_KEY"),
			Bucket:    envString("BLOB_BUCKET", "weather-uploads"),
			UseSSL:    envBool("BLOB_USE_SSL", false),
		},
		Analysis: AnalysisConfig{
			Strategies:     strings.Split(envString("ANALYSIS_STRATEGIES", "regression,clustering"), ","),
			ClusterCount:   envInt("ANALYSIS_CLUSTER_COUNT", 3),
			Workers:        envInt("ANALYSIS_WORKERS", 4),
			MaxUploadBytes: int64(envInt("ANALYSIS_MAX_UPLOAD_MB", 50)) * 1024 * 1024,
			ResultTTL:      envDuration("ANALYSIS_RESULT_TTL", 7*24*time.Hour),
			TaskRetention:  envDuration("ANALYSIS_TASK_RETENTION", time.Hour),
			StatusWaitMax:  envDuration("ANALYSIS_STATUS_WAIT_MAX", 30*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Blob.Endpoint == "" {
		return fmt.Errorf("BLOB_ENDPOINT is required")
	}
	if c.Blob.AccessKey == "" || c.Blob.SecretKey == "" {
		return fmt.Errorf("BLOB_ACCESS_KEY and BLOB_SECRET_KEY are required")
	}

	if len(c.Analysis.Strategies) == 0 {
		return fmt.Errorf("ANALYSIS_STRATEGIES must name at least one strategy")
	}
	for _, s := range c.Analysis.Strategies {
		if !validStrategies[strings.TrimSpace(s)] {
			return fmt.Errorf("ANALYSIS_STRATEGIES entries must be one of regression, clustering; got %q", s)
		}
	}

	if c.Analysis.Workers <= 0 {
		return fmt.Errorf("ANALYSIS_WORKERS must be positive, got %d", c.Analysis.Workers)
	}
	if c.Analysis.MaxUploadBytes <= 0 {
		return fmt.Errorf("ANALYSIS_MAX_UPLOAD_MB must be positive")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
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

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
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
