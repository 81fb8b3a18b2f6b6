package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	CacheNone     = "none"
	CacheMemory   = "memory"
	CacheDisk     = "disk"
	CacheRedis    = "redis"
	CachePostgres = "postgres"
	CacheS3       = "s3"
)

type Config struct {
	Addr       string
	CORSOrigin string
	LogLevel   string
	LogFormat  string

	NotionKey     string
	NotionVersion string
	NotionBaseURL string
	NotionTimeout time.Duration
	PageDBID      string
	UserDBID      string
	RoleDBID      string

	// Upstream admission: RateLimit calls per RateInterval, at most
	// MaxConcurrent in flight.
	RateLimit     int
	RateInterval  time.Duration
	MaxConcurrent int

	CacheBackend  string
	CacheDir      string
	RedisURL      string
	DatabaseURL   string
	MigrationsDir string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3Bucket      string
	S3UseSSL      bool

	MeiliURL       string
	MeiliMasterKey string

	TokenSecret string
	TokenTTL    time.Duration
}

func Load() Config {
	return Config{
		Addr:       getenv("API_ADDR", ":8787"),
		CORSOrigin: getenv("CORS_ORIGIN", "*"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogFormat:  getenv("LOG_FORMAT", "json"),

		NotionKey:     getenv("NOTION_KEY", ""),
		NotionVersion: getenv("NOTION_VERSION", "2022-06-28"),
		NotionBaseURL: getenv("NOTION_BASE_URL", "https://api.notion.com/v1"),
		NotionTimeout: getenvDuration("NOTION_TIMEOUT", 30*time.Second),
		PageDBID:      getenv("NOTION_PAGE_DB_ID", ""),
		UserDBID:      getenv("NOTION_USER_DB_ID", ""),
		RoleDBID:      getenv("NOTION_ROLE_DB_ID", ""),

		RateLimit:     getenvInt("NOTION_RATE_LIMIT", 5),
		RateInterval:  getenvDuration("NOTION_RATE_INTERVAL", time.Second),
		MaxConcurrent: getenvInt("NOTION_MAX_CONCURRENT", 5),

		CacheBackend:  strings.ToLower(getenv("CACHE_BACKEND", CacheDisk)),
		CacheDir:      getenv("CACHE_DIR", "./.cache/localcache"),
		RedisURL:      getenv("REDIS_URL", ""),
		DatabaseURL:   getenv("DATABASE_URL", ""),
		MigrationsDir: getenv("MIGRATIONS_DIR", "./db/migrations"),
		S3Endpoint:    getenv("S3_ENDPOINT", ""),
		S3AccessKey:   getenv("S3_ACCESS_KEY", ""),
		S3SecretKey:   getenv("S3_SECRET_KEY", ""),
		S3Bucket:      getenv("S3_BUCKET", "forum-cache"),
		S3UseSSL:      getenvBool("S3_USE_SSL", false),

		// Search is off unless MEILI_URL is set
		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),

		TokenSecret: getenv("FORUM_TOKEN_SECRET", "forum-dev-secret"),
		TokenTTL:    getenvDuration("FORUM_TOKEN_TTL", 720*time.Hour),
	}
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.NotionKey) == "" {
		errs = append(errs, errors.New("NOTION_KEY is required"))
	}
	if c.RateLimit < 1 {
		errs = append(errs, fmt.Errorf("NOTION_RATE_LIMIT must be >= 1, got %d", c.RateLimit))
	}
	if c.RateInterval <= 0 {
		errs = append(errs, fmt.Errorf("NOTION_RATE_INTERVAL must be positive, got %s", c.RateInterval))
	}
	if c.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("NOTION_MAX_CONCURRENT must be >= 1, got %d", c.MaxConcurrent))
	}
	switch c.CacheBackend {
	case CacheNone, CacheMemory:
	case CacheDisk:
		if strings.TrimSpace(c.CacheDir) == "" {
			errs = append(errs, errors.New("CACHE_DIR is required for the disk cache"))
		}
	case CacheRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis cache"))
		}
	case CachePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres cache"))
		}
	case CacheS3:
		if strings.TrimSpace(c.S3Endpoint) == "" || strings.TrimSpace(c.S3Bucket) == "" {
			errs = append(errs, errors.New("S3_ENDPOINT and S3_BUCKET are required for the s3 cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("FORUM_TOKEN_TTL must be positive, got %s", c.TokenTTL))
	}
	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
