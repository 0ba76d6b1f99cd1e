package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

type CacheBackend string

const (
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendRedis  CacheBackend = "redis"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		Search
		Cache
		Metadata
		Tasks
		Scheduler
	}

	HTTP struct {
		Port int32
		Host string
		// HSTSMaxAge enables Strict-Transport-Security on HTTPS requests when > 0
		HSTSMaxAge int
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Driver   DatabaseDriver
		Path     string // SQLite file
		DSN      string // PostgreSQL connection string
		LogLevel string // silent, error, warn, info
	}
	Auth struct {
		Issuer         string
		TokenTTL       time.Duration
		HashIterations int

		// Login rate limiting
		MaxLoginAttempts int
		RateLimitWindow  time.Duration
		LockoutDuration  time.Duration
	}
	Search struct {
		ResultLimit        int
		RelevanceThreshold float64
	}
	Cache struct {
		Backend  CacheBackend
		TTL      time.Duration
		RedisURL string
	}
	Metadata struct {
		Enabled           bool
		BaseURL           string
		CoversURL         string
		RequestsPerSecond float64
	}
	Tasks struct {
		Enabled           bool
		// DatabasePath is the queue's SQLite file. Empty derives it from the
		// SQLite catalog path, or uses DefaultTasksDatabasePath with postgres.
		DatabasePath      string
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Scheduler struct {
		Enabled        bool
		EnrichSchedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
)

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err == nil {
			log.Printf("Loaded environment from %s", f)
		}
	}
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("hsts_max_age", 0)
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	v.SetDefault("database_driver", string(DatabaseDriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("database_log_level", "warn")

	// Auth defaults
	v.SetDefault("auth_issuer", DefaultTokenIssuer)
	v.SetDefault("auth_token_ttl", "15m")
	v.SetDefault("auth_hash_iterations", DefaultHashIterations)
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	// Search defaults
	v.SetDefault("search_result_limit", DefaultSearchResultLimit)
	v.SetDefault("search_relevance_threshold", DefaultRelevanceThreshold)

	// Cache defaults
	v.SetDefault("cache_backend", string(CacheBackendMemory))
	v.SetDefault("cache_ttl", "60m")
	v.SetDefault("redis_url", "")

	// Metadata defaults
	v.SetDefault("metadata_enabled", true)
	v.SetDefault("metadata_base_url", "https://openlibrary.org")
	v.SetDefault("metadata_covers_url", "https://covers.openlibrary.org")
	v.SetDefault("metadata_requests_per_second", 1.0)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	// Scheduler defaults
	v.SetDefault("scheduler_enabled", true)
	v.SetDefault("scheduler_enrich_schedule", "0 3 * * *")

	return &Config{
		HTTP: HTTP{
			Port:       v.GetInt32("PORT"),
			Host:       v.GetString("HOST"),
			HSTSMaxAge: v.GetInt("HSTS_MAX_AGE"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Driver:   DatabaseDriver(v.GetString("DATABASE_DRIVER")),
			Path:     v.GetString("DATABASE_PATH"),
			DSN:      v.GetString("DATABASE_DSN"),
			LogLevel: v.GetString("DATABASE_LOG_LEVEL"),
		},
		Auth: Auth{
			Issuer:           v.GetString("AUTH_ISSUER"),
			TokenTTL:         v.GetDuration("AUTH_TOKEN_TTL"),
			HashIterations:   v.GetInt("AUTH_HASH_ITERATIONS"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Search: Search{
			ResultLimit:        v.GetInt("SEARCH_RESULT_LIMIT"),
			RelevanceThreshold: v.GetFloat64("SEARCH_RELEVANCE_THRESHOLD"),
		},
		Cache: Cache{
			Backend:  CacheBackend(v.GetString("CACHE_BACKEND")),
			TTL:      v.GetDuration("CACHE_TTL"),
			RedisURL: v.GetString("REDIS_URL"),
		},
		Metadata: Metadata{
			Enabled:           v.GetBool("METADATA_ENABLED"),
			BaseURL:           v.GetString("METADATA_BASE_URL"),
			CoversURL:         v.GetString("METADATA_COVERS_URL"),
			RequestsPerSecond: v.GetFloat64("METADATA_REQUESTS_PER_SECOND"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			DatabasePath:      v.GetString("TASKS_DATABASE_PATH"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Scheduler: Scheduler{
			Enabled:        v.GetBool("SCHEDULER_ENABLED"),
			EnrichSchedule: v.GetString("SCHEDULER_ENRICH_SCHEDULE"),
		},
	}
}
