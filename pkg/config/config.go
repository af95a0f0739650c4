package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	Search    SearchConfig
	Sessions  SessionsConfig
	Analytics AnalyticsConfig
	Identity  IdentityConfig
	Catalog   CatalogConfig
	CORS      CORSConfig
	Log       LogConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SearchConfig points at the full-text index backend and tunes query caching.
type SearchConfig struct {
	IndexURL      string
	Timeout       time.Duration
	CacheEnabled  bool
	CacheTTL      time.Duration
	FacetCacheTTL time.Duration
}

// SessionsConfig governs server-side search session persistence.
type SessionsConfig struct {
	TTL            time.Duration
	HistoryLength  int
	DefaultPerPage int
}

// AnalyticsConfig toggles the search event collector.
type AnalyticsConfig struct {
	Enabled           bool
	WorkerConcurrency int
	WorkerRetries     int
}

// IdentityConfig configures optional bearer-token identification used by
// the annotated-courses filter.
type IdentityConfig struct {
	Secret string
}

// CatalogConfig bounds catalog-wide semester searches.
type CatalogConfig struct {
	YearStart int
	YearEnd   int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Search = SearchConfig{
		IndexURL:      v.GetString("SEARCH_INDEX_URL"),
		Timeout:       parseDuration(v.GetString("SEARCH_TIMEOUT"), 10*time.Second),
		CacheEnabled:  v.GetBool("SEARCH_CACHE_ENABLED"),
		CacheTTL:      parseDuration(v.GetString("SEARCH_CACHE_TTL"), 5*time.Minute),
		FacetCacheTTL: parseDuration(v.GetString("FACET_VALUES_CACHE_TTL"), time.Hour),
	}

	cfg.Sessions = SessionsConfig{
		TTL:            parseDuration(v.GetString("SESSION_TTL"), 12*time.Hour),
		HistoryLength:  v.GetInt("SESSION_HISTORY_LENGTH"),
		DefaultPerPage: v.GetInt("SESSION_DEFAULT_PER_PAGE"),
	}

	cfg.Analytics = AnalyticsConfig{
		Enabled:           v.GetBool("ENABLE_SEARCH_ANALYTICS"),
		WorkerConcurrency: v.GetInt("ANALYTICS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("ANALYTICS_WORKER_RETRIES"),
	}

	cfg.Identity = IdentityConfig{
		Secret: v.GetString("IDENTITY_SECRET"),
	}

	cfg.Catalog = CatalogConfig{
		YearStart: v.GetInt("CATALOG_YEAR_START"),
		YearEnd:   v.GetInt("CATALOG_YEAR_END"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "course_catalog")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SEARCH_INDEX_URL", "http://localhost:8983/search/courses")
	v.SetDefault("SEARCH_TIMEOUT", "10s")
	v.SetDefault("SEARCH_CACHE_ENABLED", false)
	v.SetDefault("SEARCH_CACHE_TTL", "5m")
	v.SetDefault("FACET_VALUES_CACHE_TTL", "1h")

	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("SESSION_HISTORY_LENGTH", 5)
	v.SetDefault("SESSION_DEFAULT_PER_PAGE", 50)

	v.SetDefault("ENABLE_SEARCH_ANALYTICS", false)
	v.SetDefault("ANALYTICS_WORKER_CONCURRENCY", 1)
	v.SetDefault("ANALYTICS_WORKER_RETRIES", 3)

	v.SetDefault("IDENTITY_SECRET", "dev_secret")

	v.SetDefault("CATALOG_YEAR_START", 2006)
	v.SetDefault("CATALOG_YEAR_END", 2027)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
