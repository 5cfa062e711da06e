package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the API process
type Config struct {
	Environment    string
	Server         ServerConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	Auth           AuthConfig
	CompaniesHouse CompaniesHouseConfig
	Jobs           JobsConfig
	RateLimit      RateLimitConfig
	Log            LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string
	Mode         string // gin mode: debug, release, test
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MaxIdle  int
	LogSQL   bool
}

// RedisConfig holds the client directory cache configuration.
// An empty URL selects the in-process cache.
type RedisConfig struct {
	URL            string
	ClientCacheTTL time.Duration
}

// AuthConfig holds the auth provider's JWT verification settings
type AuthConfig struct {
	JWTSecret  string
	ProfileTTL time.Duration
}

// CompaniesHouseConfig holds registry API settings.
// APIKey may be empty; the lookup routes then answer 500.
type CompaniesHouseConfig struct {
	APIKey  string
	BaseURL string
}

// JobsConfig controls the processing job runner
type JobsConfig struct {
	PollInterval  time.Duration
	BatchSize     int
	RolloverAtUTC string // HH:MM
	// Timeout bounds one processor run. Running jobs silent for longer are failed by the sweep.
	Timeout time.Duration
}

// RateLimitConfig controls the per-IP request limiter
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level string
	Dev   bool
}

// Load reads configs/.env and .env when present, then the environment
func Load() *Config {
	_ = godotenv.Load("configs/.env")
	_ = godotenv.Load()

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Mode:         getEnv("GIN_MODE", "debug"),
			CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			URL:      databaseURL(),
			MaxConns: getEnvInt("DATABASE_MAX_CONNS", 20),
			MaxIdle:  getEnvInt("DATABASE_MAX_IDLE", 5),
			LogSQL:   getEnvBool("DATABASE_LOG_SQL", false),
		},
		Redis: RedisConfig{
			URL:            getEnv("REDIS_URL", ""),
			ClientCacheTTL: getEnvDuration("CLIENT_CACHE_TTL", 2*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("AUTH_JWT_SECRET", ""),
			ProfileTTL: getEnvDuration("AUTH_PROFILE_TTL", 5*time.Minute),
		},
		CompaniesHouse: CompaniesHouseConfig{
			APIKey:  getEnv("COMPANIES_HOUSE_API_KEY", ""),
			BaseURL: getEnv("COMPANIES_HOUSE_BASE_URL", "https://api.company-information.service.gov.uk"),
		},
		Jobs: JobsConfig{
			PollInterval:  getEnvDuration("JOB_POLL_INTERVAL", 2*time.Second),
			BatchSize:     getEnvInt("JOB_BATCH_SIZE", 10),
			RolloverAtUTC: getEnv("PERIOD_ROLLOVER_AT", "02:00"),
			Timeout:       getEnvDuration("JOB_TIMEOUT", 10*time.Minute),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvFloat("RATE_LIMIT_RPS", 20),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 40),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", ""),
			Dev:   os.Getenv("LOG_DEV") == "1",
		},
	}
}

// IsProduction reports whether the process runs in release mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Server.Mode == "release"
}

// databaseURL prefers DATABASE_URL and falls back to the discrete DB_* variables
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "postgres")
	dbPassword := getEnv("DB_PASSWORD", "postgres")
	dbName := getEnv("DB_NAME", "taxengine")
	dbSslMode := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
