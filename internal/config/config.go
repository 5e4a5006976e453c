package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the portal and the dev backend.
type Config struct {
	App        AppConfig
	Backend    BackendConfig
	Session    SessionConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Polling    PollingConfig
	DevBackend DevBackendConfig
}

// AppConfig controls the UI-facing controller API.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// BackendConfig points the HTTP client wrapper at the remote REST service.
type BackendConfig struct {
	BaseURL               string
	RequestTimeoutSeconds int
	UploadTimeoutSeconds  int
}

// Session drivers.
const (
	SessionDriverFile     = "file"
	SessionDriverRedis    = "redis"
	SessionDriverPostgres = "postgres"
	SessionDriverMemory   = "memory"
)

// SessionConfig selects the durable Token Store backend.
type SessionConfig struct {
	Driver         string
	FilePath       string
	Profile        string
	RedisKeyPrefix string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// PollingConfig drives the admin review synchronizers and provider status polling.
type PollingConfig struct {
	ReviewIntervalSeconds   int
	ProviderIntervalSeconds int
	ReviewPolicy            string
}

// DevBackendConfig configures the local stub of the remote REST service.
type DevBackendConfig struct {
	Host                  string
	Port                  string
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	AdminEmail            string
	AdminPassword         string
	SuperAdminEmail       string
	SuperAdminPassword    string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	driver := strings.ToLower(getEnv("SESSION_DRIVER", SessionDriverFile))
	switch driver {
	case SessionDriverFile, SessionDriverRedis, SessionDriverPostgres, SessionDriverMemory:
	default:
		return nil, fmt.Errorf("invalid SESSION_DRIVER %q", driver)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 4))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "homeservices-portal"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "127.0.0.1"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Backend: BackendConfig{
			BaseURL:               strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://localhost:8000"), "/"),
			RequestTimeoutSeconds: getEnvAsInt("BACKEND_REQUEST_TIMEOUT_SECONDS", 15),
			UploadTimeoutSeconds:  getEnvAsInt("BACKEND_UPLOAD_TIMEOUT_SECONDS", 30),
		},
		Session: SessionConfig{
			Driver:         driver,
			FilePath:       getEnv("SESSION_FILE", ".portal-session.json"),
			Profile:        getEnv("SESSION_PROFILE", "default"),
			RedisKeyPrefix: getEnv("SESSION_REDIS_PREFIX", "portal:session:"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Polling: PollingConfig{
			ReviewIntervalSeconds:   getEnvAsInt("REVIEW_REFRESH_INTERVAL_SECONDS", 10),
			ProviderIntervalSeconds: getEnvAsInt("PROVIDER_STATUS_INTERVAL_SECONDS", 15),
			ReviewPolicy:            getEnv("REVIEW_CONSISTENCY_POLICY", "last_arrival"),
		},
		DevBackend: DevBackendConfig{
			Host:                  getEnv("DEV_BACKEND_HOST", "127.0.0.1"),
			Port:                  getEnv("DEV_BACKEND_PORT", "8000"),
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AdminEmail:            getEnv("DEV_ADMIN_EMAIL", "admin@example.com"),
			AdminPassword:         getEnv("DEV_ADMIN_PASSWORD", "admin"),
			SuperAdminEmail:       getEnv("DEV_SUPERADMIN_EMAIL", "root@example.com"),
			SuperAdminPassword:    getEnv("DEV_SUPERADMIN_PASSWORD", "root"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// RequestTimeout bounds a single backend call other than uploads.
func (b BackendConfig) RequestTimeout() time.Duration {
	if b.RequestTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(b.RequestTimeoutSeconds) * time.Second
}

// UploadTimeout is the only explicit per-operation budget.
func (b BackendConfig) UploadTimeout() time.Duration {
	if b.UploadTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.UploadTimeoutSeconds) * time.Second
}

// ReviewInterval is the admin list background refresh period.
func (p PollingConfig) ReviewInterval() time.Duration {
	if p.ReviewIntervalSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(p.ReviewIntervalSeconds) * time.Second
}

// ProviderInterval is the provider status polling period.
func (p PollingConfig) ProviderInterval() time.Duration {
	if p.ProviderIntervalSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(p.ProviderIntervalSeconds) * time.Second
}

// Addr returns the dev backend bind address.
func (d DevBackendConfig) Addr() string {
	return fmt.Sprintf("%s:%s", d.Host, d.Port)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
