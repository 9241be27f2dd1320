package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the engine.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Engine       EngineConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
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
	Level  string
	Format string
}

// AuthConfig defines token verification parameters. Tokens are issued by
// the external auth service; the engine only verifies them.
type AuthConfig struct {
	JWTSecret           string
	TokenTTLMinutes     int
	BootstrapEmail      string
	BootstrapPassword   string
	BootstrapName       string
	BcryptCost          int
	EnableBootstrapSeed bool
}

// NotificationConfig holds sink channel settings.
type NotificationConfig struct {
	Channel            string
	ReadBackTTLSeconds int
}

// EngineConfig tunes subscription and command behavior.
type EngineConfig struct {
	ChangeChannel        string
	StoreWriteTimeoutSec int
	DefaultWindowDays    int
	SubscriberBufferSize int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "query-engine"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:           getEnv("AUTH_JWT_SECRET", "dev-secret"),
			TokenTTLMinutes:     getEnvAsInt("AUTH_TOKEN_TTL_MINUTES", 60),
			BootstrapEmail:      getEnv("AUTH_BOOTSTRAP_EMAIL", ""),
			BootstrapPassword:   getEnv("AUTH_BOOTSTRAP_PASSWORD", ""),
			BootstrapName:       getEnv("AUTH_BOOTSTRAP_NAME", "Portal Superadmin"),
			BcryptCost:          getEnvAsInt("AUTH_BCRYPT_COST", 12),
			EnableBootstrapSeed: getEnvAsBool("AUTH_BOOTSTRAP_SEED", false),
		},
		Notification: NotificationConfig{
			Channel:            getEnv("NOTIFY_CHANNEL", "portal:notifications"),
			ReadBackTTLSeconds: getEnvAsInt("NOTIFY_READBACK_TTL_SECONDS", 60),
		},
		Engine: EngineConfig{
			ChangeChannel:        getEnv("ENGINE_CHANGE_CHANNEL", "portal:query:changes"),
			StoreWriteTimeoutSec: getEnvAsInt("ENGINE_STORE_WRITE_TIMEOUT_SECONDS", 10),
			DefaultWindowDays:    getEnvAsInt("ENGINE_DEFAULT_WINDOW_DAYS", 30),
			SubscriberBufferSize: getEnvAsInt("ENGINE_SUBSCRIBER_BUFFER", 256),
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

// StoreWriteTimeout bounds each write call against the store.
func (e EngineConfig) StoreWriteTimeout() time.Duration {
	if e.StoreWriteTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(e.StoreWriteTimeoutSec) * time.Second
}

// ReadBackTTL returns how long published notification events stay readable.
func (n NotificationConfig) ReadBackTTL() time.Duration {
	if n.ReadBackTTLSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(n.ReadBackTTLSeconds) * time.Second
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
