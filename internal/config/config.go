package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Booking      BookingConfig
	Notification NotificationConfig
	Reminder     ReminderConfig
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
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// BookingConfig tunes the appointment engine.
type BookingConfig struct {
	SlotMinutes       int
	HorizonMonths     int
	Timezone          string
	DirectoryCacheTTL time.Duration
}

// NotificationConfig holds email delivery settings. An empty SMTPHost selects
// the log-only mailer.
type NotificationConfig struct {
	EmailFrom      string
	SMTPHost       string
	SMTPPort       string
	SMTPUser       string
	SMTPPassword   string
	SendTimeoutSec int
}

// ReminderConfig drives the next-day appointment reminder job.
type ReminderConfig struct {
	Enabled  bool
	CronSpec string
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
			Name:                  getEnv("APP_NAME", "govdesk"),
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
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Booking: BookingConfig{
			SlotMinutes:       getEnvAsInt("BOOKING_SLOT_MINUTES", 15),
			HorizonMonths:     getEnvAsInt("BOOKING_HORIZON_MONTHS", 3),
			Timezone:          getEnv("BOOKING_TIMEZONE", "Local"),
			DirectoryCacheTTL: time.Duration(getEnvAsInt("BOOKING_DIRECTORY_CACHE_TTL_SECONDS", 300)) * time.Second,
		},
		Notification: NotificationConfig{
			EmailFrom:      getEnv("NOTIFY_EMAIL_FROM", "noreply@govdesk.example"),
			SMTPHost:       os.Getenv("NOTIFY_SMTP_HOST"),
			SMTPPort:       getEnv("NOTIFY_SMTP_PORT", "587"),
			SMTPUser:       os.Getenv("NOTIFY_SMTP_USER"),
			SMTPPassword:   os.Getenv("NOTIFY_SMTP_PASSWORD"),
			SendTimeoutSec: getEnvAsInt("NOTIFY_SEND_TIMEOUT_SECONDS", 10),
		},
		Reminder: ReminderConfig{
			Enabled:  getEnvAsBool("REMINDER_ENABLED", true),
			CronSpec: getEnv("REMINDER_CRON", "0 7 * * *"),
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

// Location resolves the booking timezone.
func (b BookingConfig) Location() (*time.Location, error) {
	if b.Timezone == "" || b.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(b.Timezone)
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
