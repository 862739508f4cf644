package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Settings struct {
	Port        string
	Environment string
	LogLevel    string

	DBDriver    string // postgres|sqlite
	DatabaseURL string

	JWTSecret string
	TokenTTL  time.Duration

	TickInterval     time.Duration
	AutosaveInterval time.Duration
	StaleAttemptCron string

	SeedTestsFile string

	AdminEmail    string
	AdminPassword string
	AdminFullName string

	BrevoAPIKey     string
	EmailSender     string
	EmailSenderName string

	CloudinaryURL string
	CORSOrigins   string
}

// Load reads .env (if present) and the process environment.
func Load() Settings {
	if err := godotenv.Load(".env"); err != nil {
		log.Debug().Msg(".env file not found, reading from system environment variables")
	}

	return Settings{
		Port:        envOr("PORT", "8080"),
		Environment: envOr("APP_ENV", "development"),
		LogLevel:    envOr("LOG_LEVEL", "info"),

		DBDriver:    envOr("DB_DRIVER", "sqlite"),
		DatabaseURL: envOr("DATABASE_URL", "academy.db"),

		JWTSecret: envOr("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:  envDuration("TOKEN_TTL", 72*time.Hour),

		TickInterval:     envDuration("TICK_INTERVAL", time.Second),
		AutosaveInterval: envDuration("AUTOSAVE_INTERVAL", 15*time.Second),
		StaleAttemptCron: envOr("STALE_ATTEMPT_CRON", "*/5 * * * *"),

		SeedTestsFile: os.Getenv("SEED_TESTS_FILE"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminFullName: envOr("ADMIN_FULL_NAME", "Academy Administrator"),

		BrevoAPIKey:     os.Getenv("BREVO_API_KEY"),
		EmailSender:     os.Getenv("EMAIL_SENDER"),
		EmailSenderName: os.Getenv("EMAIL_SENDER_NAME"),

		CloudinaryURL: os.Getenv("CLOUDINARY_URL"),
		CORSOrigins:   envOr("CORS_ORIGINS", "*"),
	}
}

func (s Settings) Production() bool {
	return strings.EqualFold(s.Environment, "production")
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// envDuration accepts Go durations ("15s") or a bare number of seconds.
func envDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	log.Warn().Str("key", k).Str("value", v).Msg("invalid duration, using default")
	return def
}
