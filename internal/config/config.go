package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret       string
	JWTAccessExpiry time.Duration

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceID       string
	SuccessURL          string
	CancelURL           string

	// Email
	PostmarkServerToken  string
	PostmarkAccountToken string
	FromEmail            string
	SupportEmail         string

	// Renewal reminders
	ReminderSchedule    string
	ReminderTimezone    string
	ReminderLeadDays    int
	ReminderConcurrency int

	// Logs
	LogRetention time.Duration

	// Server
	Port        string
	CORSOrigins string
	ClientURL   string
	AppEnv      string
	SentryDSN   string
}

func Load() *Config {
	// A missing .env file is fine; the real environment wins either way.
	_ = godotenv.Load()

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "subs_manager"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTAccessExpiry: parseDuration(getEnv("JWT_ACCESS_EXPIRY", "1h"), time.Hour),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePriceID:       getEnv("STRIPE_PRICE_ID", ""),
		SuccessURL:          getEnv("SUCCESS_URL", "http://localhost:3000/success"),
		CancelURL:           getEnv("CANCEL_URL", "http://localhost:3000/cancel"),

		PostmarkServerToken:  getEnv("POSTMARK_SERVER_TOKEN", ""),
		PostmarkAccountToken: getEnv("POSTMARK_ACCOUNT_TOKEN", ""),
		FromEmail:            getEnv("FROM_EMAIL", "reminders@subsmanager.local"),
		SupportEmail:         getEnv("SUPPORT_EMAIL", "support@subsmanager.local"),

		ReminderSchedule:    getEnv("REMINDER_SCHEDULE", "0 8 * * *"),
		ReminderTimezone:    getEnv("REMINDER_TIMEZONE", "UTC"),
		ReminderLeadDays:    parseInt(getEnv("REMINDER_LEAD_DAYS", "3"), 3),
		ReminderConcurrency: parseInt(getEnv("REMINDER_CONCURRENCY", "4"), 4),

		LogRetention: parseDuration(getEnv("LOG_RETENTION", "720h"), 30*24*time.Hour),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		ClientURL:   getEnv("CLIENT_URL", "http://localhost:3000"),
		AppEnv:      getEnv("APP_ENV", "development"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// BillingEnabled reports whether the Stripe integration has everything it needs.
func (c *Config) BillingEnabled() bool {
	return c.StripeSecretKey != "" && c.StripeWebhookSecret != "" && c.StripePriceID != ""
}

// PostmarkEnabled reports whether reminder emails go out through Postmark.
func (c *Config) PostmarkEnabled() bool {
	return c.PostmarkServerToken != "" && c.PostmarkAccountToken != ""
}

// Location resolves ReminderTimezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReminderTimezone)
	if err != nil {
		slog.Warn("unknown reminder timezone, using UTC", "timezone", c.ReminderTimezone, "error", err)
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
