package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName      string
	AppEnv       string
	AppURL       string
	Port         string
	SupportEmail string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret            string
	JWTExpiry            time.Duration
	TokenMagicLinkExpiry time.Duration
	OAuthStateExpiry     time.Duration
	DownloadTokenExpiry  time.Duration

	// Platform OAuth
	SoundcloudClientID     string
	SoundcloudClientSecret string
	SpotifyClientID        string
	SpotifyClientSecret    string

	// Email
	EmailFrom        string
	ResendAPIKey     string
	ResendAudienceID string

	// Payment - Stripe
	StripeSecretKey         string
	StripeWebhookSecret     string
	StripePriceIDProMonthly string
	StripePriceIDProYearly  string

	// Observability (optional)
	SentryDSN string

	// Storage (S3-compatible: MinIO, AWS S3, Cloudflare R2, DigitalOcean Spaces, etc.)
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string // Optional: for S3-compatible services (MinIO, DO Spaces, R2, etc.)

	// Autosave worker
	AutosaveInterval  time.Duration
	AutosaveCallDelay time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName:      envString("APP_NAME", "The Backstage"),
		AppEnv:       envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:       envRequired("APP_URL"), // Required: base URL for gate links and OAuth redirects
		Port:         envString("PORT", "8090"),
		SupportEmail: envString("SUPPORT_EMAIL", "hello@example.com"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/backstage.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),

		// Security
		JWTSecret:            envRequired("JWT_SECRET"),
		JWTExpiry:            envDuration("JWT_EXPIRY", 168*time.Hour),               // 7 days
		TokenMagicLinkExpiry: envDuration("TOKEN_MAGIC_LINK_EXPIRY", 10*time.Minute), // 10 minutes
		OAuthStateExpiry:     envDuration("OAUTH_STATE_EXPIRY", 15*time.Minute),      // 15 minutes
		DownloadTokenExpiry:  envDuration("DOWNLOAD_TOKEN_EXPIRY", 24*time.Hour),     // 24 hours

		// Platform OAuth
		SoundcloudClientID:     envString("SOUNDCLOUD_CLIENT_ID", ""),
		SoundcloudClientSecret: envString("SOUNDCLOUD_CLIENT_SECRET", ""),
		SpotifyClientID:        envString("SPOTIFY_CLIENT_ID", ""),
		SpotifyClientSecret:    envString("SPOTIFY_CLIENT_SECRET", ""),

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:        envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey:     envString("RESEND_API_KEY", ""),
		ResendAudienceID: envString("RESEND_AUDIENCE_ID", ""),

		// Payment
		StripeSecretKey:         envString("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:     envString("STRIPE_WEBHOOK_SECRET", ""),
		StripePriceIDProMonthly: envString("STRIPE_PRICE_ID_PRO_MONTHLY", ""),
		StripePriceIDProYearly:  envString("STRIPE_PRICE_ID_PRO_YEARLY", ""),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Storage (S3-compatible - required for track uploads)
		S3Region:    envRequired("S3_REGION"),
		S3Bucket:    envRequired("S3_BUCKET"),
		S3AccessKey: envRequired("S3_ACCESS_KEY"),
		S3SecretKey: envRequired("S3_SECRET_KEY"),
		S3Endpoint:  envString("S3_ENDPOINT", ""), // Optional: for non-AWS providers

		// Autosave worker
		AutosaveInterval:  envDuration("AUTOSAVE_INTERVAL", 6*time.Hour),
		AutosaveCallDelay: envDuration("AUTOSAVE_CALL_DELAY", 100*time.Millisecond),
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures all required services are configured for production deployments.
// Development allows some services (like email) to use fallback modes for easier local testing.
func validateProduction(cfg *Config) {
	if cfg.ResendAPIKey == "" {
		slog.Error("production deployment requires RESEND_API_KEY",
			"hint", "set APP_ENV=development for local testing with email log mode")
		os.Exit(1)
	}
	if cfg.SoundcloudClientID == "" && cfg.SpotifyClientID == "" {
		slog.Error("production deployment requires at least one platform OAuth app",
			"hint", "set SOUNDCLOUD_CLIENT_ID/SECRET or SPOTIFY_CLIENT_ID/SECRET")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Sanitized returns a copy of the config with only public/safe fields.
// All secrets, credentials, and sensitive data are excluded.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName:      c.AppName,
		AppEnv:       c.AppEnv,
		AppURL:       c.AppURL,
		Port:         c.Port,
		SupportEmail: c.SupportEmail,

		EmailFrom: c.EmailFrom,

		SoundcloudClientID: c.SoundcloudClientID,
		SpotifyClientID:    c.SpotifyClientID,
	}
}
