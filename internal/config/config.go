package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	VisionCredentialsDeployment = "deployment"
	VisionCredentialsUser       = "user"
)

type Config struct {
	// Application
	AppName      string
	AppEnv       string
	AppURL       string
	Port         string
	AppTagline   string
	SupportEmail string
	ContentPath  string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret     string
	JWTExpiry     time.Duration
	EncryptionKey string // base64, 32 bytes; seals lock images and user vision keys

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Observability (optional)
	SentryDSN string

	// Storage (S3-compatible). Empty bucket falls back to local disk under UploadPath.
	S3Region               string
	S3Bucket               string
	S3AccessKey            string
	S3SecretKey            string
	S3Endpoint             string
	S3PresignExpiryPrivate time.Duration
	UploadPath             string

	// Vision
	VisionCredentials string // "deployment" or "user"
	GeminiAPIKey      string
	GeminiModel       string
	VisionTimeout     time.Duration

	// Goals
	AllowLateProof         bool
	DeadlineNotifyInterval time.Duration
}

// Load reads the environment, after a .env file when one exists. Missing
// values fall back to development defaults.
func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName:      envString("APP_NAME", "Codekeeper"),
		AppEnv:       envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:       envRequired("APP_URL"), // Required: base URL for email links and OAuth redirects
		Port:         envString("PORT", "8090"),
		AppTagline:   envString("APP_TAGLINE", "Lock the code. Earn it back."),
		SupportEmail: envString("SUPPORT_EMAIL", "hello@example.com"),
		ContentPath:  envString("CONTENT_PATH", "content"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/codekeeper.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),

		// Security
		JWTSecret:     envRequired("JWT_SECRET"),
		JWTExpiry:     envDuration("JWT_EXPIRY", 168*time.Hour), // 7 days
		EncryptionKey: envRequired("ENCRYPTION_KEY"),

		// OAuth
		GoogleClientID:     envString("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: envString("GOOGLE_CLIENT_SECRET", ""),

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:    envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Storage
		S3Region:               envString("S3_REGION", ""),
		S3Bucket:               envString("S3_BUCKET", ""),
		S3AccessKey:            envString("S3_ACCESS_KEY", ""),
		S3SecretKey:            envString("S3_SECRET_KEY", ""),
		S3Endpoint:             envString("S3_ENDPOINT", ""),
		S3PresignExpiryPrivate: envDuration("S3_PRESIGN_EXPIRY_PRIVATE", 1*time.Hour),
		UploadPath:             envString("UPLOAD_PATH", "./data/uploads"),

		// Vision
		VisionCredentials: envString("VISION_CREDENTIALS", VisionCredentialsDeployment),
		GeminiAPIKey:      envString("GEMINI_API_KEY", ""),
		GeminiModel:       envString("GEMINI_MODEL", "gemini-2.5-flash"),
		VisionTimeout:     envDuration("VISION_TIMEOUT", 2*time.Minute),

		// Goals
		AllowLateProof:         envBool("ALLOW_LATE_PROOF", false),
		DeadlineNotifyInterval: envDuration("DEADLINE_NOTIFY_INTERVAL", time.Minute),
	}

	if cfg.VisionCredentials != VisionCredentialsDeployment && cfg.VisionCredentials != VisionCredentialsUser {
		slog.Warn("config invalid vision credentials mode, using default", "value", cfg.VisionCredentials, "default", VisionCredentialsDeployment)
		cfg.VisionCredentials = VisionCredentialsDeployment
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures all required services are configured for production deployments.
// Development allows email to use log mode for easier local testing.
func validateProduction(cfg *Config) {
	if cfg.ResendAPIKey == "" {
		slog.Error("production deployment requires RESEND_API_KEY",
			"hint", "set APP_ENV=development for local testing with email log mode")
		os.Exit(1)
	}
	if cfg.UsesDeploymentVisionKey() && cfg.GeminiAPIKey == "" {
		slog.Error("production deployment requires GEMINI_API_KEY",
			"hint", "set VISION_CREDENTIALS=user to let each user supply a key")
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

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
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

// UsesDeploymentVisionKey reports whether one server-side key serves every user.
func (c *Config) UsesDeploymentVisionKey() bool {
	return c.VisionCredentials != VisionCredentialsUser
}

func (c *Config) GoogleOAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Sanitized returns a copy of the config with only public/safe fields.
// Safe to expose in ctx, templates and client-facing contexts.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName:      c.AppName,
		AppEnv:       c.AppEnv,
		AppURL:       c.AppURL,
		Port:         c.Port,
		AppTagline:   c.AppTagline,
		SupportEmail: c.SupportEmail,

		EmailFrom: c.EmailFrom,

		GoogleClientID:     c.GoogleClientID,
		GoogleClientSecret: redacted(c.GoogleClientSecret),

		S3Endpoint: c.S3Endpoint, // Needed for CSP policies

		VisionCredentials:      c.VisionCredentials,
		GeminiModel:            c.GeminiModel,
		AllowLateProof:         c.AllowLateProof,
		DeadlineNotifyInterval: c.DeadlineNotifyInterval,
	}
}

// redacted keeps presence information for templates without leaking the value.
func redacted(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
