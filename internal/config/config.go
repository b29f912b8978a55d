package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	// SessionSecret signs the session cookie token. Mandatory; main treats a
	// missing secret as an unrecoverable startup fault.
	SessionSecret   string
	SessionDuration time.Duration

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion string

	GoogleClientID string

	AllowedOrigins []string // CORS allowed origins

	// ProtectedPrefixes are path prefixes gated by the optimistic
	// cookie-presence check; requests without a session cookie are redirected
	// to the public root.
	ProtectedPrefixes []string
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users         string
	Sessions      string
	Verifications string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		SessionSecret:   os.Getenv("SESSION_SECRET"),
		SessionDuration: time.Duration(getEnvInt("SESSION_DURATION_DAYS", 30)) * 24 * time.Hour,

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:         getEnv("DYNAMO_TABLE_USERS", "users"),
			Sessions:      getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
			Verifications: getEnv("DYNAMO_TABLE_VERIFICATIONS", "verifications"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "otp-auth-avatars"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion: getEnv("SNS_REGION", "us-east-1"),

		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),

		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		ProtectedPrefixes: strings.Split(getEnv("PROTECTED_PREFIXES", "/dashboard"), ","),
	}
}

// IsProduction reports whether the app runs with production hardening
// (secure cookies).
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
