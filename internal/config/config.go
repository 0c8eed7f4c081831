package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	Locale             string
	Timezone           string
	CORSAllowedOrigins []string

	// Scheduling backend
	BackendBaseURL string
	BackendTimeout time.Duration

	// Optional session bootstrap; normally the UI posts these to /session.
	SessionToken      string
	SessionUserID     string
	SessionUserName   string
	SessionUserEmail  string
	SessionUserAvatar string

	// Provider cache
	RedisAddr        string
	RedisPassword    string
	RedisTLS         bool
	ProviderCacheTTL time.Duration

	// Avatars
	AvatarBucket         string
	AvatarPresign        bool
	AvatarPresignTTL     time.Duration
	AvatarPlaceholderURL string

	// Booking confirmation email
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Locale:             getEnv("LOCALE", "pt-BR"),
		Timezone:           getEnv("TIMEZONE", "Local"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		BackendBaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:3333"),
		BackendTimeout: getEnvAsDuration("BACKEND_TIMEOUT", 15*time.Second),

		SessionToken:      getEnv("SESSION_TOKEN", ""),
		SessionUserID:     getEnv("SESSION_USER_ID", ""),
		SessionUserName:   getEnv("SESSION_USER_NAME", ""),
		SessionUserEmail:  getEnv("SESSION_USER_EMAIL", ""),
		SessionUserAvatar: getEnv("SESSION_USER_AVATAR", ""),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisTLS:         getEnvAsBool("REDIS_TLS", false),
		ProviderCacheTTL: getEnvAsDuration("PROVIDER_CACHE_TTL", 10*time.Minute),

		AvatarBucket:         getEnv("AVATAR_BUCKET", "beardio-files"),
		AvatarPresign:        getEnvAsBool("AVATAR_PRESIGN", false),
		AvatarPresignTTL:     getEnvAsDuration("AVATAR_PRESIGN_TTL", 15*time.Minute),
		AvatarPlaceholderURL: getEnv("AVATAR_PLACEHOLDER_URL", "https://cdn-icons-png.flaticon.com/512/149/149071.png"),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "none"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "GoBarber"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Local
	}
	return loc
}

// HasBootstrapSession reports whether env carries a pre-established session.
func (c *Config) HasBootstrapSession() bool {
	return strings.TrimSpace(c.SessionToken) != "" && strings.TrimSpace(c.SessionUserID) != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
