package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
	SMTPTLS      bool

	SNSRegion   string
	SNSTopicARN string // verification events; empty disables publishing

	AllowedOrigins []string // CORS allowed origins

	// Code issuance and redemption (server side).
	CodeTTL         time.Duration
	SessionTTL      time.Duration
	MaxAttempts     int
	SendInterval    time.Duration // minimum spacing between codes for one email
	SendBurst       int
	PublicRateRPS   float64
	PublicRateBurst int

	// Client side (verifyctl).
	APIBaseURL    string
	ClientTimeout time.Duration
	CacheBackend  string // "file" | "s3" | "memory"
	CacheDir      string
	CacheS3Bucket string
	CacheS3Prefix string
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	VerificationCodes string
	AdminSettings     string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			VerificationCodes: getEnv("DYNAMO_TABLE_VERIFICATION_CODES", "verification_codes"),
			AdminSettings:     getEnv("DYNAMO_TABLE_ADMIN_SETTINGS", "admin_settings"),
		},
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 12*time.Hour),
		SMTPHost:          getEnv("SMTP_HOST", "localhost"),
		SMTPPort:          getEnvInt("SMTP_PORT", 1025),
		SMTPFrom:          getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SMTPTLS:           getEnvBool("SMTP_TLS", false),
		SNSRegion:         getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN:       getEnv("SNS_TOPIC_ARN", ""),
		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		CodeTTL:           getEnvDuration("VERIFY_CODE_TTL", 10*time.Minute),
		SessionTTL:        getEnvDuration("VERIFY_SESSION_TTL", 15*time.Minute),
		MaxAttempts:       getEnvInt("VERIFY_MAX_ATTEMPTS", 5),
		SendInterval:      getEnvDuration("VERIFY_SEND_INTERVAL", 30*time.Second),
		SendBurst:         getEnvInt("VERIFY_SEND_BURST", 3),
		PublicRateRPS:     getEnvFloat("PUBLIC_RATE_RPS", 5),
		PublicRateBurst:   getEnvInt("PUBLIC_RATE_BURST", 10),
		APIBaseURL:        getEnv("VERIFY_API_URL", "http://localhost:3000"),
		ClientTimeout:     getEnvDuration("VERIFY_CLIENT_TIMEOUT", 15*time.Second),
		CacheBackend:      getEnv("VERIFY_CACHE_BACKEND", "file"),
		CacheDir:          getEnv("VERIFY_CACHE_DIR", defaultCacheDir()),
		CacheS3Bucket:     getEnv("VERIFY_CACHE_S3_BUCKET", ""),
		CacheS3Prefix:     getEnv("VERIFY_CACHE_S3_PREFIX", "verify-cache/"),
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "prayer-verify")
	}
	return ".prayer-verify"
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

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s", "15m").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
