package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"docs-backend/internal/shared/telemetry"
)

const devJWTSecret = "dev-secret"

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	DatabaseURL     string
	CORSAllowOrigin []string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	JWTSecret      string
	JWTTTL         time.Duration
	MaxUploadBytes int64

	IngestionSuccessRate float64
	IngestionMinDelay    time.Duration
	IngestionMaxDelay    time.Duration
	EmbeddingDimensions  int
	IngestionQueueURL    string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),

		JWTSecret:      jwtSecret(env),
		JWTTTL:         getDuration("JWT_TTL", 24*time.Hour),
		MaxUploadBytes: getInt64("MAX_UPLOAD_BYTES", 10<<20),

		IngestionSuccessRate: getFloat("INGESTION_SUCCESS_RATE", 0.9),
		IngestionMinDelay:    getDuration("INGESTION_MIN_DELAY", 2*time.Second),
		IngestionMaxDelay:    getDuration("INGESTION_MAX_DELAY", 5*time.Second),
		EmbeddingDimensions:  int(getInt64("EMBEDDING_DIMENSIONS", 384)),
		IngestionQueueURL:    getEnv("INGESTION_QUEUE_URL", ""),
	}
}

// IsProduction reports whether the config targets production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate reports settings that are unusable for the configured environment.
func (c Config) Validate() error {
	var errs []error
	if c.IsProduction() {
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required in production"))
		}
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required in production"))
		}
	}
	if c.ObjectStoreType == "s3" && c.S3Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET is required when OBJECT_STORE=s3"))
	}
	if c.IngestionMaxDelay < c.IngestionMinDelay {
		errs = append(errs, errors.New("INGESTION_MAX_DELAY must not be below INGESTION_MIN_DELAY"))
	}
	if c.IngestionSuccessRate <= 0 || c.IngestionSuccessRate > 1 {
		errs = append(errs, errors.New("INGESTION_SUCCESS_RATE must be in (0, 1]"))
	}
	return errors.Join(errs...)
}

// jwtSecret falls back to a fixed dev secret outside production only.
func jwtSecret(env string) string {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" && env != "production" {
		return devJWTSecret
	}
	return secret
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		telemetry.Warn("config.invalid_value", map[string]any{"key": key, "error": err})
		return def
	}
	return val
}

func getInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		telemetry.Warn("config.invalid_value", map[string]any{"key": key, "error": err})
		return def
	}
	return val
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		telemetry.Warn("config.invalid_value", map[string]any{"key": key, "error": err})
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
