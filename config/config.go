package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port          string
	MongoURI      string
	DBName        string
	S3Bucket      string
	S3Region      string
	S3AccessKeyID string
	S3SecretKey   string
	JWTSecret     string
	ClientURL     string
	MaxUploadMB   int64
	RateLimit     int
	RateWindowSec int
}

func Load() (*Config, error) {
	maxMB := int64(10)
	if v := getEnv("MAX_UPLOAD_MB", "10"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			maxMB = n
		}
	}
	rateLimit := 100
	if n, err := strconv.Atoi(getEnv("RATE_LIMIT_MAX_REQUESTS", "100")); err == nil && n > 0 {
		rateLimit = n
	}
	rateWindow := 900
	if n, err := strconv.Atoi(getEnv("RATE_LIMIT_WINDOW_SEC", "900")); err == nil && n > 0 {
		rateWindow = n
	}

	return &Config{
		Port:          getEnv("PORT", "8080"),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:        getEnv("MONGODB_DB", "buildwise"),
		S3Bucket:      getEnv("AWS_S3_BUCKET", ""),
		S3Region:      getEnv("AWS_REGION", "eu-central-1"),
		S3AccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		ClientURL:     getEnv("CLIENT_URL", "http://localhost:3000"),
		MaxUploadMB:   maxMB,
		RateLimit:     rateLimit,
		RateWindowSec: rateWindow,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// RequiredEnvVars are checked at startup; app exits if any are unset.
var RequiredEnvVars = []string{
	"MONGODB_URI",
	"MONGODB_DB",
	"JWT_SECRET",
}

// OptionalEnvVars are logged at startup so you can confirm they are loaded when set.
// The AWS vars are optional: without them the server runs with document
// uploads disabled.
var OptionalEnvVars = []string{
	"PORT",
	"CLIENT_URL",
	"AWS_S3_BUCKET",
	"AWS_REGION",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"MAX_UPLOAD_MB",
	"RATE_LIMIT_MAX_REQUESTS",
	"RATE_LIMIT_WINDOW_SEC",
}

// ValidateEnv checks that all required env vars are set and logs status of required + optional.
// Calls log.Fatal if any required var is missing.
func ValidateEnv() {
	var missing []string
	for _, key := range RequiredEnvVars {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		} else {
			log.Printf("env %s loaded", key)
		}
	}
	if len(missing) > 0 {
		log.Fatalf("missing required env: %s (set these in .env or environment)", strings.Join(missing, ", "))
	}
	for _, key := range OptionalEnvVars {
		v := strings.TrimSpace(os.Getenv(key))
		if v != "" {
			log.Printf("env %s = %s", key, v)
		} else {
			log.Printf("env %s not set (optional)", key)
		}
	}
	if j := os.Getenv("JWT_SECRET"); j == "change-me-in-production" {
		log.Fatal("JWT_SECRET must be set to a strong secret (not the default change-me-in-production)")
	}
}
