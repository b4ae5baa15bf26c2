package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string
	AppMode string
	LogMode string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	S3Region     string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3Endpoint   string
	S3PublicBase string
	S3PresignTTL time.Duration
	S3PartSize   int64

	Upload UploadConfig

	UploadRateLimit  int
	UploadRateWindow time.Duration

	APIBaseURL           string
	ProgressReportPerSec float64
}

// UploadConfig holds the tunables of the upload engine.
type UploadConfig struct {
	MultipartThreshold int64
	PartConcurrency    int
	FileConcurrency    int
	PartMaxAttempts    int
	RetryBaseDelay     time.Duration
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort: getEnv("APP_PORT", "8080"),
		AppMode: getEnv("APP_MODE", "debug"),
		LogMode: getEnv("LOG_MODE", "development"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "guest_snapper"),
		DBPort:     getEnv("DB_PORT", "5432"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		S3Region:     getEnv("S3_REGION", "us-east-1"),
		S3Bucket:     getEnv("S3_BUCKET", ""),
		S3AccessKey:  getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:  getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),
		S3PublicBase: getEnv("S3_PUBLIC_BASE", ""),
		S3PresignTTL: getEnvAsDuration("S3_PRESIGN_TTL_SEC", time.Hour),
		S3PartSize:   getEnvAsInt64("S3_PART_SIZE_BYTES", 10*1024*1024),

		Upload: UploadConfig{
			MultipartThreshold: getEnvAsInt64("UPLOAD_MULTIPART_THRESHOLD_BYTES", 10*1024*1024),
			PartConcurrency:    getEnvAsInt("UPLOAD_PART_CONCURRENCY", 4),
			FileConcurrency:    getEnvAsInt("UPLOAD_FILE_CONCURRENCY", 3),
			PartMaxAttempts:    getEnvAsInt("UPLOAD_PART_MAX_ATTEMPTS", 4),
			RetryBaseDelay:     time.Duration(getEnvAsInt("UPLOAD_RETRY_BASE_DELAY_MS", 500)) * time.Millisecond,
		},

		UploadRateLimit:  getEnvAsInt("UPLOAD_RATE_LIMIT", 120),
		UploadRateWindow: getEnvAsDuration("UPLOAD_RATE_WINDOW_SEC", time.Minute),

		APIBaseURL:           getEnv("API_BASE_URL", "http://localhost:8080"),
		ProgressReportPerSec: getEnvAsFloat("PROGRESS_REPORT_PER_SEC", 4),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration reads a number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(value) * time.Second
	}
	return fallback
}
