package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DatabaseURL string
	DBHost      string
	DBUser      string
	DBPass      string
	DBName      string
	DBPort      string
	RedisURL    string

	JWTSecret string
	JWTTTL    time.Duration

	StorageDriver string

	CloudinaryURL          string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string

	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3PublicBaseURL string
	S3URLTTL        time.Duration

	MeiliSearchHost string
	MeiliMasterKey  string

	UploadSpoolDir      string
	UploadLockTTL       time.Duration
	UploadTaskRetention time.Duration
	OrphanBlobRetention time.Duration
	JobSchedule         string

	AdminEmail    string
	AdminPassword string
}

const (
	StorageCloudinary = "cloudinary"
	StorageS3         = "s3"
)

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPass:      os.Getenv("DB_PASS"),
		DBName:      getEnv("DB_NAME", "labeeb_academy"),
		DBPort:      getEnv("DB_PORT", "5432"),
		RedisURL:    os.Getenv("REDIS_URL"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		StorageDriver: getEnv("STORAGE_DRIVER", StorageCloudinary),

		CloudinaryURL:          os.Getenv("CLOUDINARY_URL"),
		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:       os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "labeeb_academy"),

		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),

		MeiliSearchHost: os.Getenv("MEILISEARCH_HOST"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		UploadSpoolDir: getEnv("UPLOAD_SPOOL_DIR", os.TempDir()),
		JobSchedule:    getEnv("JOB_SCHEDULE", "@every 15m"),

		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@labeeb.academy"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	// Parsing durations
	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"JWT_TTL", "24h", &cfg.JWTTTL},
		{"S3_URL_TTL", "168h", &cfg.S3URLTTL},
		{"UPLOAD_LOCK_TTL", "1h", &cfg.UploadLockTTL},
		{"UPLOAD_TASK_RETENTION", "1h", &cfg.UploadTaskRetention},
		{"ORPHAN_BLOB_RETENTION", "0s", &cfg.OrphanBlobRetention},
	}
	for _, d := range durations {
		v, err := parseDuration(getEnv(d.key, d.fallback))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "12345"
	}

	switch cfg.StorageDriver {
	case StorageCloudinary, StorageS3:
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q: want %s or %s", cfg.StorageDriver, StorageCloudinary, StorageS3)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}
