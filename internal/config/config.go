package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppEnv string
	Port   string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security (tokens are issued elsewhere, only verified here)
	JWTSecret string

	// Observability (optional)
	SentryDSN string

	// Content store: "local" or "s3"
	StorageDriver   string
	UploadDir       string
	UploadURLPrefix string
	ServeUploads    bool // Serve UploadDir over HTTP when no external static server fronts it

	// Transcoding
	UploadMaxBytes int64
	ImageMaxWidth  int
	ImageQuality   int
	ImageMaxPixels int

	// Listing
	DefaultPageSize int
	MaxPageSize     int

	// Admin API rate limit per client IP
	AdminRateLimit       int
	AdminRateLimitWindow time.Duration

	// Storage (S3-compatible: MinIO, AWS S3, Cloudflare R2, DigitalOcean Spaces, etc.)
	S3Region              string
	S3Bucket              string
	S3AccessKey           string
	S3SecretKey           string
	S3Endpoint            string        // Optional: for S3-compatible services (MinIO, DO Spaces, R2, etc.)
	S3Prefix              string        // Key prefix inside the bucket
	S3PresignExpiryPublic time.Duration // Expiry for gallery URLs - default: 7 days
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppEnv: envRequired("APP_ENV"), // Required: 'development' or 'production'
		Port:   envString("PORT", "3001"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/gallery.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"),

		// Security
		JWTSecret: envRequired("JWT_SECRET"),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Content store
		StorageDriver:   envString("STORAGE_DRIVER", "local"),
		UploadDir:       envString("UPLOAD_DIR", "uploads/gallery"),
		UploadURLPrefix: envString("UPLOAD_URL_PREFIX", "/uploads/gallery"),
		ServeUploads:    envBool("SERVE_UPLOADS", true),

		// Transcoding
		UploadMaxBytes: envInt64("UPLOAD_MAX_BYTES", 5<<20), // 5MB
		ImageMaxWidth:  envInt("IMAGE_MAX_WIDTH", 1600),
		ImageQuality:   envInt("IMAGE_QUALITY", 80),
		ImageMaxPixels: envInt("IMAGE_MAX_PIXELS", 50_000_000),

		// Listing
		DefaultPageSize: envInt("GALLERY_PAGE_SIZE", 12),
		MaxPageSize:     envInt("GALLERY_MAX_PAGE_SIZE", 100),

		// Admin API
		AdminRateLimit:       envInt("ADMIN_RATE_LIMIT", 120),
		AdminRateLimitWindow: envDuration("ADMIN_RATE_LIMIT_WINDOW", time.Minute),

		// Storage (only read when STORAGE_DRIVER=s3)
		S3Region:              envString("S3_REGION", ""),
		S3Bucket:              envString("S3_BUCKET", ""),
		S3AccessKey:           envString("S3_ACCESS_KEY", ""),
		S3SecretKey:           envString("S3_SECRET_KEY", ""),
		S3Endpoint:            envString("S3_ENDPOINT", ""),                           // Optional: for non-AWS providers
		S3Prefix:              envString("S3_PREFIX", "gallery"),
		S3PresignExpiryPublic: envDuration("S3_PRESIGN_EXPIRY_PUBLIC", 168*time.Hour), // Default: 7 days
	}

	if cfg.StorageDriver == "s3" {
		validateS3(cfg)
	}

	return cfg
}

// validateS3 ensures the bucket settings are present before the S3 client is built.
func validateS3(cfg *Config) {
	for key, value := range map[string]string{
		"S3_REGION":     cfg.S3Region,
		"S3_BUCKET":     cfg.S3Bucket,
		"S3_ACCESS_KEY": cfg.S3AccessKey,
		"S3_SECRET_KEY": cfg.S3SecretKey,
	} {
		if value == "" {
			slog.Error("s3 storage requires env var", "key", key)
			os.Exit(1)
		}
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return i
}

func envInt64(key string, def int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return i
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
