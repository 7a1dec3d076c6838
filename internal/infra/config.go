package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	AutoMigrate bool
	DBMaxConns  int
	SlowQuery   time.Duration

	StorageBaseDir   string
	StorageInputDir  string
	StorageOutputDir string

	GeminiAPIKey      string
	GeminiModel       string
	GeminiImageSize   string
	GenerationTimeout time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	MaxRequestBytes  int64
	RateLimitPerMin  int
	CORSOrigins      []string

	GeoIPDBPath string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	AMQPURL   string
	AMQPQueue string

	StaleJobAfter time.Duration
	SweepInterval time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		AutoMigrate: getEnvBool("AUTO_MIGRATE", true),
		DBMaxConns:  getEnvInt("DB_MAX_CONNS", 10),
		SlowQuery:   time.Millisecond * time.Duration(getEnvInt("SLOW_QUERY_MS", 500)),

		StorageBaseDir:   getEnv("STORAGE_BASE_DIR", "."),
		StorageInputDir:  getEnv("STORAGE_INPUT_DIR", "uploads"),
		StorageOutputDir: getEnv("STORAGE_OUTPUT_DIR", "outputs"),

		GeminiAPIKey:      strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),
		GeminiImageSize:   getEnv("GEMINI_IMAGE_SIZE", "1K"),
		GenerationTimeout: time.Second * time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 300)),

		HTTPReadTimeout: time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout: time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		MaxRequestBytes: int64(getEnvInt("MAX_REQUEST_MB", 32)) << 20,
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:     splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "image-assets"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", true),

		AMQPURL:   os.Getenv("AMQP_URL"),
		AMQPQueue: getEnv("AMQP_QUEUE", "image_jobs.events"),

		StaleJobAfter: time.Minute * time.Duration(getEnvInt("STALE_JOB_MINUTES", 30)),
		SweepInterval: time.Second * time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 300)),
	}

	// A generation request holds the response open for the whole stream.
	minWrite := cfg.GenerationTimeout + 30*time.Second
	cfg.HTTPWriteTimeout = time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", int(minWrite/time.Second)))
	if cfg.HTTPWriteTimeout < minWrite {
		cfg.HTTPWriteTimeout = minWrite
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.GenerationTimeout <= 0 {
		return nil, fmt.Errorf("GENERATION_TIMEOUT_SECONDS must be positive")
	}
	if cfg.SweepInterval <= 0 || cfg.StaleJobAfter <= 0 {
		return nil, fmt.Errorf("SWEEP_INTERVAL_SECONDS and STALE_JOB_MINUTES must be positive")
	}
	// The sweeper must never fail a job whose stream can still be running.
	if cfg.StaleJobAfter <= cfg.GenerationTimeout {
		return nil, fmt.Errorf("STALE_JOB_MINUTES (%s) must exceed GENERATION_TIMEOUT_SECONDS (%s)", cfg.StaleJobAfter, cfg.GenerationTimeout)
	}
	if cfg.StorageInputDir == cfg.StorageOutputDir {
		return nil, fmt.Errorf("STORAGE_INPUT_DIR and STORAGE_OUTPUT_DIR must differ")
	}

	return cfg, nil
}

// MinioEnabled reports whether the object mirror is configured.
func (c *Config) MinioEnabled() bool {
	return c.MinioEndpoint != "" && c.MinioAccessKey != "" && c.MinioSecretKey != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
