package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every externally supplied setting of the server.
type Config struct {
	Port string

	MongoURI        string
	MongoDB         string
	UseTransactions bool

	JWTSecret    string
	TokenExpiry  time.Duration
	CookieSecure bool

	AllowedOrigins []string
	TrustedProxies []string

	RedisAddr       string
	RedisPassword   string
	RedisChannel    string
	LoginRateLimit  int
	LoginRateWindow time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MediaPublicURL string
	UploadDir      string

	SMTPHost     string
	SMTPPort     string
	SMTPSender   string
	SMTPPassword string

	LogLevel          string
	ReconcileSchedule string
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	return &Config{
		Port: getEnv("PORT", "8080"),

		MongoURI:        os.Getenv("MONGO_URI"),
		MongoDB:         getEnv("MONGO_DB", "blogsphere"),
		UseTransactions: getBool("MONGO_TRANSACTIONS", true),

		JWTSecret:    os.Getenv("JWT_SECRET"),
		TokenExpiry:  getDuration("TOKEN_EXPIRY", 7*24*time.Hour),
		CookieSecure: getBool("COOKIE_SECURE", true),

		AllowedOrigins: getList("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:5174"}),
		TrustedProxies: getList("TRUSTED_PROXIES", nil),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisChannel:    getEnv("REDIS_CHANNEL", "blogsphere:events"),
		LoginRateLimit:  getInt("LOGIN_RATE_LIMIT", 10),
		LoginRateWindow: getDuration("LOGIN_RATE_WINDOW", time.Minute),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "blogsphere"),
		MinioUseSSL:    getBool("MINIO_USE_SSL", false),
		MediaPublicURL: os.Getenv("MEDIA_PUBLIC_URL"),
		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPSender:   os.Getenv("SMTP_SENDER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),

		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", "@hourly"),
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.MongoURI == "" {
		errs = append(errs, errors.New("MONGO_URI is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.TokenExpiry <= 0 {
		errs = append(errs, errors.New("TOKEN_EXPIRY must be positive"))
	}
	return errors.Join(errs...)
}

// MinioEnabled reports whether uploads go to object storage instead of local disk.
func (c *Config) MinioEnabled() bool {
	return c.MinioEndpoint != "" && c.MinioAccessKey != "" && c.MinioSecretKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
