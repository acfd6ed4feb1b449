package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort            = "3000"
	defaultAppEnv          = "local"
	defaultDBName          = "PodResellerDB"
	defaultDBHost          = "cluster0.8zviwwt.mongodb.net"
	defaultMinioBucket     = "products"
	defaultSMTPPort        = 587
	defaultCleanupInterval = time.Minute
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port   string
	AppEnv string

	MongoURI          string
	DBName            string
	MongoTransactions bool

	TokenSecret string

	StripeKey           string
	StripeWebhookSecret string

	RedisAddr     string
	RedisPassword string

	ElasticURL      string
	ElasticUser     string
	ElasticPassword string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	CleanupInterval time.Duration
	CORSOrigins     []string
}

// Load reads .env (if present) into the process environment, then builds a Config.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		slog.Info("no .env file found, using system environment")
	} else {
		slog.Info(".env file loaded")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() Config {
	cfg := Config{
		Port:   get("PORT", defaultPort),
		AppEnv: get("APP_ENV", defaultAppEnv),

		MongoURI:          get("MONGO_URI", ""),
		DBName:            get("DB_NAME", defaultDBName),
		MongoTransactions: getBool("MONGO_TRANSACTIONS", false),

		TokenSecret: get("ACCESS_TOKEN_SECRET", ""),

		StripeKey:           get("PAYMENT_SECRET_KEY", ""),
		StripeWebhookSecret: get("STRIPE_WEBHOOK_SECRET", ""),

		RedisAddr:     get("REDIS_ADDR", ""),
		RedisPassword: get("REDIS_PASSWORD", ""),

		ElasticURL:      get("ELASTIC_URL", ""),
		ElasticUser:     get("ELASTIC_USER", ""),
		ElasticPassword: get("ELASTIC_PASSWORD", ""),

		MinioEndpoint:  get("MINIO_ENDPOINT", ""),
		MinioAccessKey: get("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: get("MINIO_SECRET_KEY", ""),
		MinioBucket:    get("MINIO_BUCKET", defaultMinioBucket),
		MinioUseSSL:    getBool("MINIO_USE_SSL", false),

		SMTPHost:     get("SMTP_HOST", ""),
		SMTPPort:     getInt("SMTP_PORT", defaultSMTPPort),
		SMTPUsername: get("SMTP_USERNAME", ""),
		SMTPPassword: get("SMTP_PASSWORD", ""),
		SMTPFrom:     get("SMTP_FROM", "noreply@podreseller.com"),

		CleanupInterval: getDuration("CLEANUP_INTERVAL", defaultCleanupInterval),
		CORSOrigins:     getList("CORS_ORIGINS", []string{"*"}),
	}

	if cfg.MongoURI == "" {
		cfg.MongoURI = atlasURI(get("DB_USER", ""), get("DB_PASSWORD", ""), get("DB_HOST", defaultDBHost))
	}
	return cfg
}

// atlasURI mirrors the SRV connection string the storefront has always used.
func atlasURI(user, password, host string) string {
	if user == "" {
		return "mongodb://localhost:27017"
	}
	return fmt.Sprintf("mongodb+srv://%s:%s@%s/?retryWrites=true&w=majority", user, password, host)
}

// Validate reports every required key that is missing.
func (c Config) Validate() error {
	var errs []error
	if c.TokenSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET is required"))
	}
	if c.StripeKey == "" {
		errs = append(errs, errors.New("PAYMENT_SECRET_KEY is required"))
	}
	if c.MongoURI == "" {
		errs = append(errs, errors.New("MONGO_URI or DB_USER/DB_PASSWORD is required"))
	}
	if c.CleanupInterval <= 0 {
		errs = append(errs, errors.New("CLEANUP_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

func get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(get(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(get(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(get(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getList(key string, fallback []string) []string {
	raw := get(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
