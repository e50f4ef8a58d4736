package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string

	// DATABASE_URL selects the Postgres session store; when empty the
	// service runs on the in-memory store (single instance only).
	DatabaseURL string
	// DIRECT_URL is the direct connection used for migrations when the
	// runtime URL goes through a pooler.
	DirectURL string

	DB DBConfig

	// PublicBaseURL is the externally reachable URL for this backend,
	// required for webhook registration at install time.
	PublicBaseURL string

	Platform PlatformConfig

	// AllowedOrigins is the CORS allowlist for the embedded-app frontend.
	AllowedOrigins []string

	// SessionSweepInterval controls the periodic expired-session sweep.
	SessionSweepInterval time.Duration
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

type PlatformConfig struct {
	APIKey      string
	APISecret   string
	Scopes      []string
	RedirectURL string

	// WebhookSecret signs webhook deliveries. Leaving it empty disables
	// signature verification; that is an explicit opt-out, not a default.
	WebhookSecret string

	// ShopSuffix is the platform's shop-domain suffix.
	ShopSuffix string

	APIVersion string

	// WebhookTopics are registered against the platform on install.
	WebhookTopics []string
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8081"
		}
	}

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		PublicBaseURL:  os.Getenv("PUBLIC_BASE_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "platformauth"),
			User:     env("DB_USER", "platformauth"),
			Password: env("DB_PASSWORD", "platformauth"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		Platform: PlatformConfig{
			APIKey:        os.Getenv("PLATFORM_API_KEY"),
			APISecret:     os.Getenv("PLATFORM_API_SECRET"),
			Scopes:        envList("PLATFORM_SCOPES", "read_orders"),
			RedirectURL:   os.Getenv("PLATFORM_REDIRECT_URL"),
			WebhookSecret: os.Getenv("PLATFORM_WEBHOOK_SECRET"),
			ShopSuffix:    env("PLATFORM_SHOP_SUFFIX", "example-platform.com"),
			APIVersion:    env("PLATFORM_API_VERSION", "2025-10"),
			WebhookTopics: envList("PLATFORM_WEBHOOK_TOPICS",
				"orders/create,app/uninstalled,app_subscriptions/update"),
		},
		AllowedOrigins:       envList("ALLOWED_ORIGINS", "http://localhost:5173"),
		SessionSweepInterval: envDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
	}
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
