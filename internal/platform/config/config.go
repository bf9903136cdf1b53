package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	MigrationsPath string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool

	JWTSecret         string
	JWTIssuer         string
	JWTExpiryDuration time.Duration

	// Provider notifications
	WebhookSecret string
	ServiceURL    string // Public base URL used to build content proxy links

	// External job provider
	ProviderBaseURL          string
	ProviderAPIKey           string
	ProviderTimeout          time.Duration
	VerifyProviderOnComplete bool

	// Credits
	WelcomeCredits       int64
	MaxGenerationsPerDay int
	DownloadURLTTL       time.Duration
	AppleBundleID        string

	// Request rate limiting, ulule limiter format ("100-M")
	RateLimit          string
	RedisURL           string
	CORSAllowedOrigins []string
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback)
		}
		return fallback
	}
	return d
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", true)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_ISSUER", "")
	viper.SetDefault("JWT_EXPIRY_DURATION", "720h")
	viper.SetDefault("WEBHOOK_SECRET", "")
	viper.SetDefault("SERVICE_URL", "http://localhost:8080")
	viper.SetDefault("PROVIDER_BASE_URL", "https://api.openai.com/v1")
	viper.SetDefault("PROVIDER_API_KEY", "")
	viper.SetDefault("PROVIDER_TIMEOUT", "60s")
	viper.SetDefault("VERIFY_PROVIDER_ON_COMPLETE", true)
	viper.SetDefault("WELCOME_CREDITS", 100)
	viper.SetDefault("MAX_GENERATIONS_PER_DAY", 20)
	viper.SetDefault("DOWNLOAD_URL_TTL", "24h")
	viper.SetDefault("APPLE_BUNDLE_ID", "")
	viper.SetDefault("RATE_LIMIT", "120-M")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	viper.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:              viper.GetString("PGSQL_URL"),
		MigrationsPath:           viper.GetString("MIGRATIONS_PATH"),
		Port:                     viper.GetString("PORT"),
		IsProduction:             viper.GetBool("IS_PRODUCTION"),
		EnableDBCheck:            viper.GetBool("ENABLE_DB_CHECK"),
		JWTSecret:                viper.GetString("JWT_SECRET"),
		JWTIssuer:                viper.GetString("JWT_ISSUER"),
		JWTExpiryDuration:        parseDuration("JWT_EXPIRY_DURATION", 30*24*time.Hour),
		WebhookSecret:            viper.GetString("WEBHOOK_SECRET"),
		ServiceURL:               strings.TrimRight(viper.GetString("SERVICE_URL"), "/"),
		ProviderBaseURL:          strings.TrimRight(viper.GetString("PROVIDER_BASE_URL"), "/"),
		ProviderAPIKey:           viper.GetString("PROVIDER_API_KEY"),
		ProviderTimeout:          parseDuration("PROVIDER_TIMEOUT", 60*time.Second),
		VerifyProviderOnComplete: viper.GetBool("VERIFY_PROVIDER_ON_COMPLETE"),
		WelcomeCredits:           viper.GetInt64("WELCOME_CREDITS"),
		MaxGenerationsPerDay:     viper.GetInt("MAX_GENERATIONS_PER_DAY"),
		DownloadURLTTL:           parseDuration("DOWNLOAD_URL_TTL", 24*time.Hour),
		AppleBundleID:            viper.GetString("APPLE_BUNDLE_ID"),
		RateLimit:                viper.GetString("RATE_LIMIT"),
		RedisURL:                 viper.GetString("REDIS_URL"),
	}

	for _, origin := range strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set. Using the in-memory store.")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	if cfg.WebhookSecret == "" {
		log.Println("Warning: WEBHOOK_SECRET not set. Provider notifications will be rejected.")
	}
	if cfg.ProviderAPIKey == "" {
		log.Println("Warning: PROVIDER_API_KEY not set. Job submissions will fail.")
	}
	if cfg.WelcomeCredits < 0 {
		log.Printf("Warning: Negative WELCOME_CREDITS (%d). Defaulting to 0.\n", cfg.WelcomeCredits)
		cfg.WelcomeCredits = 0
	}
	if cfg.MaxGenerationsPerDay < 0 {
		cfg.MaxGenerationsPerDay = 0
	}

	return cfg, nil
}
