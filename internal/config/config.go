// Package config collects the service tunables from the environment.
package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/Lumi182/paygate/internal/paypal"
)

const (
	defaultPort            = "3001"
	defaultJWTSecret       = "change_me_to_a_long_random_secret"
	defaultTokenTTL        = time.Hour
	defaultSweepInterval   = 10 * time.Minute
	defaultProductName     = "email_summarizer"
	defaultProductAmount   = "5.00"
	defaultProductCurrency = "EUR"
	defaultProductFile     = "Email_Summarizer.zip"
	defaultFilePath        = "files/Email_Summarizer.zip"
)

type Config struct {
	Port          string
	PublicBaseURL string
	CORSOrigins   []string
	DatabaseURL   string

	JWTSecret     string
	TokenTTL      time.Duration
	SweepInterval time.Duration

	ProductName     string
	ProductAmount   string
	ProductCurrency string
	ProductFile     string

	OriginURL string
	FilePath  string

	PayPalBaseURL      string
	PayPalClientID     string
	PayPalClientSecret string
}

// FromEnv reads the configuration, logging a warning and falling back
// to a default for every unset value.
func FromEnv(logger *log.Logger) Config {
	if logger == nil {
		logger = log.Default()
	}

	cfg := Config{
		Port:               envOrDefault(logger, "PORT", defaultPort),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		ProductName:        envOrDefault(logger, "PRODUCT_NAME", defaultProductName),
		ProductAmount:      envOrDefault(logger, "PRODUCT_AMOUNT", defaultProductAmount),
		ProductCurrency:    envOrDefault(logger, "PRODUCT_CURRENCY", defaultProductCurrency),
		ProductFile:        envOrDefault(logger, "PRODUCT_FILE", defaultProductFile),
		OriginURL:          os.Getenv("ORIGIN_URL"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		PayPalClientID:     os.Getenv("PAYPAL_CLIENT_ID"),
		PayPalClientSecret: os.Getenv("PAYPAL_CLIENT_SECRET"),
	}

	if cfg.JWTSecret == "" {
		logger.Printf("WARN: JWT_SECRET not set, using insecure default")
		cfg.JWTSecret = defaultJWTSecret
	}

	cfg.PublicBaseURL = os.Getenv("PUBLIC_BASE_URL")
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.Port
		logger.Printf("WARN: PUBLIC_BASE_URL not set, using %s", cfg.PublicBaseURL)
	}

	cfg.FilePath = os.Getenv("FILE_PATH")
	if cfg.FilePath == "" && cfg.OriginURL == "" {
		logger.Printf("WARN: FILE_PATH not set, using default %s", defaultFilePath)
		cfg.FilePath = defaultFilePath
	}

	cfg.TokenTTL = durationOrDefault(logger, "TOKEN_TTL", defaultTokenTTL)
	cfg.SweepInterval = durationOrDefault(logger, "SWEEP_INTERVAL", defaultSweepInterval)
	cfg.CORSOrigins = parseCSV(os.Getenv("CORS_ORIGINS"))

	switch env := os.Getenv("PAYPAL_ENV"); env {
	case "live":
		cfg.PayPalBaseURL = paypal.LiveBaseURL
	case "", "sandbox":
		if env == "" {
			logger.Printf("WARN: PAYPAL_ENV not set, using sandbox")
		}
		cfg.PayPalBaseURL = paypal.SandboxBaseURL
	default:
		logger.Printf("WARN: unknown PAYPAL_ENV %q, using sandbox", env)
		cfg.PayPalBaseURL = paypal.SandboxBaseURL
	}

	if cfg.PayPalClientID == "" || cfg.PayPalClientSecret == "" {
		logger.Printf("WARN: PAYPAL_CLIENT_ID / PAYPAL_CLIENT_SECRET not set, payment verification will fail")
	}

	return cfg
}

func envOrDefault(logger *log.Logger, key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	logger.Printf("WARN: %s not set, using default %s", key, fallback)
	return fallback
}

func durationOrDefault(logger *log.Logger, key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		logger.Printf("WARN: invalid %s %q, using default %s", key, raw, fallback)
		return fallback
	}
	return d
}

func parseCSV(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
