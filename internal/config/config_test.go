package config

import (
	"bytes"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/Lumi182/paygate/internal/paypal"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "PUBLIC_BASE_URL", "CORS_ORIGINS", "DATABASE_URL",
		"JWT_SECRET", "TOKEN_TTL", "SWEEP_INTERVAL",
		"PRODUCT_NAME", "PRODUCT_AMOUNT", "PRODUCT_CURRENCY", "PRODUCT_FILE",
		"ORIGIN_URL", "FILE_PATH",
		"PAYPAL_ENV", "PAYPAL_CLIENT_ID", "PAYPAL_CLIENT_SECRET",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	buf := &bytes.Buffer{}

	cfg := FromEnv(log.New(buf, "", 0))

	if cfg.Port != "3001" {
		t.Fatalf("expected default port, got %q", cfg.Port)
	}
	if cfg.PublicBaseURL != "http://localhost:3001" {
		t.Fatalf("expected derived base URL, got %q", cfg.PublicBaseURL)
	}
	if cfg.TokenTTL != time.Hour {
		t.Fatalf("expected 1h TTL, got %v", cfg.TokenTTL)
	}
	if cfg.SweepInterval != 10*time.Minute {
		t.Fatalf("expected 10m sweep, got %v", cfg.SweepInterval)
	}
	if cfg.ProductAmount != "5.00" || cfg.ProductCurrency != "EUR" {
		t.Fatalf("expected default price, got %s %s", cfg.ProductAmount, cfg.ProductCurrency)
	}
	if cfg.PayPalBaseURL != paypal.SandboxBaseURL {
		t.Fatalf("expected sandbox base URL, got %q", cfg.PayPalBaseURL)
	}
	if cfg.FilePath != "files/Email_Summarizer.zip" {
		t.Fatalf("expected default file path, got %q", cfg.FilePath)
	}
	if !strings.Contains(buf.String(), "JWT_SECRET not set") {
		t.Fatalf("expected insecure secret warning, got %q", buf.String())
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("PUBLIC_BASE_URL", "https://shop.example")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("PAYPAL_ENV", "live")
	t.Setenv("ORIGIN_URL", "https://cdn.example/asset.zip")
	t.Setenv("CORS_ORIGINS", "https://shop.example, https://www.shop.example")

	cfg := FromEnv(log.New(io.Discard, "", 0))

	if cfg.Port != "8080" || cfg.PublicBaseURL != "https://shop.example" {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
	if cfg.JWTSecret != "s3cret" {
		t.Fatalf("expected secret override, got %q", cfg.JWTSecret)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Fatalf("expected 30m TTL, got %v", cfg.TokenTTL)
	}
	if cfg.PayPalBaseURL != paypal.LiveBaseURL {
		t.Fatalf("expected live base URL, got %q", cfg.PayPalBaseURL)
	}
	if cfg.OriginURL != "https://cdn.example/asset.zip" {
		t.Fatalf("unexpected origin URL %q", cfg.OriginURL)
	}
	// With an origin configured the file path stays empty instead of
	// defaulting.
	if cfg.FilePath != "" {
		t.Fatalf("expected empty file path, got %q", cfg.FilePath)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != "https://shop.example" {
		t.Fatalf("unexpected CORS origins %v", cfg.CORSOrigins)
	}
}

func TestFromEnv_InvalidDurationFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN_TTL", "soon")
	buf := &bytes.Buffer{}

	cfg := FromEnv(log.New(buf, "", 0))

	if cfg.TokenTTL != time.Hour {
		t.Fatalf("expected fallback TTL, got %v", cfg.TokenTTL)
	}
	if !strings.Contains(buf.String(), "invalid TOKEN_TTL") {
		t.Fatalf("expected warning, got %q", buf.String())
	}
}

func TestFromEnv_UnknownPayPalEnvFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAYPAL_ENV", "staging")

	cfg := FromEnv(log.New(io.Discard, "", 0))

	if cfg.PayPalBaseURL != paypal.SandboxBaseURL {
		t.Fatalf("expected sandbox fallback, got %q", cfg.PayPalBaseURL)
	}
}
