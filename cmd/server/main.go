package main

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Lumi182/paygate/internal/app"
	"github.com/Lumi182/paygate/internal/clock"
	"github.com/Lumi182/paygate/internal/config"
	"github.com/Lumi182/paygate/internal/consumption"
	"github.com/Lumi182/paygate/internal/delivery"
	"github.com/Lumi182/paygate/internal/paypal"
	"github.com/Lumi182/paygate/internal/storage/postgres"
	"github.com/Lumi182/paygate/internal/token"
	transporthttp "github.com/Lumi182/paygate/internal/transport/http"
	"github.com/Lumi182/paygate/migrations"
)

const shutdownTimeout = 10 * time.Second

type purchaseRecorder interface {
	app.PurchaseRecorder
	app.DeliveryRecorder
}

func main() {
	logger := log.Default()
	loadEnvFile(logger)

	cfg := config.FromEnv(logger)
	clk := clock.NewSystem()

	var recorder purchaseRecorder = app.NopRecorder{}
	if cfg.DatabaseURL != "" {
		startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("connect to db: %v", err)
		}
		defer pool.Close()

		if err := pool.Ping(startupCtx); err != nil {
			log.Fatalf("db ping: %v", err)
		}
		if err := migrations.Apply(startupCtx, pool); err != nil {
			log.Fatalf("apply migrations: %v", err)
		}
		recorder = postgres.NewPurchaseRepository(pool)
	} else {
		logger.Printf("WARN: DATABASE_URL not set, purchase records are disabled")
	}

	gateway := paypal.NewClient(cfg.PayPalBaseURL, cfg.PayPalClientID, cfg.PayPalClientSecret)
	signer := token.NewSigner([]byte(cfg.JWTSecret), clk, token.WithTTL(cfg.TokenTTL))
	usedTokens := consumption.NewMemoryStore()
	streamer := delivery.NewStreamer(cfg.OriginURL, cfg.FilePath, cfg.ProductFile)

	verifySvc := app.NewVerifyService(gateway, signer, recorder, clk,
		app.WithProductDefaults(cfg.ProductName, cfg.ProductAmount, cfg.ProductCurrency),
		app.WithLogger(logger),
	)
	downloadSvc := app.NewDownloadService(signer, usedTokens, recorder, clk,
		app.WithDownloadLogger(logger),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/verify", transporthttp.HandleVerify(verifySvc, cfg.PublicBaseURL, logger))
	mux.Handle("/download", transporthttp.HandleDownload(downloadSvc, streamer, logger))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("server listening on %s (port %s)", cfg.PublicBaseURL, cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepUsedTokens(stopCtx, usedTokens, clk, cfg.SweepInterval, logger)

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}

// sweepUsedTokens periodically evicts consumption entries whose token
// expiry has passed, keeping the in-process set bounded.
func sweepUsedTokens(ctx context.Context, store *consumption.MemoryStore, clk clock.Clock, interval time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := store.EvictExpired(clk.Now()); evicted > 0 {
				logger.Printf("evicted %d expired token entries", evicted)
			}
		}
	}
}

func loadEnvFile(logger *log.Logger) {
	path, err := findEnvFile()
	if err != nil {
		logger.Printf("WARN: failed to locate .env: %v", err)
		return
	}
	if path == "" {
		logger.Printf("WARN: .env not found in current or parent directories")
		return
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Printf("WARN: failed to open %s: %v", path, err)
		return
	}
	if err := parseEnvFile(logger, file); err != nil {
		logger.Printf("WARN: failed to load %s: %v", path, err)
	} else {
		logger.Printf("loaded env from %s", path)
	}
	_ = file.Close()
}

func findEnvFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for i := 0; i < 6; i++ {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}

func parseEnvFile(logger *log.Logger, file *os.File) error {
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\uFEFF")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		value = trimQuotes(value)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			logger.Printf("WARN: failed to set %s from env file", key)
		}
	}
	return scanner.Err()
}

func trimQuotes(value string) string {
	if len(value) < 2 {
		return value
	}
	if (value[0] == '"' && value[len(value)-1] == '"') ||
		(value[0] == '\'' && value[len(value)-1] == '\'') {
		return value[1 : len(value)-1]
	}
	return value
}
