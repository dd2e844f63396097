package app

import (
	"context"
	"log"
	"time"

	"github.com/Lumi182/paygate/internal/clock"
	"github.com/Lumi182/paygate/internal/domain"
	"github.com/Lumi182/paygate/internal/token"
)

// TokenVerifier checks a presented token's signature and expiry.
type TokenVerifier interface {
	Verify(tokenString string) (token.Claims, error)
}

// ConsumptionStore is the atomic single-use gate for token ids.
type ConsumptionStore interface {
	TryConsume(id string, expiresAt time.Time) bool
	Rollback(id string)
}

// DeliveryRecorder stamps a purchase as delivered.
type DeliveryRecorder interface {
	MarkDelivered(ctx context.Context, tokenID string, at time.Time) error
}

// Grant is a successfully consumed token, carried through delivery so a
// pre-stream failure can be rolled back.
type Grant struct {
	TokenID       string
	Product       string
	TransactionID string
	ExpiresAt     time.Time
}

type DownloadService struct {
	tokens   TokenVerifier
	used     ConsumptionStore
	recorder DeliveryRecorder
	clock    clock.Clock
	logger   *log.Logger
}

func NewDownloadService(tokens TokenVerifier, used ConsumptionStore, recorder DeliveryRecorder, clk clock.Clock, opts ...DownloadServiceOption) *DownloadService {
	svc := &DownloadService{
		tokens:   tokens,
		used:     used,
		recorder: recorder,
		clock:    clk,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type DownloadServiceOption func(*DownloadService)

// WithDownloadLogger overrides the service logger.
func WithDownloadLogger(logger *log.Logger) DownloadServiceOption {
	return func(s *DownloadService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Consume validates the token and atomically marks it used. Expiry is
// checked before consumption, so an expired token is rejected without
// ever entering the used set. Two concurrent calls with the same token
// yield exactly one Grant; the loser gets domain.ErrTokenAlreadyUsed.
func (s *DownloadService) Consume(tokenString string) (Grant, error) {
	if tokenString == "" {
		return Grant{}, domain.ErrTokenRequired
	}

	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		return Grant{}, err
	}

	if !s.used.TryConsume(claims.ID, claims.ExpiresAt) {
		return Grant{}, domain.ErrTokenAlreadyUsed
	}

	return Grant{
		TokenID:       claims.ID,
		Product:       claims.Product,
		TransactionID: claims.TransactionID,
		ExpiresAt:     claims.ExpiresAt,
	}, nil
}

// Rollback re-opens the grant's token for consumption. Callers must only
// do this when delivery failed before any response bytes were written;
// once the client may have seen part of the asset the token stays spent.
func (s *DownloadService) Rollback(g Grant) {
	s.used.Rollback(g.TokenID)
}

// Delivered records a completed delivery. Best-effort: a failed audit
// write is logged, not surfaced, since the bytes are already with the
// client.
func (s *DownloadService) Delivered(ctx context.Context, g Grant) {
	if err := s.recorder.MarkDelivered(ctx, g.TokenID, s.clock.Now()); err != nil {
		s.logger.Printf("WARN: mark delivered token=%s transaction=%s: %v", g.TokenID, g.TransactionID, err)
	}
}
