package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Lumi182/paygate/internal/clock"
	"github.com/Lumi182/paygate/internal/domain"
)

// Claims is the decoded content of a download token.
type Claims struct {
	ID            string
	Product       string
	TransactionID string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

type signedClaims struct {
	TransactionID string `json:"txn,omitempty"`
	jwt.RegisteredClaims
}

const defaultTTL = time.Hour

// Signer mints and verifies HS256-signed download tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewSigner(secret []byte, clk clock.Clock, opts ...SignerOption) *Signer {
	s := &Signer{
		secret: secret,
		ttl:    defaultTTL,
		clock:  clk,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SignerOption func(*Signer)

// WithTTL overrides the default token lifetime.
func WithTTL(d time.Duration) SignerOption {
	return func(s *Signer) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// Issue mints a token scoped to a product and transaction. The returned
// claims carry the token id and the absolute expiry for client display.
func (s *Signer) Issue(product, transactionID string) (string, Claims, error) {
	now := s.clock.Now()
	claims := Claims{
		ID:            uuid.NewString(),
		Product:       product,
		TransactionID: transactionID,
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.ttl),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, signedClaims{
		TransactionID: claims.TransactionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        claims.ID,
			Subject:   claims.Product,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})

	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks signature and expiry and returns the decoded claims.
// Expiry is reported as domain.ErrTokenExpired so callers can reject an
// expired token without marking it used; every other failure collapses
// to domain.ErrTokenInvalid.
func (s *Signer) Verify(tokenString string) (Claims, error) {
	var sc signedClaims
	_, err := jwt.ParseWithClaims(tokenString, &sc,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, domain.ErrTokenExpired
		}
		return Claims{}, domain.ErrTokenInvalid
	}
	if sc.ID == "" {
		return Claims{}, domain.ErrTokenInvalid
	}

	claims := Claims{
		ID:            sc.ID,
		Product:       sc.Subject,
		TransactionID: sc.TransactionID,
	}
	if sc.IssuedAt != nil {
		claims.IssuedAt = sc.IssuedAt.Time
	}
	if sc.ExpiresAt != nil {
		claims.ExpiresAt = sc.ExpiresAt.Time
	}
	return claims, nil
}
