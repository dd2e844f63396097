package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Lumi182/paygate/internal/clock"
	"github.com/Lumi182/paygate/internal/domain"
	"github.com/Lumi182/paygate/internal/token"

	"github.com/google/uuid"
)

// PaymentGateway fetches a transaction from the external processor.
type PaymentGateway interface {
	Transaction(ctx context.Context, id string) (domain.Transaction, error)
}

// TokenIssuer mints a signed download token for a verified purchase.
type TokenIssuer interface {
	Issue(product, transactionID string) (string, token.Claims, error)
}

// PurchaseRecorder persists an audit record for a verified purchase.
type PurchaseRecorder interface {
	CreatePurchase(ctx context.Context, purchase domain.Purchase) error
}

type VerifyService struct {
	gateway  PaymentGateway
	issuer   TokenIssuer
	recorder PurchaseRecorder
	clock    clock.Clock
	logger   *log.Logger

	defaultProduct  string
	defaultAmount   string
	defaultCurrency string
}

func NewVerifyService(gateway PaymentGateway, issuer TokenIssuer, recorder PurchaseRecorder, clk clock.Clock, opts ...VerifyServiceOption) *VerifyService {
	svc := &VerifyService{
		gateway:  gateway,
		issuer:   issuer,
		recorder: recorder,
		clock:    clk,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type VerifyServiceOption func(*VerifyService)

// WithProductDefaults sets the product name, amount and currency used
// when the request leaves them empty.
func WithProductDefaults(product, amount, currency string) VerifyServiceOption {
	return func(s *VerifyService) {
		s.defaultProduct = product
		s.defaultAmount = amount
		s.defaultCurrency = currency
	}
}

// WithLogger overrides the service logger.
func WithLogger(logger *log.Logger) VerifyServiceOption {
	return func(s *VerifyService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type VerifyInput struct {
	TransactionID    string
	ExpectedAmount   string
	ExpectedCurrency string
	Product          string
}

type VerifyResult struct {
	Token     string
	TokenID   string
	Product   string
	ExpiresAt time.Time
}

// Verify confirms the transaction is completed and paid in the expected
// amount and currency, then issues a single-use download token bound to
// it. Amount and currency use exact string comparison: "5.00" and "5.0"
// are different amounts as far as the processor's canonical format is
// concerned.
func (s *VerifyService) Verify(ctx context.Context, in VerifyInput) (VerifyResult, error) {
	if in.TransactionID == "" {
		return VerifyResult{}, domain.ErrTransactionIDRequired
	}

	product := in.Product
	if product == "" {
		product = s.defaultProduct
	}
	expectedAmount := in.ExpectedAmount
	if expectedAmount == "" {
		expectedAmount = s.defaultAmount
	}
	expectedCurrency := in.ExpectedCurrency
	if expectedCurrency == "" {
		expectedCurrency = s.defaultCurrency
	}

	txn, err := s.gateway.Transaction(ctx, in.TransactionID)
	if err != nil {
		return VerifyResult{}, err
	}

	if txn.Status != domain.TransactionCompleted {
		return VerifyResult{}, fmt.Errorf("%w: status=%s", domain.ErrPaymentNotCompleted, txn.Status)
	}
	if txn.Amount != expectedAmount || txn.Currency != expectedCurrency {
		return VerifyResult{}, fmt.Errorf("%w: expected %s %s, got %s %s",
			domain.ErrAmountMismatch, expectedAmount, expectedCurrency, txn.Amount, txn.Currency)
	}

	signed, claims, err := s.issuer.Issue(product, txn.ID)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("issue token: %w", err)
	}

	purchase := domain.Purchase{
		ID:            uuid.NewString(),
		TransactionID: txn.ID,
		Product:       product,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		TokenID:       claims.ID,
		IssuedAt:      claims.IssuedAt,
		ExpiresAt:     claims.ExpiresAt,
		CreatedAt:     s.clock.Now(),
	}
	// Recording is best-effort: the customer has paid, so a failed audit
	// write must not block the download link.
	if err := s.recorder.CreatePurchase(ctx, purchase); err != nil {
		s.logger.Printf("WARN: record purchase transaction=%s token=%s: %v", txn.ID, claims.ID, err)
	}

	return VerifyResult{
		Token:     signed,
		TokenID:   claims.ID,
		Product:   product,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}
