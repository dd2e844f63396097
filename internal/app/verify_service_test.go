package app

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/Lumi182/paygate/internal/clock"
	"github.com/Lumi182/paygate/internal/domain"
	"github.com/Lumi182/paygate/internal/token"
)

type fakeGateway struct {
	txn   domain.Transaction
	err   error
	gotID string
}

func (f *fakeGateway) Transaction(_ context.Context, id string) (domain.Transaction, error) {
	f.gotID = id
	return f.txn, f.err
}

type fakeIssuer struct {
	token      string
	claims     token.Claims
	err        error
	gotProduct string
	gotTxnID   string
}

func (f *fakeIssuer) Issue(product, transactionID string) (string, token.Claims, error) {
	f.gotProduct = product
	f.gotTxnID = transactionID
	return f.token, f.claims, f.err
}

type fakePurchaseRecorder struct {
	purchases []domain.Purchase
	err       error
}

func (f *fakePurchaseRecorder) CreatePurchase(_ context.Context, p domain.Purchase) error {
	if f.err != nil {
		return f.err
	}
	f.purchases = append(f.purchases, p)
	return nil
}

func TestVerifyService_Verify(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	completed := domain.Transaction{
		ID:       "TXN-123",
		Status:   domain.TransactionCompleted,
		Amount:   "5.00",
		Currency: "EUR",
	}
	issuedClaims := token.Claims{
		ID:        "tok-1",
		Product:   "email_summarizer",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}

	t.Run("verified payment issues token and records purchase", func(t *testing.T) {
		t.Parallel()

		gateway := &fakeGateway{txn: completed}
		issuer := &fakeIssuer{token: "signed-token", claims: issuedClaims}
		recorder := &fakePurchaseRecorder{}
		svc := NewVerifyService(gateway, issuer, recorder, clock.NewFixed(now),
			WithProductDefaults("email_summarizer", "5.00", "EUR"))

		res, err := svc.Verify(context.Background(), VerifyInput{TransactionID: "TXN-123"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Token != "signed-token" {
			t.Fatalf("expected issued token, got %q", res.Token)
		}
		if res.ExpiresAt != now.Add(time.Hour) {
			t.Fatalf("expected expiry %v, got %v", now.Add(time.Hour), res.ExpiresAt)
		}
		if gateway.gotID != "TXN-123" {
			t.Fatalf("expected gateway lookup for TXN-123, got %q", gateway.gotID)
		}
		if issuer.gotProduct != "email_summarizer" || issuer.gotTxnID != "TXN-123" {
			t.Fatalf("unexpected issue args: product=%q txn=%q", issuer.gotProduct, issuer.gotTxnID)
		}

		if len(recorder.purchases) != 1 {
			t.Fatalf("expected one recorded purchase, got %d", len(recorder.purchases))
		}
		p := recorder.purchases[0]
		if p.ID == "" {
			t.Fatalf("expected purchase ID to be set")
		}
		if p.TransactionID != "TXN-123" || p.TokenID != "tok-1" {
			t.Fatalf("unexpected purchase record: %+v", p)
		}
		if p.Amount != "5.00" || p.Currency != "EUR" {
			t.Fatalf("unexpected purchase amount: %s %s", p.Amount, p.Currency)
		}
	})

	t.Run("explicit expectations override defaults", func(t *testing.T) {
		t.Parallel()

		gateway := &fakeGateway{txn: domain.Transaction{
			ID:       "TXN-123",
			Status:   domain.TransactionCompleted,
			Amount:   "12.00",
			Currency: "USD",
		}}
		issuer := &fakeIssuer{token: "signed-token", claims: issuedClaims}
		svc := NewVerifyService(gateway, issuer, &fakePurchaseRecorder{}, clock.NewFixed(now),
			WithProductDefaults("email_summarizer", "5.00", "EUR"))

		_, err := svc.Verify(context.Background(), VerifyInput{
			TransactionID:    "TXN-123",
			ExpectedAmount:   "12.00",
			ExpectedCurrency: "USD",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("missing transaction id", func(t *testing.T) {
		t.Parallel()

		svc := NewVerifyService(&fakeGateway{}, &fakeIssuer{}, &fakePurchaseRecorder{}, clock.NewFixed(now))

		_, err := svc.Verify(context.Background(), VerifyInput{})
		if !errors.Is(err, domain.ErrTransactionIDRequired) {
			t.Fatalf("expected ErrTransactionIDRequired, got %v", err)
		}
	})

	t.Run("non-completed status rejected regardless of amount", func(t *testing.T) {
		t.Parallel()

		gateway := &fakeGateway{txn: domain.Transaction{
			ID:       "TXN-123",
			Status:   "CREATED",
			Amount:   "5.00",
			Currency: "EUR",
		}}
		svc := NewVerifyService(gateway, &fakeIssuer{}, &fakePurchaseRecorder{}, clock.NewFixed(now),
			WithProductDefaults("email_summarizer", "5.00", "EUR"))

		_, err := svc.Verify(context.Background(), VerifyInput{TransactionID: "TXN-123"})
		if !errors.Is(err, domain.ErrPaymentNotCompleted) {
			t.Fatalf("expected ErrPaymentNotCompleted, got %v", err)
		}
		if !strings.Contains(err.Error(), "CREATED") {
			t.Fatalf("expected status in error, got %v", err)
		}
	})

	t.Run("amount mismatch uses exact string comparison", func(t *testing.T) {
		t.Parallel()

		gateway := &fakeGateway{txn: domain.Transaction{
			ID:       "TXN-123",
			Status:   domain.TransactionCompleted,
			Amount:   "4.99",
			Currency: "EUR",
		}}
		svc := NewVerifyService(gateway, &fakeIssuer{}, &fakePurchaseRecorder{}, clock.NewFixed(now),
			WithProductDefaults("email_summarizer", "5.00", "EUR"))

		_, err := svc.Verify(context.Background(), VerifyInput{TransactionID: "TXN-123"})
		if !errors.Is(err, domain.ErrAmountMismatch) {
			t.Fatalf("expected ErrAmountMismatch, got %v", err)
		}
	})

	t.Run("currency mismatch", func(t *testing.T) {
		t.Parallel()

		gateway := &fakeGateway{txn: domain.Transaction{
			ID:       "TXN-123",
			Status:   domain.TransactionCompleted,
			Amount:   "5.00",
			Currency: "USD",
		}}
		svc := NewVerifyService(gateway, &fakeIssuer{}, &fakePurchaseRecorder{}, clock.NewFixed(now),
			WithProductDefaults("email_summarizer", "5.00", "EUR"))

		_, err := svc.Verify(context.Background(), VerifyInput{TransactionID: "TXN-123"})
		if !errors.Is(err, domain.ErrAmountMismatch) {
			t.Fatalf("expected ErrAmountMismatch, got %v", err)
		}
	})

	t.Run("gateway failure propagates", func(t *testing.T) {
		t.Parallel()

		gateway := &fakeGateway{err: domain.ErrUpstream}
		svc := NewVerifyService(gateway, &fakeIssuer{}, &fakePurchaseRecorder{}, clock.NewFixed(now))

		_, err := svc.Verify(context.Background(), VerifyInput{TransactionID: "TXN-123"})
		if !errors.Is(err, domain.ErrUpstream) {
			t.Fatalf("expected ErrUpstream, got %v", err)
		}
	})

	t.Run("recorder failure does not block the token", func(t *testing.T) {
		t.Parallel()

		buf := &bytes.Buffer{}
		gateway := &fakeGateway{txn: completed}
		issuer := &fakeIssuer{token: "signed-token", claims: issuedClaims}
		recorder := &fakePurchaseRecorder{err: errors.New("db down")}
		svc := NewVerifyService(gateway, issuer, recorder, clock.NewFixed(now),
			WithProductDefaults("email_summarizer", "5.00", "EUR"),
			WithLogger(log.New(buf, "", 0)))

		res, err := svc.Verify(context.Background(), VerifyInput{TransactionID: "TXN-123"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Token != "signed-token" {
			t.Fatalf("expected issued token, got %q", res.Token)
		}
		if !strings.Contains(buf.String(), "record purchase") {
			t.Fatalf("expected warning in log, got %q", buf.String())
		}
	})
}
