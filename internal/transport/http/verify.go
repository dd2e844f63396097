package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Lumi182/paygate/internal/app"
	"github.com/Lumi182/paygate/internal/domain"
)

// PaymentVerifier is the minimal interface needed to verify a payment
// and issue a download token.
type PaymentVerifier interface {
	Verify(ctx context.Context, in app.VerifyInput) (app.VerifyResult, error)
}

// HandleVerify returns an HTTP handler for POST /verify. On success the
// response carries a single-use download link built from publicBaseURL.
func HandleVerify(svc PaymentVerifier, publicBaseURL string, logger *log.Logger) http.HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}
	base := strings.TrimRight(publicBaseURL, "/")

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeVerifyError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req verifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeVerifyError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.TransactionID == "" {
			writeVerifyError(w, http.StatusBadRequest, "transactionId is required")
			return
		}

		res, err := svc.Verify(r.Context(), app.VerifyInput{
			TransactionID:    req.TransactionID,
			ExpectedAmount:   req.ExpectedAmount,
			ExpectedCurrency: req.ExpectedCurrency,
			Product:          req.Product,
		})
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTransactionIDRequired):
				writeVerifyError(w, http.StatusBadRequest, "transactionId is required")
			case errors.Is(err, domain.ErrPaymentNotCompleted):
				writeVerifyError(w, http.StatusBadRequest, "payment is not completed")
			case errors.Is(err, domain.ErrAmountMismatch):
				writeVerifyError(w, http.StatusBadRequest, "payment amount does not match the product price")
			case errors.Is(err, domain.ErrUpstream):
				logger.Printf("verify upstream error transaction=%s: %v", req.TransactionID, err)
				writeVerifyError(w, http.StatusBadGateway, "payment provider is unavailable")
			default:
				logger.Printf("verify internal error transaction=%s: %v", req.TransactionID, err)
				writeVerifyError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

		resp := verifyResponse{
			OK:          true,
			DownloadURL: base + "/download?token=" + url.QueryEscape(res.Token),
			ExpiresAt:   res.ExpiresAt.UTC().Format(time.RFC3339),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type verifyRequest struct {
	TransactionID    string `json:"transactionId"`
	ExpectedAmount   string `json:"expectedAmount"`
	ExpectedCurrency string `json:"expectedCurrency"`
	Product          string `json:"product"`
}

type verifyResponse struct {
	OK          bool   `json:"ok"`
	DownloadURL string `json:"downloadUrl"`
	ExpiresAt   string `json:"expiresAt"`
}

type verifyErrorResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func writeVerifyError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(verifyErrorResponse{OK: false, Message: msg})
}
