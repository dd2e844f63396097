package http

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/Lumi182/paygate/internal/app"
	"github.com/Lumi182/paygate/internal/domain"
)

// TokenConsumer is the minimal interface needed to redeem and, on
// pre-stream failure, re-open a download token.
type TokenConsumer interface {
	Consume(tokenString string) (app.Grant, error)
	Rollback(g app.Grant)
	Delivered(ctx context.Context, g app.Grant)
}

// AssetStreamer writes the asset to the response. started reports
// whether any response data was written before the failure.
type AssetStreamer interface {
	Stream(ctx context.Context, w http.ResponseWriter) (started bool, err error)
}

// HandleDownload returns an HTTP handler for GET /download?token=…
// The token is consumed before streaming begins; if the stream fails
// before the response is committed the consumption is rolled back so
// the same link works again. Once bytes are on the wire the token
// stays spent regardless of the outcome.
func HandleDownload(svc TokenConsumer, streamer AssetStreamer, logger *log.Logger) http.HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			writeError(w, http.StatusBadRequest, codeMissingToken, "token is required")
			return
		}

		grant, err := svc.Consume(tokenString)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTokenExpired):
				writeError(w, http.StatusUnauthorized, codeTokenExpired, "token expired")
			case errors.Is(err, domain.ErrTokenInvalid):
				writeError(w, http.StatusUnauthorized, codeTokenInvalid, "invalid token")
			case errors.Is(err, domain.ErrTokenAlreadyUsed):
				writeError(w, http.StatusGone, codeTokenAlreadyUsed, "this link has already been used")
			default:
				logger.Printf("download consume error: %v", err)
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		started, err := streamer.Stream(r.Context(), w)
		if err != nil {
			if !started {
				svc.Rollback(grant)
				if errors.Is(err, domain.ErrOriginUnreachable) {
					logger.Printf("download origin error token=%s: %v", grant.TokenID, err)
					writeError(w, http.StatusBadGateway, codeOriginUnreachable, "asset origin is unavailable")
					return
				}
				logger.Printf("download setup error token=%s: %v", grant.TokenID, err)
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			// Mid-stream failure: the status code is already on the wire
			// and the client may hold a partial file, so the token stays
			// spent and the connection is simply dropped.
			logger.Printf("download aborted mid-stream token=%s: %v", grant.TokenID, err)
			return
		}

		svc.Delivered(r.Context(), grant)
	}
}
