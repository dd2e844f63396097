package app

import (
	"context"
	"time"

	"github.com/Lumi182/paygate/internal/domain"
)

// NopRecorder satisfies PurchaseRecorder and DeliveryRecorder without
// persisting anything. Used when no database is configured.
type NopRecorder struct{}

func (NopRecorder) CreatePurchase(context.Context, domain.Purchase) error { return nil }

func (NopRecorder) MarkDelivered(context.Context, string, time.Time) error { return nil }
