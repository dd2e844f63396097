package domain

import "time"

// Purchase records a verified payment and the download token issued for it.
type Purchase struct {
	ID            string
	TransactionID string
	Product       string
	Amount        string
	Currency      string
	TokenID       string
	IssuedAt      time.Time
	ExpiresAt     time.Time
	DeliveredAt   *time.Time
	CreatedAt     time.Time
}
