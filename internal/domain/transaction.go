package domain

type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "COMPLETED"
)

// Transaction is the payment processor's view of a payment.
// It is owned by the processor; this service only ever reads it.
type Transaction struct {
	ID       string
	Status   TransactionStatus
	Amount   string
	Currency string
}
