package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodStripe     PaymentMethod = "stripe"
	MethodSSLCommerz PaymentMethod = "sslcommerz"
	MethodCash       PaymentMethod = "cash"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodStripe, MethodSSLCommerz, MethodCash:
		return true
	}
	return false
}

// ProviderStatus is the payment provider's view of a transaction.
type ProviderStatus string

const (
	ProviderPending   ProviderStatus = "pending"
	ProviderCompleted ProviderStatus = "completed"
	ProviderFailed    ProviderStatus = "failed"
	ProviderRefunded  ProviderStatus = "refunded"
)

// Payment records an externally-confirmed payment reconciled against an
// order. TransactionRef is unique — replaying the same confirmation is an
// idempotent no-op, not a second record.
type Payment struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	OrderID        string          `json:"orderId"`
	Amount         decimal.Decimal `json:"amount"`
	Method         PaymentMethod   `json:"method"`
	TransactionRef string          `json:"transactionRef"`
	ProviderStatus ProviderStatus  `json:"providerStatus"`
	CreatedAt      time.Time       `json:"createdAt"`
}
