// Package payment integrates the external payment provider. The Gateway
// interface is what the service layer programs against; the HTTP client
// below talks to the provider's REST API.
//
// The provider is the source of truth for whether money moved. We create
// an intent, the client completes it provider-side, and then posts the
// transaction ref back to us; reconciliation re-verifies the transaction
// with the provider before an order is ever marked paid.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sakif/booknest/internal/model"
)

// IntentRequest asks the provider to prepare a payment for an order.
type IntentRequest struct {
	OrderID       string
	Amount        decimal.Decimal
	Currency      string
	CustomerEmail string
	Description   string
}

// Intent is the provider's handle for a prepared payment. The client
// completes it with the checkout URL; TransactionRef is what comes back
// to us for reconciliation.
type Intent struct {
	TransactionRef string
	CheckoutURL    string
}

// Confirmation is the provider's verified record of a transaction.
type Confirmation struct {
	TransactionRef string
	Amount         decimal.Decimal
	Status         model.ProviderStatus
	PayerEmail     string
	Method         model.PaymentMethod
}

// Gateway is the payment provider abstraction.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	// VerifyTransaction fetches the provider's record for a transaction
	// ref. An unknown ref is an error, not an empty confirmation.
	VerifyTransaction(ctx context.Context, transactionRef string) (*Confirmation, error)
}

// HTTPGateway talks to the provider's REST API with an API key.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ Gateway = (*HTTPGateway)(nil)

func NewHTTPGateway(baseURL, apiKey string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type intentPayload struct {
	OrderID       string `json:"order_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	CustomerEmail string `json:"customer_email"`
	Description   string `json:"description"`
}

type intentResponse struct {
	TransactionRef string `json:"transaction_ref"`
	CheckoutURL    string `json:"checkout_url"`
}

func (g *HTTPGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	payload := intentPayload{
		OrderID:       req.OrderID,
		Amount:        req.Amount.StringFixed(2),
		Currency:      req.Currency,
		CustomerEmail: req.CustomerEmail,
		Description:   req.Description,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("payment: encoding intent request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/intents", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("payment: building intent request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payment: calling provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("payment: provider returned status %d creating intent", resp.StatusCode)
	}

	var out intentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("payment: decoding intent response: %w", err)
	}
	if out.TransactionRef == "" {
		return nil, fmt.Errorf("payment: provider returned an intent without a transaction ref")
	}

	return &Intent{TransactionRef: out.TransactionRef, CheckoutURL: out.CheckoutURL}, nil
}

type transactionResponse struct {
	TransactionRef string `json:"transaction_ref"`
	Amount         string `json:"amount"`
	Status         string `json:"status"`
	PayerEmail     string `json:"payer_email"`
	Method         string `json:"method"`
}

func (g *HTTPGateway) VerifyTransaction(ctx context.Context, transactionRef string) (*Confirmation, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"/v1/transactions/"+transactionRef, nil)
	if err != nil {
		return nil, fmt.Errorf("payment: building verify request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payment: calling provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("payment: provider has no record of transaction %s", transactionRef)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment: provider returned status %d verifying transaction", resp.StatusCode)
	}

	var out transactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("payment: decoding transaction response: %w", err)
	}

	amount, err := decimal.NewFromString(out.Amount)
	if err != nil {
		return nil, fmt.Errorf("payment: provider returned unparseable amount %q: %w", out.Amount, err)
	}

	return &Confirmation{
		TransactionRef: out.TransactionRef,
		Amount:         amount,
		Status:         model.ProviderStatus(out.Status),
		PayerEmail:     out.PayerEmail,
		Method:         model.PaymentMethod(out.Method),
	}, nil
}
