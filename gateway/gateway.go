// Package gateway talks to the remote payment providers and verifies their
// signed callbacks. It holds no database state.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Govind-619/storefront/config"
	"github.com/shopspring/decimal"
)

// ErrInvalidSignature is wrapped by every callback that fails verification,
// including callbacks whose signed payload cannot be parsed.
var ErrInvalidSignature = errors.New("invalid gateway signature")

// Provider names.
const (
	ProviderPaymob   = "paymob"
	ProviderRazorpay = "razorpay"
)

// PaymentStatus is what the gateway reports for an external order.
type PaymentStatus string

const (
	StatusSucceeded PaymentStatus = "succeeded"
	StatusFailed    PaymentStatus = "failed"
	StatusPending   PaymentStatus = "pending"
)

// Customer is the billing contact passed to the gateway.
type Customer struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// PaymentRequest describes the order a session is opened for.
type PaymentRequest struct {
	OrderID     uint
	AmountCents int64
	Currency    string
	Customer    Customer

	// ExistingReference is set when the order already has an external
	// order; only a new payment session is requested for it.
	ExistingReference string
}

// Session is a payment page the customer is sent to.
type Session struct {
	ExternalOrderID string            `json:"external_order_id"`
	PaymentURL      string            `json:"payment_url"`
	Params          map[string]string `json:"params,omitempty"`
}

// Notification is a verified statement from the gateway about an order.
type Notification struct {
	ExternalOrderID string
	TransactionID   string
	Status          PaymentStatus
	AmountCents     int64
}

// Gateway is a payment provider.
type Gateway interface {
	Name() string
	CreateSession(ctx context.Context, req PaymentRequest) (*Session, error)
	// WebhookSignature extracts the signature a webhook was delivered with.
	WebhookSignature(header http.Header, query url.Values) string
	VerifyWebhook(body []byte, signature string) (*Notification, error)
	VerifyRedirect(query url.Values) (*Notification, error)
	Inquire(ctx context.Context, externalOrderID string) (*Notification, error)
}

// New builds the gateway selected by cfg.Provider.
func New(cfg config.GatewayConfig) (Gateway, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	switch cfg.Provider {
	case ProviderPaymob:
		return NewPaymob(cfg, httpClient), nil
	case ProviderRazorpay:
		return NewRazorpay(cfg), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}

// AmountCents converts a decimal amount into minor units.
func AmountCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func invalidSignature(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidSignature, fmt.Sprintf(format, args...))
}
