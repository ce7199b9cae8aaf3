package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Govind-619/storefront/config"
	"github.com/Govind-619/storefront/utils"
	razorpay "github.com/razorpay/razorpay-go"
)

// RazorpayOrders is the part of the Razorpay SDK order resource in use.
type RazorpayOrders interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Razorpay is the Razorpay gateway.
type Razorpay struct {
	keyID       string
	currency    string
	checkoutURL string
	orders      RazorpayOrders
	webhook     Signer
	redirect    Signer
}

// NewRazorpay creates a Razorpay gateway backed by the SDK client.
func NewRazorpay(cfg config.GatewayConfig) *Razorpay {
	client := razorpay.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
	return NewRazorpayWithOrders(cfg, client.Order)
}

// NewRazorpayWithOrders creates a Razorpay gateway over orders.
func NewRazorpayWithOrders(cfg config.GatewayConfig, orders RazorpayOrders) *Razorpay {
	return &Razorpay{
		keyID:       cfg.Razorpay.KeyID,
		currency:    cfg.Currency,
		checkoutURL: cfg.Razorpay.CheckoutURL,
		orders:      orders,
		webhook: Signer{
			Hash: sha256.New,
			Key:  []byte(cfg.Razorpay.WebhookSecret),
		},
		redirect: Signer{
			Hash:      sha256.New,
			Key:       []byte(cfg.Razorpay.KeySecret),
			Fields:    []string{"razorpay_order_id", "razorpay_payment_id"},
			Separator: "|",
		},
	}
}

func (r *Razorpay) Name() string { return ProviderRazorpay }

// CreateSession creates a Razorpay order unless one exists and returns the
// parameters the checkout widget needs.
func (r *Razorpay) CreateSession(_ context.Context, req PaymentRequest) (*Session, error) {
	currency := req.Currency
	if currency == "" {
		currency = r.currency
	}

	reference := req.ExistingReference
	if reference == "" {
		start := time.Now()
		rzOrder, err := r.orders.Create(map[string]interface{}{
			"amount":          req.AmountCents,
			"currency":        currency,
			"receipt":         "order_rcptid_" + strconv.FormatUint(uint64(req.OrderID), 10),
			"payment_capture": 1,
			"notes":           map[string]interface{}{"order_id": req.OrderID},
		}, nil)
		utils.ObserveGatewayCall(ProviderRazorpay, "create_order", start)
		if err != nil {
			return nil, fmt.Errorf("failed to create razorpay order: %v", err)
		}
		id, _ := rzOrder["id"].(string)
		if id == "" {
			return nil, fmt.Errorf("razorpay returned no order id")
		}
		reference = id
	}

	session := &Session{
		ExternalOrderID: reference,
		Params: map[string]string{
			"key":      r.keyID,
			"order_id": reference,
			"amount":   strconv.FormatInt(req.AmountCents, 10),
			"currency": currency,
			"name":     req.Customer.Name,
			"email":    req.Customer.Email,
			"contact":  req.Customer.Phone,
		},
	}
	if r.checkoutURL != "" {
		session.PaymentURL = r.checkoutURL + "?order_id=" + url.QueryEscape(reference)
	}
	return session, nil
}

func (r *Razorpay) WebhookSignature(header http.Header, _ url.Values) string {
	return header.Get("X-Razorpay-Signature")
}

type razorpayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Amount  int64  `json:"amount"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID     string `json:"id"`
				Amount int64  `json:"amount"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// VerifyWebhook checks the HMAC of the raw webhook body.
func (r *Razorpay) VerifyWebhook(body []byte, signature string) (*Notification, error) {
	if !r.webhook.VerifyBytes(body, signature) {
		return nil, invalidSignature("razorpay webhook signature mismatch")
	}

	var event razorpayEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, invalidSignature("unreadable razorpay webhook")
	}

	n := &Notification{
		ExternalOrderID: event.Payload.Payment.Entity.OrderID,
		TransactionID:   event.Payload.Payment.Entity.ID,
		AmountCents:     event.Payload.Payment.Entity.Amount,
		Status:          StatusPending,
	}
	if n.ExternalOrderID == "" {
		n.ExternalOrderID = event.Payload.Order.Entity.ID
		n.AmountCents = event.Payload.Order.Entity.Amount
	}
	if n.ExternalOrderID == "" {
		return nil, invalidSignature("razorpay webhook without order id")
	}

	switch event.Event {
	case "order.paid", "payment.captured":
		n.Status = StatusSucceeded
	case "payment.failed":
		n.Status = StatusFailed
	}
	return n, nil
}

// VerifyRedirect checks the checkout handler's order_id|payment_id signature.
func (r *Razorpay) VerifyRedirect(query url.Values) (*Notification, error) {
	values := map[string]string{
		"razorpay_order_id":   query.Get("razorpay_order_id"),
		"razorpay_payment_id": query.Get("razorpay_payment_id"),
	}
	if values["razorpay_order_id"] == "" || values["razorpay_payment_id"] == "" {
		return nil, invalidSignature("razorpay redirect missing order or payment id")
	}
	if !r.redirect.Verify(values, query.Get("razorpay_signature")) {
		return nil, invalidSignature("razorpay redirect signature mismatch")
	}
	return &Notification{
		ExternalOrderID: values["razorpay_order_id"],
		TransactionID:   values["razorpay_payment_id"],
		Status:          StatusSucceeded,
	}, nil
}

// Inquire fetches the Razorpay order and maps its status.
func (r *Razorpay) Inquire(_ context.Context, externalOrderID string) (*Notification, error) {
	start := time.Now()
	rzOrder, err := r.orders.Fetch(externalOrderID, nil, nil)
	utils.ObserveGatewayCall(ProviderRazorpay, "inquire", start)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch razorpay order: %v", err)
	}

	n := &Notification{ExternalOrderID: externalOrderID, Status: StatusPending}
	if amount, ok := rzOrder["amount_paid"].(float64); ok {
		n.AmountCents = int64(amount)
	}
	if status, _ := rzOrder["status"].(string); status == "paid" {
		n.Status = StatusSucceeded
	}
	return n, nil
}
