package gateway

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Govind-619/storefront/config"
	"github.com/Govind-619/storefront/utils"
	"github.com/google/uuid"
)

// PaymobHMACFields are the transaction fields covered by Paymob's HMAC, in
// the order they are concatenated.
var PaymobHMACFields = []string{
	"amount_cents",
	"created_at",
	"currency",
	"error_occured",
	"has_parent_transaction",
	"id",
	"integration_id",
	"is_3d_secure",
	"is_auth",
	"is_capture",
	"is_refunded",
	"is_standalone_payment",
	"is_voided",
	"order.id",
	"owner",
	"pending",
	"source_data.pan",
	"source_data.sub_type",
	"source_data.type",
	"success",
}

// Paymob is the Paymob Accept gateway.
type Paymob struct {
	baseURL       string
	apiKey        string
	integrationID int
	iframeID      string
	expiration    int
	currency      string
	client        *http.Client
	signer        Signer
}

// NewPaymob creates a Paymob gateway. client carries the call timeout.
func NewPaymob(cfg config.GatewayConfig, client *http.Client) *Paymob {
	return &Paymob{
		baseURL:       strings.TrimRight(cfg.Paymob.BaseURL, "/"),
		apiKey:        cfg.Paymob.APIKey,
		integrationID: cfg.Paymob.IntegrationID,
		iframeID:      cfg.Paymob.IframeID,
		expiration:    cfg.Paymob.ExpirationSec,
		currency:      cfg.Currency,
		client:        client,
		signer: Signer{
			Hash:   sha512.New,
			Key:    []byte(cfg.Paymob.HMACSecret),
			Fields: PaymobHMACFields,
		},
	}
}

func (p *Paymob) Name() string { return ProviderPaymob }

type paymobTransaction struct {
	ID          int64 `json:"id"`
	Success     bool  `json:"success"`
	Pending     bool  `json:"pending"`
	AmountCents int64 `json:"amount_cents"`
	Order       struct {
		ID int64 `json:"id"`
	} `json:"order"`
}

func (t paymobTransaction) notification() *Notification {
	n := &Notification{
		ExternalOrderID: strconv.FormatInt(t.Order.ID, 10),
		TransactionID:   strconv.FormatInt(t.ID, 10),
		AmountCents:     t.AmountCents,
		Status:          StatusFailed,
	}
	switch {
	case t.Success:
		n.Status = StatusSucceeded
	case t.Pending:
		n.Status = StatusPending
	}
	return n
}

// CreateSession authenticates, registers the order with Paymob unless it
// already has a reference, and requests a payment key for the iframe.
func (p *Paymob) CreateSession(ctx context.Context, req PaymentRequest) (*Session, error) {
	token, err := p.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = p.currency
	}

	reference := req.ExistingReference
	if reference == "" {
		var created struct {
			ID int64 `json:"id"`
		}
		err := p.post(ctx, "create_order", "/ecommerce/orders", map[string]interface{}{
			"auth_token":        token,
			"delivery_needed":   "false",
			"amount_cents":      req.AmountCents,
			"currency":          currency,
			"merchant_order_id": fmt.Sprintf("%d-%s", req.OrderID, uuid.NewString()[:8]),
			"items":             []interface{}{},
		}, &created)
		if err != nil {
			return nil, err
		}
		if created.ID == 0 {
			return nil, fmt.Errorf("paymob returned no order id")
		}
		reference = strconv.FormatInt(created.ID, 10)
	}

	orderID, err := strconv.ParseInt(reference, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid paymob order reference %q: %w", reference, err)
	}

	var key struct {
		Token string `json:"token"`
	}
	err = p.post(ctx, "payment_key", "/acceptance/payment_keys", map[string]interface{}{
		"auth_token":     token,
		"amount_cents":   req.AmountCents,
		"expiration":     p.expiration,
		"order_id":       orderID,
		"billing_data":   billingData(req.Customer),
		"currency":       currency,
		"integration_id": p.integrationID,
	}, &key)
	if err != nil {
		return nil, err
	}
	if key.Token == "" {
		return nil, fmt.Errorf("paymob returned no payment key")
	}

	return &Session{
		ExternalOrderID: reference,
		PaymentURL:      fmt.Sprintf("%s/acceptance/iframes/%s?payment_token=%s", p.baseURL, p.iframeID, url.QueryEscape(key.Token)),
	}, nil
}

func billingData(c Customer) map[string]string {
	first, last := c.Name, c.Name
	if parts := strings.Fields(c.Name); len(parts) > 1 {
		first, last = parts[0], strings.Join(parts[1:], " ")
	}
	return map[string]string{
		"apartment":       "NA",
		"email":           c.Email,
		"floor":           "NA",
		"first_name":      first,
		"street":          c.Address,
		"building":        "NA",
		"phone_number":    c.Phone,
		"shipping_method": "NA",
		"postal_code":     "NA",
		"city":            "NA",
		"country":         "EG",
		"last_name":       last,
		"state":           "NA",
	}
}

func (p *Paymob) WebhookSignature(_ http.Header, query url.Values) string {
	return query.Get("hmac")
}

// VerifyWebhook checks a transaction-processed callback. The signed fields
// are read from the "obj" envelope.
func (p *Paymob) VerifyWebhook(body []byte, signature string) (*Notification, error) {
	var envelope struct {
		Type string                 `json:"type"`
		Obj  map[string]interface{} `json:"obj"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&envelope); err != nil || envelope.Obj == nil {
		return nil, invalidSignature("unreadable paymob callback")
	}

	values := FlattenObject(envelope.Obj)
	if !p.signer.Verify(values, signature) {
		return nil, invalidSignature("paymob webhook hmac mismatch")
	}
	return notificationFromValues(values)
}

// VerifyRedirect checks the query string Paymob appends when returning the
// customer. The order id arrives as "order" instead of "order.id".
func (p *Paymob) VerifyRedirect(query url.Values) (*Notification, error) {
	values := make(map[string]string, len(PaymobHMACFields))
	for _, field := range PaymobHMACFields {
		key := field
		if field == "order.id" {
			key = "order"
		}
		values[field] = query.Get(key)
	}
	if !p.signer.Verify(values, query.Get("hmac")) {
		return nil, invalidSignature("paymob redirect hmac mismatch")
	}
	return notificationFromValues(values)
}

func notificationFromValues(values map[string]string) (*Notification, error) {
	if values["order.id"] == "" {
		return nil, invalidSignature("paymob callback without order id")
	}
	amount, _ := strconv.ParseInt(values["amount_cents"], 10, 64)
	n := &Notification{
		ExternalOrderID: values["order.id"],
		TransactionID:   values["id"],
		AmountCents:     amount,
		Status:          StatusFailed,
	}
	switch {
	case values["success"] == "true":
		n.Status = StatusSucceeded
	case values["pending"] == "true":
		n.Status = StatusPending
	}
	return n, nil
}

// Inquire asks Paymob for the latest transaction of an order.
func (p *Paymob) Inquire(ctx context.Context, externalOrderID string) (*Notification, error) {
	orderID, err := strconv.ParseInt(externalOrderID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid paymob order reference %q: %w", externalOrderID, err)
	}
	token, err := p.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	var txn paymobTransaction
	if err := p.post(ctx, "inquire", "/ecommerce/orders/transaction_inquiry", map[string]interface{}{
		"auth_token": token,
		"order_id":   orderID,
	}, &txn); err != nil {
		return nil, err
	}
	if txn.Order.ID == 0 {
		txn.Order.ID = orderID
	}
	return txn.notification(), nil
}

func (p *Paymob) authenticate(ctx context.Context) (string, error) {
	var auth struct {
		Token string `json:"token"`
	}
	if err := p.post(ctx, "auth", "/auth/tokens", map[string]string{"api_key": p.apiKey}, &auth); err != nil {
		return "", err
	}
	if auth.Token == "" {
		return "", fmt.Errorf("paymob auth returned no token")
	}
	return auth.Token, nil
}

func (p *Paymob) post(ctx context.Context, operation, path string, payload interface{}, out interface{}) error {
	defer utils.ObserveGatewayCall(ProviderPaymob, operation, time.Now())

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode paymob %s request: %v", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to build paymob %s request: %v", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach paymob: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read paymob %s response: %v", operation, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("paymob %s error (%d): %s", operation, resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse paymob %s response: %v", operation, err)
	}
	utils.LogDebug("Paymob %s succeeded", operation)
	return nil
}
