package services

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/Govind-619/storefront/gateway"
	"github.com/Govind-619/storefront/models"
	"github.com/Govind-619/storefront/notify"
	"github.com/Govind-619/storefront/testutil"
	"github.com/Govind-619/storefront/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func assertReason(t *testing.T, err error, reason string) {
	t.Helper()
	require.Error(t, err)
	appErr := utils.GetAppError(err)
	require.NotNil(t, appErr, "expected an AppError, got %v", err)
	assert.Equal(t, reason, appErr.Reason, appErr.Error())
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

type recordingSink struct {
	mu       sync.Mutex
	subjects []string
	bodies   []string
}

func (r *recordingSink) Notify(recipient, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	r.bodies = append(r.bodies, body)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subjects)
}

const fakeGatewaySecret = "fake-gateway-secret"

// fakeGateway signs webhook bodies with HMAC-SHA256 and answers session and
// inquiry calls from its fields.
type fakeGateway struct {
	mu         sync.Mutex
	requests   []gateway.PaymentRequest
	sessionErr error
	nextRef    string
	inquiry    *gateway.Notification
	inquiries  int
}

func (f *fakeGateway) signer() gateway.Signer {
	return gateway.Signer{
		Hash:      sha256.New,
		Key:       []byte(fakeGatewaySecret),
		Fields:    []string{"order_id", "txn", "status"},
		Separator: "|",
	}
}

func (f *fakeGateway) Name() string { return "fake" }

func (f *fakeGateway) CreateSession(_ context.Context, req gateway.PaymentRequest) (*gateway.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	ref := req.ExistingReference
	if ref == "" {
		ref = f.nextRef
	}
	return &gateway.Session{ExternalOrderID: ref, PaymentURL: "https://pay.example.com/" + ref}, nil
}

func (f *fakeGateway) WebhookSignature(header http.Header, _ url.Values) string {
	return header.Get("X-Signature")
}

type fakeEvent struct {
	OrderID string `json:"order_id"`
	Txn     string `json:"txn"`
	Status  string `json:"status"`
}

func (f *fakeGateway) VerifyWebhook(body []byte, signature string) (*gateway.Notification, error) {
	if !f.signer().VerifyBytes(body, signature) {
		return nil, gateway.ErrInvalidSignature
	}
	var ev fakeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, gateway.ErrInvalidSignature
	}
	return &gateway.Notification{ExternalOrderID: ev.OrderID, TransactionID: ev.Txn, Status: gateway.PaymentStatus(ev.Status)}, nil
}

func (f *fakeGateway) VerifyRedirect(query url.Values) (*gateway.Notification, error) {
	values := map[string]string{"order_id": query.Get("order_id"), "txn": query.Get("txn"), "status": query.Get("status")}
	if !f.signer().Verify(values, query.Get("sig")) {
		return nil, gateway.ErrInvalidSignature
	}
	return &gateway.Notification{ExternalOrderID: values["order_id"], TransactionID: values["txn"], Status: gateway.PaymentStatus(values["status"])}, nil
}

func (f *fakeGateway) Inquire(_ context.Context, externalOrderID string) (*gateway.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inquiries++
	if f.inquiry == nil {
		return nil, errors.New("gateway unreachable")
	}
	n := *f.inquiry
	return &n, nil
}

func (f *fakeGateway) webhook(t *testing.T, ref, txn string, status gateway.PaymentStatus) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(fakeEvent{OrderID: ref, Txn: txn, Status: string(status)})
	require.NoError(t, err)
	return body, f.signer().SignBytes(body)
}

func (f *fakeGateway) redirect(ref, txn string, status gateway.PaymentStatus) url.Values {
	q := url.Values{}
	q.Set("order_id", ref)
	q.Set("txn", txn)
	q.Set("status", string(status))
	q.Set("sig", f.signer().Sign(map[string]string{"order_id": ref, "txn": txn, "status": string(status)}))
	return q
}

type fixture struct {
	db         *gorm.DB
	user       *models.User
	sink       *recordingSink
	gw         *fakeGateway
	cart       *CartService
	checkout   *CheckoutService
	orders     *OrderService
	settlement *SettlementService
	fulfilment *FulfilmentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	sink := &recordingSink{}
	dispatcher := notify.NewDispatcher(sink, "admin@example.com", "EGP")
	gw := &fakeGateway{nextRef: "ext-1"}
	return &fixture{
		db:         db,
		user:       testutil.CreateTestUser(t, db, "mona"),
		sink:       sink,
		gw:         gw,
		cart:       NewCartService(db),
		checkout:   NewCheckoutService(db, dispatcher),
		orders:     NewOrderService(db),
		settlement: NewSettlementService(db, gw, dispatcher, "EGP"),
		fulfilment: NewFulfilmentService(db, dispatcher),
	}
}

func (f *fixture) addToCart(t *testing.T, product *models.Product, qty int) {
	t.Helper()
	_, err := f.cart.AddItem(context.Background(), f.user.ID, product.ID, qty)
	require.NoError(t, err)
}

func (f *fixture) placeOrder(t *testing.T, method string) *OrderReceipt {
	t.Helper()
	receipt, err := f.checkout.Checkout(context.Background(), f.user.ID, CheckoutRequest{
		Phone:         "+201000000000",
		Address:       "1 Nile St, Cairo",
		PaymentMethod: method,
	})
	require.NoError(t, err)
	return receipt
}
