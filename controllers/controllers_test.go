package controllers_test

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/Govind-619/storefront/config"
	"github.com/Govind-619/storefront/controllers"
	"github.com/Govind-619/storefront/gateway"
	"github.com/Govind-619/storefront/models"
	"github.com/Govind-619/storefront/notify"
	"github.com/Govind-619/storefront/routes"
	"github.com/Govind-619/storefront/services"
	"github.com/Govind-619/storefront/testutil"
	"github.com/Govind-619/storefront/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const webhookSecret = "webhook-secret"

type stubOrders struct {
	status string
}

func (s *stubOrders) Create(map[string]interface{}, map[string]string) (map[string]interface{}, error) {
	return map[string]interface{}{"id": "order_Rz1", "status": "created"}, nil
}

func (s *stubOrders) Fetch(string, map[string]interface{}, map[string]string) (map[string]interface{}, error) {
	return map[string]interface{}{"status": s.status}, nil
}

type apiFixture struct {
	db     *gorm.DB
	router *gin.Engine
	user   *models.User
	auth   map[string]string
	orders *stubOrders
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	db := testutil.NewTestDB(t)

	var cfg config.GatewayConfig
	cfg.Provider = gateway.ProviderRazorpay
	cfg.Currency = "INR"
	cfg.Razorpay.KeyID = "rzp_test"
	cfg.Razorpay.KeySecret = "key-secret"
	cfg.Razorpay.WebhookSecret = webhookSecret
	cfg.Razorpay.CheckoutURL = "https://shop.example.com/pay"
	orders := &stubOrders{status: "created"}
	gw := gateway.NewRazorpayWithOrders(cfg, orders)

	dispatcher := notify.NewDispatcher(notify.LogSink{}, "", "INR")
	h := &controllers.Handlers{
		Cart:       services.NewCartService(db),
		Checkout:   services.NewCheckoutService(db, dispatcher),
		Orders:     services.NewOrderService(db),
		Settlement: services.NewSettlementService(db, gw, dispatcher, "INR"),
		Fulfilment: services.NewFulfilmentService(db, dispatcher),
		Currency:   "INR",
	}
	router := routes.SetupRouter(h, routes.Options{DB: db, JWTSecret: testutil.TestJWTSecret})

	user := testutil.CreateTestUser(t, db, "mona")
	return &apiFixture{db: db, router: router, user: user, auth: testutil.BearerHeader(t, user), orders: orders}
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) testutil.TestResponse {
	t.Helper()
	return testutil.MakeTestRequest(t, f.router, testutil.TestRequest{Method: method, Path: path, Body: body, Headers: f.auth})
}

func (f *apiFixture) checkout(t *testing.T, productID uint, qty int, method string) uint {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/v1/user/cart/items", gin.H{"product_id": productID, "quantity": qty})
	testutil.AssertResponse(t, resp, http.StatusOK, "")
	resp = f.do(t, http.MethodPost, "/v1/user/checkout", gin.H{"phone": "+919876543210", "address": "12 MG Road, Pune", "payment_method": method})
	testutil.AssertResponse(t, resp, http.StatusCreated, "")
	return uint(resp.Data()["order_id"].(float64))
}

func signedWebhook(t *testing.T, event, orderID, paymentID string) ([]byte, map[string]string) {
	t.Helper()
	body := []byte(fmt.Sprintf(`{"event":%q,"payload":{"payment":{"entity":{"id":%q,"order_id":%q,"amount":40000}}}}`, event, paymentID, orderID))
	signer := gateway.Signer{Hash: sha256.New, Key: []byte(webhookSecret)}
	return body, map[string]string{"X-Razorpay-Signature": signer.SignBytes(body)}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newAPIFixture(t)
	resp := testutil.MakeTestRequest(t, f.router, testutil.TestRequest{Method: http.MethodGet, Path: "/healthz"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = testutil.MakeTestRequest(t, f.router, testutil.TestRequest{Method: http.MethodGet, Path: "/metrics"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(resp.Raw), "http_requests_total")
}

func TestUserRoutesRequireToken(t *testing.T) {
	f := newAPIFixture(t)
	resp := testutil.MakeTestRequest(t, f.router, testutil.TestRequest{Method: http.MethodGet, Path: "/v1/user/cart"})
	testutil.AssertResponse(t, resp, http.StatusUnauthorized, utils.ReasonUnauthorized)
}

func TestCartEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	shirt := testutil.CreateTestProduct(t, f.db, "Shirt", "100", 5)
	testutil.CreateTestCoupon(t, f.db, "SAVE10", models.DiscountPercentage, "10")

	resp := f.do(t, http.MethodPost, "/v1/user/cart/items", gin.H{"product_id": shirt.ID, "quantity": 2})
	testutil.AssertResponse(t, resp, http.StatusOK, "")
	assert.Equal(t, "200", resp.Data()["total"])

	resp = f.do(t, http.MethodPost, "/v1/user/cart/items", gin.H{"quantity": 2})
	testutil.AssertResponse(t, resp, http.StatusBadRequest, utils.ReasonInvalidRequest)

	resp = f.do(t, http.MethodPut, fmt.Sprintf("/v1/user/cart/items/%d", shirt.ID), gin.H{"quantity": 3})
	testutil.AssertResponse(t, resp, http.StatusOK, "")
	assert.Equal(t, "300", resp.Data()["total"])

	resp = f.do(t, http.MethodPost, "/v1/user/cart/coupon", gin.H{"code": "SAVE10"})
	testutil.AssertResponse(t, resp, http.StatusOK, "")
	assert.Equal(t, "30", resp.Data()["discount"])
	assert.Equal(t, "270", resp.Data()["total"])

	resp = f.do(t, http.MethodPost, "/v1/user/cart/coupon", gin.H{"code": "NOPE"})
	testutil.AssertResponse(t, resp, http.StatusNotFound, utils.ReasonCouponNotFound)

	resp = f.do(t, http.MethodDelete, "/v1/user/cart/coupon", nil)
	testutil.AssertResponse(t, resp, http.StatusOK, "")
	assert.Equal(t, "300", resp.Data()["total"])

	resp = f.do(t, http.MethodDelete, fmt.Sprintf("/v1/user/cart/items/%d", shirt.ID), nil)
	testutil.AssertResponse(t, resp, http.StatusOK, "")

	resp = f.do(t, http.MethodDelete, "/v1/user/cart/items/abc", nil)
	testutil.AssertResponse(t, resp, http.StatusBadRequest, utils.ReasonInvalidRequest)

	resp = f.do(t, http.MethodGet, "/v1/user/cart", nil)
	testutil.AssertResponse(t, resp, http.StatusOK, "")
	assert.Empty(t, resp.Data()["items"])
}

func TestCheckoutEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	shirt := testutil.CreateTestProduct(t, f.db, "Shirt", "100", 5)

	resp := f.do(t, http.MethodPost, "/v1/user/checkout", gin.H{"phone": "+919876543210", "address": "Pune", "payment_method": "cod"})
	testutil.AssertResponse(t, resp, http.StatusBadRequest, utils.ReasonEmptyCart)

	orderID := f.checkout(t, shirt.ID, 2, "cod")
	assert.Equal(t, 3, testutil.ReloadProduct(t, f.db, shirt.ID).Stock)

	resp = f.do(t, http.MethodGet, fmt.Sprintf("/v1/user/orders/%d", orderID), nil)
	testutil.AssertResponse(t, resp, http.StatusOK, "")
	assert.Equal(t, "cod", resp.Data()["status"])
	assert.Equal(t, "200", resp.Data()["total_price"])

	resp = f.do(t, http.MethodGet, "/v1/user/orders?page=1&limit=5", nil)
	testutil.AssertResponse(t, resp, http.StatusOK, "")
	assert.EqualValues(t, 1, resp.Body["pagination"].(map[string]interface{})["total"])
}

func TestOnlinePaymentFlow(t *testing.T) {
	f := newAPIFixture(t)
	shirt := testutil.CreateTestProduct(t, f.db, "Shirt", "200", 5)
	orderID := f.checkout(t, shirt.ID, 2, "online")
	assert.Equal(t, 5, testutil.ReloadProduct(t, f.db, shirt.ID).Stock)

	resp := f.do(t, http.MethodPost, fmt.Sprintf("/v1/user/orders/%d/pay", orderID), nil)
	testutil.AssertResponse(t, resp, http.StatusOK, "")
	assert.Equal(t, "order_Rz1", resp.Data()["external_order_id"])
	assert.Equal(t, "https://shop.example.com/pay?order_id=order_Rz1", resp.Data()["payment_url"])

	resp = f.do(t, http.MethodGet, fmt.Sprintf("/v1/user/orders/%d/payment-status", orderID), nil)
	testutil.AssertResponse(t, resp, http.StatusOK, "")
	assert.Equal(t, false, resp.Data()["paid"])

	body, headers := signedWebhook(t, "payment.captured", "order_Rz1", "pay_1")
	tampered := append([]byte(nil), body...)
	tampered[len(tampered)-3] = '9'
	resp = testutil.MakeTestRequest(t, f.router, testutil.TestRequest{Method: http.MethodPost, Path: "/v1/payments/webhook", Body: tampered, Headers: headers})
	testutil.AssertResponse(t, resp, http.StatusForbidden, utils.ReasonInvalidSignature)
	assert.Equal(t, 5, testutil.ReloadProduct(t, f.db, shirt.ID).Stock)

	for i := 0; i < 2; i++ {
		resp = testutil.MakeTestRequest(t, f.router, testutil.TestRequest{Method: http.MethodPost, Path: "/v1/payments/webhook", Body: body, Headers: headers})
		testutil.AssertResponse(t, resp, http.StatusOK, "")
		assert.Equal(t, "paid", resp.Body["order_status"])
	}
	assert.Equal(t, 3, testutil.ReloadProduct(t, f.db, shirt.ID).Stock)

	resp = f.do(t, http.MethodGet, fmt.Sprintf("/v1/user/orders/%d/payment-status", orderID), nil)
	assert.Equal(t, true, resp.Data()["paid"])

	resp = f.do(t, http.MethodPut, fmt.Sprintf("/v1/user/orders/%d", orderID), gin.H{"address": "Mumbai"})
	testutil.AssertResponse(t, resp, http.StatusConflict, utils.ReasonOrderNotPending)
}

func TestPaymentCallback(t *testing.T) {
	f := newAPIFixture(t)
	shirt := testutil.CreateTestProduct(t, f.db, "Shirt", "200", 5)
	orderID := f.checkout(t, shirt.ID, 1, "online")
	resp := f.do(t, http.MethodPost, fmt.Sprintf("/v1/user/orders/%d/pay", orderID), nil)
	testutil.AssertResponse(t, resp, http.StatusOK, "")

	signer := gateway.Signer{Hash: sha256.New, Key: []byte("key-secret"), Fields: []string{"razorpay_order_id", "razorpay_payment_id"}, Separator: "|"}
	q := url.Values{}
	q.Set("razorpay_order_id", "order_Rz1")
	q.Set("razorpay_payment_id", "pay_other")
	q.Set("razorpay_signature", signer.Sign(map[string]string{"razorpay_order_id": "order_Rz1", "razorpay_payment_id": "pay_9"}))

	resp = testutil.MakeTestRequest(t, f.router, testutil.TestRequest{Method: http.MethodGet, Path: "/v1/payments/callback?" + q.Encode()})
	testutil.AssertResponse(t, resp, http.StatusForbidden, utils.ReasonInvalidSignature)
	assert.Equal(t, 5, testutil.ReloadProduct(t, f.db, shirt.ID).Stock)

	q.Set("razorpay_payment_id", "pay_9")
	q.Set("razorpay_signature", signer.Sign(map[string]string{"razorpay_order_id": "order_Rz1", "razorpay_payment_id": "pay_9"}))
	resp = testutil.MakeTestRequest(t, f.router, testutil.TestRequest{Method: http.MethodGet, Path: "/v1/payments/callback?" + q.Encode()})
	testutil.AssertResponse(t, resp, http.StatusOK, "")
	assert.Equal(t, "paid", resp.Data()["status"])
	assert.Equal(t, 4, testutil.ReloadProduct(t, f.db, shirt.ID).Stock)
}

func TestOrderUpdateAndInvoice(t *testing.T) {
	f := newAPIFixture(t)
	shirt := testutil.CreateTestProduct(t, f.db, "Shirt", "100", 5)
	orderID := f.checkout(t, shirt.ID, 2, "online")

	resp := f.do(t, http.MethodPut, fmt.Sprintf("/v1/user/orders/%d", orderID), gin.H{"items": []gin.H{{"product_id": shirt.ID, "quantity": 1}}})
	testutil.AssertResponse(t, resp, http.StatusOK, "")
	assert.Equal(t, "100", resp.Data()["total_price"])

	resp = f.do(t, http.MethodGet, fmt.Sprintf("/v1/user/orders/%d/invoice", orderID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, "%PDF", string(resp.Raw[:4]))

	other := testutil.CreateTestUser(t, f.db, "other")
	resp = testutil.MakeTestRequest(t, f.router, testutil.TestRequest{Method: http.MethodGet, Path: fmt.Sprintf("/v1/user/orders/%d/invoice", orderID), Headers: testutil.BearerHeader(t, other)})
	testutil.AssertResponse(t, resp, http.StatusNotFound, utils.ReasonOrderNotFound)

	resp = f.do(t, http.MethodPut, fmt.Sprintf("/v1/user/orders/%d", orderID), gin.H{"items": []gin.H{{"product_id": shirt.ID, "quantity": 0}}})
	testutil.AssertResponse(t, resp, http.StatusOK, "")
	assert.Equal(t, true, resp.Data()["deleted"])
}

func TestAdminOrderStatus(t *testing.T) {
	f := newAPIFixture(t)
	shirt := testutil.CreateTestProduct(t, f.db, "Shirt", "100", 5)
	orderID := f.checkout(t, shirt.ID, 2, "cod")
	path := fmt.Sprintf("/v1/admin/orders/%d/status", orderID)

	resp := f.do(t, http.MethodPut, path, gin.H{"status": "shipped"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "customers cannot fulfil orders")

	admin := testutil.CreateTestUser(t, f.db, "admin")
	require.NoError(t, f.db.Model(admin).Update("is_admin", true).Error)
	asAdmin := func(body interface{}) testutil.TestResponse {
		return testutil.MakeTestRequest(t, f.router, testutil.TestRequest{
			Method: http.MethodPut, Path: path, Body: body, Headers: testutil.BearerHeader(t, admin),
		})
	}

	resp = asAdmin(gin.H{})
	testutil.AssertResponse(t, resp, http.StatusBadRequest, utils.ReasonInvalidRequest)

	resp = asAdmin(gin.H{"status": "delivered"})
	testutil.AssertResponse(t, resp, http.StatusConflict, utils.ReasonInvalidTransition)

	resp = asAdmin(gin.H{"status": "cancelled"})
	testutil.AssertResponse(t, resp, http.StatusOK, "")
	assert.Equal(t, "cancelled", resp.Data()["status"])
	assert.Equal(t, 5, testutil.ReloadProduct(t, f.db, shirt.ID).Stock)
}
