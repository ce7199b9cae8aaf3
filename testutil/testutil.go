// Package testutil holds database and HTTP helpers shared by the package tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Govind-619/storefront/config"
	"github.com/Govind-619/storefront/models"
	"github.com/Govind-619/storefront/utils"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestJWTSecret signs tokens issued by GetTestToken.
const TestJWTSecret = "test-secret"

// NewTestDB opens a migrated in-memory database. A single connection keeps
// every session on the same memory database and serialises transactions.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	return db
}

// CreateTestUser creates a test user
func CreateTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestProduct creates a test product
func CreateTestProduct(t *testing.T, db *gorm.DB, name string, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

// CouponOption adjusts a coupon before it is stored.
type CouponOption func(*models.Coupon)

// WithUsage sets a usage ceiling and the count already consumed.
func WithUsage(limit, count int) CouponOption {
	return func(c *models.Coupon) {
		c.UsageLimit = &limit
		c.UsageCount = count
	}
}

// WithWindow sets the validity window.
func WithWindow(from, until time.Time) CouponOption {
	return func(c *models.Coupon) {
		c.ValidFrom = from
		c.ValidUntil = until
	}
}

// Inactive stores the coupon switched off.
func Inactive() CouponOption {
	return func(c *models.Coupon) { c.Active = false }
}

// CreateTestCoupon creates an active coupon valid for a day either side of now.
func CreateTestCoupon(t *testing.T, db *gorm.DB, code string, discountType models.DiscountType, discount string, opts ...CouponOption) *models.Coupon {
	t.Helper()
	now := time.Now()
	coupon := &models.Coupon{
		Code:         code,
		Discount:     decimal.RequireFromString(discount),
		DiscountType: discountType,
		Active:       true,
		ValidFrom:    now.Add(-24 * time.Hour),
		ValidUntil:   now.Add(24 * time.Hour),
	}
	for _, opt := range opts {
		opt(coupon)
	}
	require.NoError(t, db.Create(coupon).Error)
	return coupon
}

// ReloadProduct returns the stored product.
func ReloadProduct(t *testing.T, db *gorm.DB, id uint) models.Product {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, id).Error)
	return p
}

// ReloadOrder returns the stored order with its items.
func ReloadOrder(t *testing.T, db *gorm.DB, id uint) models.Order {
	t.Helper()
	var o models.Order
	require.NoError(t, db.Preload("Items").First(&o, id).Error)
	return o
}

// CountRows counts the rows of model's table.
func CountRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

// TestRequest represents a test HTTP request
type TestRequest struct {
	Method  string
	Path    string
	Body    interface{}
	Headers map[string]string
}

// TestResponse represents a test HTTP response
type TestResponse struct {
	StatusCode int
	Body       map[string]interface{}
	Raw        []byte
	Header     http.Header
}

// Reason returns the machine-readable failure reason, if any.
func (r TestResponse) Reason() string {
	reason, _ := r.Body["reason"].(string)
	return reason
}

// Data returns the data object of a StandardResponse.
func (r TestResponse) Data() map[string]interface{} {
	data, _ := r.Body["data"].(map[string]interface{})
	return data
}

// MakeTestRequest makes a test HTTP request
func MakeTestRequest(t *testing.T, router http.Handler, req TestRequest) TestResponse {
	t.Helper()

	var body []byte
	switch b := req.Body.(type) {
	case nil:
	case []byte:
		body = b
	case string:
		body = []byte(b)
	default:
		var err error
		body, err = json.Marshal(b)
		require.NoError(t, err)
	}

	httpReq, err := http.NewRequest(req.Method, req.Path, bytes.NewBuffer(body))
	require.NoError(t, err)
	httpReq.Header.Set("Content-Type", "application/json")
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httpReq)

	var responseBody map[string]interface{}
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "application/pdf" {
		_ = json.Unmarshal(w.Body.Bytes(), &responseBody)
	}

	return TestResponse{
		StatusCode: w.Code,
		Body:       responseBody,
		Raw:        w.Body.Bytes(),
		Header:     w.Header(),
	}
}

// AssertResponse asserts the status code and, when given, the failure reason.
func AssertResponse(t *testing.T, response TestResponse, expectedStatusCode int, expectedReason string) {
	t.Helper()
	assert.Equal(t, expectedStatusCode, response.StatusCode, string(response.Raw))
	if expectedReason != "" {
		assert.Equal(t, expectedReason, response.Reason())
	}
}

// GetTestToken generates a test JWT token
func GetTestToken(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(user.ID, user.Email, TestJWTSecret, time.Hour)
	require.NoError(t, err)
	return token
}

// BearerHeader builds the Authorization header for user.
func BearerHeader(t *testing.T, user *models.User) map[string]string {
	return map[string]string{"Authorization": fmt.Sprintf("Bearer %s", GetTestToken(t, user))}
}

func init() {
	gin.SetMode(gin.TestMode)
}
