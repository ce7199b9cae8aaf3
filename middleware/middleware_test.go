package middleware

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Govind-619/storefront/testutil"
	"github.com/Govind-619/storefront/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateTestUser(t, db, "mona")
	blocked := testutil.CreateTestUser(t, db, "blocked")
	require.NoError(t, db.Model(blocked).Update("is_blocked", true).Error)

	router := gin.New()
	router.GET("/me", AuthMiddleware(db, testutil.TestJWTSecret), func(c *gin.Context) {
		current, ok := CurrentUser(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": current.ID, "user_id": c.GetUint("user_id")})
	})

	resp := testutil.MakeTestRequest(t, router, testutil.TestRequest{Method: http.MethodGet, Path: "/me", Headers: testutil.BearerHeader(t, user)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, user.ID, resp.Body["id"])
	assert.EqualValues(t, user.ID, resp.Body["user_id"])

	resp = testutil.MakeTestRequest(t, router, testutil.TestRequest{Method: http.MethodGet, Path: "/me"})
	testutil.AssertResponse(t, resp, http.StatusUnauthorized, utils.ReasonUnauthorized)

	resp = testutil.MakeTestRequest(t, router, testutil.TestRequest{Method: http.MethodGet, Path: "/me", Headers: map[string]string{"Authorization": "Token abc"}})
	testutil.AssertResponse(t, resp, http.StatusUnauthorized, utils.ReasonUnauthorized)

	forged, err := utils.GenerateToken(user.ID, user.Email, "other-secret", time.Hour)
	require.NoError(t, err)
	resp = testutil.MakeTestRequest(t, router, testutil.TestRequest{Method: http.MethodGet, Path: "/me", Headers: map[string]string{"Authorization": "Bearer " + forged}})
	testutil.AssertResponse(t, resp, http.StatusUnauthorized, utils.ReasonUnauthorized)

	resp = testutil.MakeTestRequest(t, router, testutil.TestRequest{Method: http.MethodGet, Path: "/me", Headers: testutil.BearerHeader(t, blocked)})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminMiddleware(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateTestUser(t, db, "mona")
	admin := testutil.CreateTestUser(t, db, "admin")
	require.NoError(t, db.Model(admin).Update("is_admin", true).Error)

	router := gin.New()
	router.GET("/admin", AuthMiddleware(db, testutil.TestJWTSecret), AdminMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	resp := testutil.MakeTestRequest(t, router, testutil.TestRequest{Method: http.MethodGet, Path: "/admin", Headers: testutil.BearerHeader(t, admin)})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = testutil.MakeTestRequest(t, router, testutil.TestRequest{Method: http.MethodGet, Path: "/admin", Headers: testutil.BearerHeader(t, user)})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

type memoryStore struct {
	mu      sync.Mutex
	locks   map[string]bool
	values  map[string]string
	lockErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{locks: map[string]bool{}, values: map[string]string{}}
}

func (m *memoryStore) TryLock(_ context.Context, scope, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lockErr != nil {
		return false, m.lockErr
	}
	if m.locks[scope+key] {
		return false, nil
	}
	m.locks[scope+key] = true
	return true, nil
}

func (m *memoryStore) Release(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, scope+key)
	return nil
}

func (m *memoryStore) Remember(_ context.Context, scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[scope+key] = value
	return nil
}

func (m *memoryStore) Recall(_ context.Context, scope, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[scope+key]
	return v, ok, nil
}

func idempotentRouter(store IdempotencyStore, calls *int, status int) *gin.Engine {
	router := gin.New()
	router.POST("/checkout", Idempotency(store), func(c *gin.Context) {
		*calls++
		c.JSON(status, gin.H{"order_id": *calls})
	})
	return router
}

func keyed(key string) map[string]string {
	return map[string]string{IdempotencyHeader: key}
}

func TestIdempotencyReplaysResponse(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	router := idempotentRouter(store, &calls, http.StatusCreated)

	first := testutil.MakeTestRequest(t, router, testutil.TestRequest{Method: http.MethodPost, Path: "/checkout", Headers: keyed("k1")})
	second := testutil.MakeTestRequest(t, router, testutil.TestRequest{Method: http.MethodPost, Path: "/checkout", Headers: keyed("k1")})
	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.StatusCode)
	assert.Equal(t, first.Body, second.Body)

	testutil.MakeTestRequest(t, router, testutil.TestRequest{Method: http.MethodPost, Path: "/checkout", Headers: keyed("k2")})
	testutil.MakeTestRequest(t, router, testutil.TestRequest{Method: http.MethodPost, Path: "/checkout"})
	assert.Equal(t, 3, calls)
}

func TestIdempotencyRejectsConcurrentRepeat(t *testing.T) {
	store := newMemoryStore()
	locked, err := store.TryLock(context.Background(), "/checkout:0", "k1")
	require.NoError(t, err)
	require.True(t, locked)
	calls := 0
	router := idempotentRouter(store, &calls, http.StatusCreated)

	resp := testutil.MakeTestRequest(t, router, testutil.TestRequest{Method: http.MethodPost, Path: "/checkout", Headers: keyed("k1")})
	testutil.AssertResponse(t, resp, http.StatusConflict, utils.ReasonRequestInProgress)
	assert.Zero(t, calls)
}

func TestIdempotencyReleasesAfterServerError(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	router := idempotentRouter(store, &calls, http.StatusBadGateway)

	testutil.MakeTestRequest(t, router, testutil.TestRequest{Method: http.MethodPost, Path: "/checkout", Headers: keyed("k1")})
	testutil.MakeTestRequest(t, router, testutil.TestRequest{Method: http.MethodPost, Path: "/checkout", Headers: keyed("k1")})
	assert.Equal(t, 2, calls, "a failed attempt can be retried with the same key")
}

func TestIdempotencyFailsOpen(t *testing.T) {
	store := newMemoryStore()
	store.lockErr = errors.New("redis down")
	calls := 0
	router := idempotentRouter(store, &calls, http.StatusCreated)

	resp := testutil.MakeTestRequest(t, router, testutil.TestRequest{Method: http.MethodPost, Path: "/checkout", Headers: keyed("k1")})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, calls)
}
