package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Govind-619/storefront/utils"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// IdempotencyHeader carries the client-chosen key for a retry-safe request.
const IdempotencyHeader = "Idempotency-Key"

// IdempotencyStore remembers which keys are in flight and what they returned.
type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

type RedisIdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisIdempotencyStore(rdb *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *RedisIdempotencyStore) TryLock(ctx context.Context, scope, key string) (bool, error) {
	return s.rdb.SetNX(ctx, "idemp:"+scope+":"+key, "1", s.ttl).Result()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, scope, key string) error {
	return s.rdb.Del(ctx, "idemp:"+scope+":"+key).Err()
}

func (s *RedisIdempotencyStore) Remember(ctx context.Context, scope, key, value string) error {
	return s.rdb.Set(ctx, "idemp:map:"+scope+":"+key, value, s.ttl).Err()
}

func (s *RedisIdempotencyStore) Recall(ctx context.Context, scope, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, "idemp:map:"+scope+":"+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	return val, true, err
}

var _ IdempotencyStore = (*RedisIdempotencyStore)(nil)

type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response for a repeated Idempotency-Key and
// rejects a repeat that arrives while the first request is still running.
// Keys are scoped per user; requests without the header pass through. A nil
// store disables the middleware.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if store == nil || key == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		scope := fmt.Sprintf("%s:%d", c.FullPath(), c.GetUint("user_id"))

		if raw, ok, err := store.Recall(ctx, scope, key); err != nil {
			utils.LogError("Idempotency recall failed for %s: %v", scope, err)
		} else if ok {
			var stored storedResponse
			if err := json.Unmarshal([]byte(raw), &stored); err == nil {
				utils.LogInfo("Replaying response for idempotency key %s", key)
				c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
				c.Abort()
				return
			}
		}

		locked, err := store.TryLock(ctx, scope, key)
		if err != nil {
			// Fail open when the store is unreachable.
			utils.LogError("Idempotency lock failed for %s: %v", scope, err)
			c.Next()
			return
		}
		if !locked {
			utils.Conflict(c, utils.ReasonRequestInProgress, "A request with this Idempotency-Key is already in progress")
			c.Abort()
			return
		}

		writer := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		status := writer.Status()
		if status >= http.StatusInternalServerError {
			if err := store.Release(ctx, scope, key); err != nil {
				utils.LogError("Idempotency release failed for %s: %v", scope, err)
			}
			return
		}
		raw, err := json.Marshal(storedResponse{Status: status, Body: writer.body.Bytes()})
		if err != nil {
			utils.LogError("Failed to encode response for idempotency key %s: %v", key, err)
			return
		}
		if err := store.Remember(ctx, scope, key, string(raw)); err != nil {
			utils.LogError("Idempotency remember failed for %s: %v", scope, err)
		}
	}
}
