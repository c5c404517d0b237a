package httpapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"ledger-exchange-go/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/gowebpki/jcs"
	"go.uber.org/zap"
)

const (
	IdempotencyHeader    = "Idempotency-Key"
	IdempotencyHitHeader = "X-Idempotency-Hit"

	DefaultIdempotencyTTL = 24 * time.Hour

	// LockTimeout bounds how long a crashed request can hold a key.
	LockTimeout = 10 * time.Second

	cacheKeyPrefix = "idempotency:"
	lockKeyPrefix  = "idempotency-lock:"
)

// cachedResponse is what gets stored in Redis for a completed request.
type cachedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	Body        string `json:"body"`
}

// responseRecorder captures status and body while still writing to the client.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *responseRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Fingerprint identifies a request by method, path and canonical JSON body,
// so key order and whitespace do not matter. Bodies that are not valid JSON
// are hashed as-is.
func Fingerprint(method, path string, body []byte) string {
	canon, err := jcs.Transform(body)
	if err != nil {
		canon = body
	}
	sum := sha256.New()
	sum.Write([]byte(method))
	sum.Write([]byte{0})
	sum.Write([]byte(path))
	sum.Write([]byte{0})
	sum.Write(canon)
	return hex.EncodeToString(sum.Sum(nil))
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Only 2xx responses are stored. A key reused with a different body gets 422;
// a duplicate arriving while the first is still running gets 409.
func Idempotency(rdb *redis.Client, ttl time.Duration) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			// Lock release and caching must survive a client that hangs up.
			storeCtx := context.WithoutCancel(ctx)

			raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
			if err != nil {
				writeResult(w, http.StatusOK, models.Failure(models.KindValidation, "Unable to read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(raw))
			fingerprint := Fingerprint(r.Method, r.URL.Path, raw)

			cacheKey := cacheKeyPrefix + key
			lockKey := lockKeyPrefix + key

			if replayed := replay(w, rdb, r, cacheKey, fingerprint); replayed {
				return
			}

			acquired, err := rdb.SetNX(ctx, lockKey, fingerprint, LockTimeout).Result()
			if err != nil {
				zap.L().Error("Idempotency lock acquisition failed", zap.String("key", key), zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, failureBody("Idempotency store unavailable"))
				return
			}
			if !acquired {
				zap.L().Warn("Concurrent request with same idempotency key", zap.String("key", key))
				writeJSON(w, http.StatusConflict, models.Failure(models.KindConflict,
					"A request with this idempotency key is currently being processed"))
				return
			}
			defer func() {
				if err := rdb.Del(storeCtx, lockKey).Err(); err != nil {
					zap.L().Warn("Failed to release idempotency lock", zap.String("key", key), zap.Error(err))
				}
			}()

			// The first request may have finished between the lookup and the lock.
			if replayed := replay(w, rdb, r, cacheKey, fingerprint); replayed {
				return
			}

			rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode < 200 || rec.statusCode >= 300 {
				return
			}
			payload, err := json.Marshal(cachedResponse{
				Fingerprint: fingerprint,
				Status:      rec.statusCode,
				Body:        rec.body.String(),
			})
			if err != nil {
				zap.L().Error("Failed to encode idempotent response", zap.Error(err))
				return
			}
			if err := rdb.Set(storeCtx, cacheKey, payload, ttl).Err(); err != nil {
				zap.L().Warn("Failed to cache idempotent response", zap.String("key", key), zap.Error(err))
				return
			}
			zap.L().Debug("Cached idempotent response", zap.String("key", key), zap.Duration("ttl", ttl))
		})
	}
}

// replay writes the stored response for cacheKey, if any, and reports whether
// the request was answered.
func replay(w http.ResponseWriter, rdb *redis.Client, r *http.Request, cacheKey, fingerprint string) bool {
	stored, err := rdb.Get(r.Context(), cacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		zap.L().Error("Idempotency lookup failed", zap.String("cache_key", cacheKey), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, failureBody("Idempotency store unavailable"))
		return true
	}

	var cached cachedResponse
	if err := json.Unmarshal(stored, &cached); err != nil {
		zap.L().Error("Corrupt idempotency record", zap.String("cache_key", cacheKey), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, failureBody("Idempotency store unavailable"))
		return true
	}
	if cached.Fingerprint != fingerprint {
		writeJSON(w, http.StatusUnprocessableEntity, models.Failure(models.KindValidation,
			"Idempotency-Key was already used with a different request"))
		return true
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(IdempotencyHitHeader, "true")
	w.WriteHeader(cached.Status)
	_, _ = w.Write([]byte(cached.Body))
	return true
}
