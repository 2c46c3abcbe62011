package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/apperror"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/transport/http/api"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	idempotencyLock   = 30 * time.Second
	maxIdempotentBody = 1 << 20
)

var (
	ErrIdempotencyConflict = apperror.ErrConflict.WithMessage("Idempotency-Key was already used with a different payload")
	ErrIdempotencyInFlight = apperror.ErrConflict.WithMessage("a request with this Idempotency-Key is still being processed")
)

type storedResponse struct {
	Hash   string          `json:"hash"`
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func idempotencyKeys(path, userID, key string) (cacheKey, lockKey string) {
	cacheKey = fmt.Sprintf("idemp:%s:%s:%s", path, userID, key)
	return cacheKey, cacheKey + ":lock"
}

type responseCapture struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

// Idempotency replays the stored response for a repeated POST carrying the
// same Idempotency-Key and body. Keys are scoped by path and actor. Redis
// errors degrade to running the request normally.
func Idempotency(rdb redis.Cmdable, ttl time.Duration, log *zap.Logger) func(http.Handler) http.Handler {
	log = log.Named("http.idempotency")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			actor, authed := GetActor(r.Context())
			if rdb == nil || key == "" || r.Method != http.MethodPost || !authed {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			reqID := GetRequestID(ctx)

			raw, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBody))
			if err != nil {
				api.FailError(w, apperror.ErrValidation.WithMessage("unreadable request body"), reqID)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(raw))
			hash := RequestHash(raw)
			cacheKey, lockKey := idempotencyKeys(r.URL.Path, actor.UserID, key)

			val, err := rdb.Get(ctx, cacheKey).Bytes()
			switch {
			case err == nil:
				var stored storedResponse
				if err := json.Unmarshal(val, &stored); err == nil {
					if stored.Hash != hash {
						api.FailError(w, ErrIdempotencyConflict, reqID)
						return
					}
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("Idempotent-Replayed", "true")
					w.WriteHeader(stored.Status)
					_, _ = w.Write(stored.Body)
					return
				}
				log.Warn("discarding unreadable idempotency entry", zap.String("key", cacheKey))
			case !errors.Is(err, redis.Nil):
				log.Warn("idempotency lookup failed", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			locked, err := rdb.SetNX(ctx, lockKey, reqID, idempotencyLock).Result()
			if err != nil {
				log.Warn("idempotency lock failed", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !locked {
				api.FailError(w, ErrIdempotencyInFlight, reqID)
				return
			}

			// A client that hangs up cancels ctx; the unlock and the stored
			// result must still reach redis.
			detached := context.WithoutCancel(ctx)
			capture := &responseCapture{ResponseWriter: w}
			defer func() {
				if err := rdb.Del(detached, lockKey).Err(); err != nil {
					log.Warn("idempotency unlock failed", zap.Error(err))
				}
			}()
			next.ServeHTTP(capture, r)

			if capture.status == 0 || capture.status >= http.StatusInternalServerError {
				return
			}
			payload, err := json.Marshal(storedResponse{Hash: hash, Status: capture.status, Body: capture.body.Bytes()})
			if err != nil {
				return
			}
			if err := rdb.Set(detached, cacheKey, payload, ttl).Err(); err != nil {
				log.Warn("idempotency store failed", zap.Error(err))
			}
		})
	}
}
