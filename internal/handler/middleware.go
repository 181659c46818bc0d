package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fajarsembar01/home/internal/model"
)

const (
	// HeaderRequestID carries the request id in both directions
	HeaderRequestID = "X-Request-ID"
	// HeaderUserID identifies the caller (chat id, account id)
	HeaderUserID = "X-User-ID"

	headerUsername  = "X-Username"
	headerFirstName = "X-First-Name"
	headerLastName  = "X-Last-Name"

	requestIDKey = "request_id"
	userKey      = "user"
)

// RequestID reuses a well-formed incoming X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger logs one structured line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString(requestIDKey),
		}
		if u, ok := c.Get(userKey); ok {
			attrs = append(attrs, "user_id", u.(*model.User).ID)
		}

		switch {
		case status >= 500:
			logger.Error("request", attrs...)
		case status >= 400:
			logger.Warn("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	}
}

// UserStore resolves callers to stored users
type UserStore interface {
	GetOrCreateUser(ctx context.Context, externalID string, username, firstName, lastName *string) (*model.User, error)
}

// ResolveUser requires X-User-ID and loads (or registers) that user.
// Optional X-Username, X-First-Name and X-Last-Name refresh the profile.
func ResolveUser(users UserStore, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		externalID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if externalID == "" || len(externalID) > 64 {
			abortWithError(c, http.StatusUnauthorized, CodeUnauthenticated, "missing or invalid "+HeaderUserID+" header")
			return
		}

		user, err := users.GetOrCreateUser(c.Request.Context(), externalID,
			optionalHeader(c, headerUsername),
			optionalHeader(c, headerFirstName),
			optionalHeader(c, headerLastName))
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

func optionalHeader(c *gin.Context, name string) *string {
	v := strings.TrimSpace(c.GetHeader(name))
	if v == "" {
		return nil
	}
	return &v
}

func currentUser(c *gin.Context) *model.User {
	return c.MustGet(userKey).(*model.User)
}

// RateCounter is the subset of the Redis client used for rate limiting
type RateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RateLimit enforces a fixed one-minute window per user in Redis. A nil
// counter or a non-positive limit disables it.
func RateLimit(rdb RateCounter, perMinute int, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || perMinute <= 0 {
			c.Next()
			return
		}

		window := time.Now().UTC().Format("200601021504") // YYYYMMDDHHMM minute window
		key := fmt.Sprintf("propertibot:rl:%d:%s", currentUser(c).ID, window)

		ctx := c.Request.Context()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			logger.Error("rate limit increment failed", "key", key, "error", err)
			abortWithError(c, http.StatusInternalServerError, CodeInternal, msgInternal)
			return
		}
		if count == 1 {
			// First hit in this window; set TTL
			_ = rdb.Expire(ctx, key, time.Minute)
		}

		if count > int64(perMinute) {
			c.Header("Retry-After", "60")
			abortWithError(c, http.StatusTooManyRequests, CodeRateLimited, msgRateLimited)
			return
		}

		c.Next()
	}
}
