// internal/cache/ratelimit.go
package cache

import (
	"net/http"
	"strconv"
	"time"

	"wallet-service/internal/auth"
	"wallet-service/pkg/response"
	"wallet-service/pkg/security"
)

// RateLimiter counts requests per user (or per client IP before
// authentication) in fixed windows and blocks a client that exceeds limit
// for blockDuration. Redis failures let traffic through.
func RateLimiter(c *Cache, limit int, window, blockDuration time.Duration, keyPrefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var clientID string
			if userID, ok := auth.GetUserID(ctx); ok && userID != "" {
				clientID = "uid:" + userID
			} else {
				clientID = "ip:" + security.ClientIP(r)
			}

			blockKey := clientID + ":blocked"

			if blocked, _ := c.Get(ctx, keyPrefix, blockKey); blocked == "1" {
				ttl, _ := c.TTL(ctx, keyPrefix, blockKey)
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
				response.Error(w, http.StatusTooManyRequests, "Too Many Requests. Try again in "+ttl.String())
				return
			}

			count, err := c.Incr(ctx, keyPrefix, clientID, window)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(limit) {
				_ = c.Set(ctx, keyPrefix, blockKey, "1", blockDuration)
				w.Header().Set("Retry-After", strconv.Itoa(int(blockDuration.Seconds())))
				response.Error(w, http.StatusTooManyRequests, "Too Many Requests. Blocked for "+blockDuration.String())
				return
			}

			ttl, _ := c.TTL(ctx, keyPrefix, clientID)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limit-int(count)))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(ttl.Seconds())))

			next.ServeHTTP(w, r)
		})
	}
}
