package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dluzirna/dluzirna/internal/cache"
	"github.com/dluzirna/dluzirna/pkg/errors"
	"github.com/dluzirna/dluzirna/pkg/logger"
	"github.com/dluzirna/dluzirna/pkg/metrics"
	"github.com/dluzirna/dluzirna/pkg/response"
)

// ThrottleRule is one fixed-window limit keyed per request. A rule whose Key
// func returns an empty string skips the request.
type ThrottleRule struct {
	Name   string
	Limit  int64
	Window time.Duration
	Key    func(c *gin.Context) string
}

// Standard rules. Counters live in the shared store so the limits hold across
// instances.
func EmailRule() ThrottleRule {
	return ThrottleRule{Name: "emails", Limit: 5, Window: time.Hour, Key: KeyByClientIP}
}

func LoginRule() ThrottleRule {
	return ThrottleRule{Name: "logins", Limit: 5, Window: 20 * time.Minute, Key: KeyByBodyEmail}
}

func RegistrationRule() ThrottleRule {
	return ThrottleRule{Name: "registrations", Limit: 3, Window: time.Hour, Key: KeyByClientIP}
}

func TokenViewRule() ThrottleRule {
	return ThrottleRule{Name: "token_views", Limit: 10, Window: time.Minute, Key: KeyByClientIP}
}

// Throttle enforces one rule against the shared counter store. Loopback
// sources are exempt, and every violation produces the same throttled
// response regardless of which rule fired. Store failures let the request
// through: the limiter is defence-in-depth, not a correctness guard.
func Throttle(store cache.Store, rule ThrottleRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isLoopback(c.ClientIP()) {
			c.Next()
			return
		}

		key := rule.Key(c)
		if key == "" {
			c.Next()
			return
		}

		count, ttl, err := store.IncrementWithTTL(c.Request.Context(), "throttle:"+rule.Name+":"+key, rule.Window)
		if err != nil {
			logger.Named("throttle").Warn("counter store unavailable",
				zap.String("rule", rule.Name),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if count > rule.Limit {
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			metrics.ThrottleRejections.WithLabelValues(rule.Name).Inc()
			response.Error(c, errors.ErrThrottled)
			c.Abort()
			return
		}

		c.Next()
	}
}

// KeyByClientIP classifies requests per source address.
func KeyByClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByBodyEmail classifies requests per submitted email so a distributed
// credential-stuffing run against one account is still caught. The body is
// restored for the downstream handler.
func KeyByBodyEmail(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<16))
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}

func isLoopback(ip string) bool {
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}
