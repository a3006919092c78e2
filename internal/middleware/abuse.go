package middleware

import (
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

const (
	abuseStrikeLimit  = 3
	abuseStrikeWindow = time.Minute
	abuseBanDuration  = 5 * time.Minute
)

// AdaptiveBlock escalates suspicious probing into a temporary full block. A
// client that hits admin paths without a user agent three times inside a
// minute is banned for five minutes; during the ban every request from that
// address gets the uniform throttled response. Loopback sources are exempt.
func AdaptiveBlock(store cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if isLoopback(ip) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		banKey := "abuse:ban:" + ip

		if _, banned, err := store.Get(ctx, banKey); err == nil && banned {
			metrics.ThrottleRejections.WithLabelValues("fail2ban").Inc()
			response.Error(c, errors.ErrThrottled)
			c.Abort()
			return
		}

		if suspiciousProbe(c) {
			strikes, _, err := store.IncrementWithTTL(ctx, "abuse:strikes:"+ip, abuseStrikeWindow)
			if err != nil {
				logger.Named("throttle").Warn("strike store unavailable", zap.Error(err))
			} else if strikes >= abuseStrikeLimit {
				if err := store.Set(ctx, banKey, []byte("1"), abuseBanDuration); err != nil {
					logger.Named("throttle").Warn("ban store unavailable", zap.Error(err))
				} else {
					logger.Named("throttle").Info("banned probing client",
						zap.String("client_ip", ip),
						zap.String("path", c.Request.URL.Path),
					)
				}
				metrics.ThrottleRejections.WithLabelValues("fail2ban").Inc()
				response.Error(c, errors.ErrThrottled)
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

// suspiciousProbe flags admin-path requests that carry no user agent, the
// signature of naive scanners walking the URL space.
func suspiciousProbe(c *gin.Context) bool {
	if strings.TrimSpace(c.Request.UserAgent()) != "" {
		return false
	}
	return strings.Contains(c.Request.URL.Path, "/admin")
}
