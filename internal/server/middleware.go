package server

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/fleetwatch/internal/observability/logger"
	"go.uber.org/zap"
)

const HeaderOrg = "X-Org-ID"

// TriggerRateLimit throttles manual sweeps per organization when a limiter is configured.
func (s *Server) TriggerRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := resolveOrgID(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		res, err := s.limiter.Allow(ctx, orgID)
		if err != nil {
			logger.WithContext(ctx, s.log).Warn("sweep trigger rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			if res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			}
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
