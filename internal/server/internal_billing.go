package server

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	obslogger "github.com/smallbiznis/clubhouse/internal/observability/logger"
	"go.uber.org/zap"
)

const endpointInternalBillingRun = "internal_billing_run"

// RunBilling generates the current cycle for every organization. Failed
// organizations are reported next to the successful ones.
func (s *Server) RunBilling(c *gin.Context) {
	if !s.allowInternalCaller(c) {
		return
	}

	result, err := s.billingSvc.RunAll(c.Request.Context())
	if err != nil && len(result.Results) == 0 && result.Orgs == 0 {
		AbortWithError(c, err)
		return
	}

	failures := []string{}
	if err != nil {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				failures = append(failures, e.Error())
			}
		} else {
			failures = append(failures, err.Error())
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"orgs":    result.Orgs,
		"results": result.Results,
		"errors":  failures,
	})
}

func (s *Server) allowInternalCaller(c *gin.Context) bool {
	if !s.billingRunGuard.Enabled() {
		return true
	}

	ctx := c.Request.Context()
	res, err := s.billingRunGuard.AllowCaller(ctx, c.ClientIP())
	if err != nil {
		obslogger.FromContext(ctx).Warn("internal billing run limiter unavailable", zap.Error(err))
		return true
	}
	if res.Allowed {
		return true
	}

	s.obsMetrics.RecordRateLimitDenied(ctx, endpointInternalBillingRun, "caller")
	if res.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
	}
	AbortWithError(c, ErrTooManyRequests)
	return false
}
