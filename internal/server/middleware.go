package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

// rateLimit rejects requests above the configured rate with 429.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// observe wraps each request in a span, counts it and logs it.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.observer == nil {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := s.observer.StartSpan(c.Request.Context(), observability.SpanHTTPRequest,
			observability.String(observability.AttrHTTPMethod, c.Request.Method),
			observability.String(observability.AttrHTTPRoute, route),
		)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		status := c.Writer.Status()
		attrs := []observability.Attribute{
			observability.String(observability.AttrHTTPMethod, c.Request.Method),
			observability.String(observability.AttrHTTPRoute, route),
			observability.String(observability.AttrHTTPStatusCode, strconv.Itoa(status)),
		}
		span.SetAttributes(observability.Int(observability.AttrHTTPStatusCode, status))
		s.observer.Counter(observability.MetricHTTPRequestCount).Add(ctx, 1, attrs...)

		if status >= http.StatusInternalServerError {
			span.SetStatus(observability.StatusError, http.StatusText(status))
		} else {
			span.SetStatus(observability.StatusOK, "")
		}
		s.observer.Debug(ctx, "http request", append(attrs, observability.Duration(observability.AttrDuration, duration))...)
	}
}
