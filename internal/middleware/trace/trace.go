package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"budgetbuddy/internal/log"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// Middleware assigns every request an ID and logs its start and outcome.
type Middleware struct {
	metrics Metrics
}

// Metrics tracks request counters
type Metrics struct {
	TotalRequests int64
	ServerErrors  int64
	// LastResponseTime is the duration of the most recent request in
	// microseconds.
	LastResponseTime int64
}

func NewMiddleware() *Middleware {
	return &Middleware{}
}

// Handler returns the gin middleware. An incoming X-Request-ID is kept so
// IDs can be correlated across an upstream proxy.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(log.RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = GenerateRequestID()
		}
		c.Header(log.RequestIDHeader, requestID)

		ctx := WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		started := log.NewFields().
			WithComponent(log.ComponentHTTP).
			WithRequestID(requestID).
			WithHTTPRequest(c.Request.Method, c.Request.URL.Path, c.Request.URL.RawQuery, c.Request.UserAgent())
		started[log.FieldClientIP] = c.ClientIP()
		slog.DebugContext(ctx, "HTTP request started", started.ToSlice()...)

		atomic.AddInt64(&m.metrics.TotalRequests, 1)

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		atomic.StoreInt64(&m.metrics.LastResponseTime, duration.Microseconds())

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
			atomic.AddInt64(&m.metrics.ServerErrors, 1)
		case status >= 400:
			level = slog.LevelWarn
		}

		completed := log.NewFields().
			WithComponent(log.ComponentHTTP).
			WithRequestID(requestID).
			WithHTTPResponse(status, duration.Milliseconds(), status < 400)
		completed[log.FieldMethod] = c.Request.Method
		completed[log.FieldPath] = c.Request.URL.Path
		completed[log.FieldDurationHuman] = duration.String()
		completed[log.FieldClientIP] = c.ClientIP()
		if len(c.Errors) > 0 {
			completed[log.FieldError] = c.Errors.String()
		}
		slog.Log(ctx, level, "HTTP request completed", completed.ToSlice()...)
	}
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:    atomic.LoadInt64(&m.metrics.TotalRequests),
		ServerErrors:     atomic.LoadInt64(&m.metrics.ServerErrors),
		LastResponseTime: atomic.LoadInt64(&m.metrics.LastResponseTime),
	}
}
