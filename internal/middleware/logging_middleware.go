package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/spellduel/internal/logging"
)

// TraceIDKey ключ gin.Context с trace-ID запроса
const TraceIDKey = "trace_id"

// RequestLogger снабжает каждый HTTP-запрос trace-ID и пишет краткие логи.
// Debug-эндпоинты опрашиваются часто, поэтому успешные запросы пишутся на уровне Debug.
type RequestLogger struct{}

func NewRequestLogger() *RequestLogger { return &RequestLogger{} }

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// trace-id из OpenTelemetry, если otelgin уже создал span
		span := trace.SpanFromContext(c.Request.Context())
		var traceID string
		if span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		} else {
			traceID = uuid.NewString()
		}
		c.Set(TraceIDKey, traceID)
		c.Header("X-Trace-Id", traceID)

		start := time.Now()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		if status >= 400 {
			logging.Warn("[HTTP] %s %s %d %s ip=%s trace=%s", method, path, status, latency, c.ClientIP(), traceID)
			return
		}
		logging.Debug("[HTTP] %s %s %d %s trace=%s", method, path, status, latency, traceID)
	}
}
