package middleware

import (
	"time"

	"github.com/annel0/worldedit/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// TraceHeader заголовок ответа с идентификатором трассировки
const TraceHeader = "X-Trace-Id"

// RequestLogger снабжает каждый HTTP-запрос trace-ID и пишет краткие логи.
// Trace-ID берется из span OpenTelemetry, если otelgin уже создал его.
type RequestLogger struct {
	logger *logging.Logger
}

// NewRequestLogger создает middleware; nil означает глобальный логгер
func NewRequestLogger(l *logging.Logger) *RequestLogger { return &RequestLogger{logger: l} }

func (rl *RequestLogger) logf(status int, format string, args ...interface{}) {
	switch {
	case rl.logger == nil && status >= 500:
		logging.Warn(format, args...)
	case rl.logger == nil:
		logging.Debug(format, args...)
	case status >= 500:
		rl.logger.Warn(format, args...)
	default:
		rl.logger.Debug(format, args...)
	}
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		var traceID string
		if span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		} else {
			traceID = uuid.NewString()
		}
		c.Set("trace_id", traceID)
		c.Header(TraceHeader, traceID)

		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		rl.logf(status, "[HTTP] %s %s %d %s ip=%s trace=%s", method, path, status, time.Since(start), c.ClientIP(), traceID)
	}
}
