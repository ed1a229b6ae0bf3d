package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger injeta no contexto da requisição um logger com request_id e
// trace_id e registra o resultado de cada requisição
func RequestLogger(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(requestIDHeader, requestID)

		logCtx := base.With().Str("request_id", requestID)
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.IsValid() {
			logCtx = logCtx.Str("trace_id", sc.TraceID().String())
		}
		logger := logCtx.Logger()

		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request completed")
	}
}
