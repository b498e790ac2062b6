package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/kbukum/xform/errors"
	"github.com/kbukum/xform/logger"
	"github.com/kbukum/xform/observability"
	"github.com/kbukum/xform/validation"
)

const (
	headerRequestID = "X-Request-Id"
	keyRequestID    = "request_id"
)

// Recovery turns a panic into a 500 response and logs the stack.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered", logger.Fields(
					logger.FieldError, fmt.Sprint(r),
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
				))
				appErr := apperrors.Internal(fmt.Errorf("panic: %v", r))
				c.AbortWithStatusJSON(http.StatusInternalServerError, appErr.ToResponse())
			}
		}()
		c.Next()
	}
}

// RequestID propagates a well-formed X-Request-Id or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" || validation.New().OptionalUUID(headerRequestID, id).HasErrors() {
			id = uuid.NewString()
		}
		c.Set(keyRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// Observe traces each request, records the request metric and logs the
// outcome at a level that follows the status code.
func Observe(log *logger.Logger, metrics *observability.EngineMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx, span := observability.StartSpan(c.Request.Context(), observability.SpanRequest)
		c.Request = c.Request.WithContext(ctx)
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		span.SetAttributes(
			attribute.String(observability.AttrRoute, route),
			attribute.Int(observability.AttrStatus, status),
		)
		var err error
		if len(c.Errors) > 0 {
			err = c.Errors.Last()
		}
		observability.EndSpan(span, err)
		metrics.RecordRequest(ctx, route, status)

		if route == routeHealth {
			return
		}
		fields := logger.DurationFields("http", time.Since(start))
		fields["method"] = c.Request.Method
		fields["route"] = route
		fields["status"] = status
		fields[keyRequestID] = c.GetString(keyRequestID)
		switch {
		case status >= 500:
			log.Error("request completed", fields)
		case status >= 400:
			log.Warn("request completed", fields)
		default:
			log.Debug("request completed", fields)
		}
	}
}
