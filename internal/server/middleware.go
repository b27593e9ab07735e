package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/abhisek/conceptree/internal/logger"
	"github.com/abhisek/conceptree/internal/metrics"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func observe(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		latency := time.Since(start)
		code := c.Writer.Status()
		metrics.ObserveHTTPRequest(route, c.Request.Method, strconv.Itoa(code), latency)
		log.Debug("http request",
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"route", route,
			"status", code,
			"latency", latency,
		)
	}
}
