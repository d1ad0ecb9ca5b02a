package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mrz1836/tally/internal/metrics"
)

// RequestIDHeader carries the request id on requests and responses.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "requestID"

// RequestID assigns each request an id, reusing a well-formed incoming one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// requestID returns the id assigned by RequestID.
func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// attrLogger is implemented by loggers that can emit structured records.
type attrLogger interface {
	InfoAttrs(msg string, attrs ...slog.Attr)
}

// RequestLogger logs one line per request, as a structured record when the
// logger supports it.
func RequestLogger(log Logger) gin.HandlerFunc {
	structured, _ := log.(attrLogger)

	return func(c *gin.Context) {
		// HTTP/2 connection preface sent to a plain HTTP/1 listener
		if c.Request.Method == "PRI" {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		start := time.Now()
		path := c.Request.URL.Path
		if query := c.Request.URL.RawQuery; query != "" {
			path += "?" + query
		}

		c.Next()

		latency := time.Since(start)
		if structured != nil {
			structured.InfoAttrs("request",
				slog.String("method", c.Request.Method),
				slog.String("path", path),
				slog.Int("status", c.Writer.Status()),
				slog.Duration("latency", latency),
				slog.String("id", requestID(c)),
			)
			return
		}
		log.Info("[api] %s %s %d %v id=%s", c.Request.Method, path, c.Writer.Status(), latency, requestID(c))
	}
}

// Recovery turns a panic into a 500 JSON response.
func Recovery(log Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("[api] panic recovered: %v id=%s", rec, requestID(c))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// CORS allows browser clients from any origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)
		h.Set("Access-Control-Expose-Headers", RequestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Instrument records request counts and latency by matched route.
func Instrument(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(route, c.Request.Method, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
