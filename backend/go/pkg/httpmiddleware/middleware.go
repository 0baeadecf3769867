package httpmiddleware

import (
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/pkg/logger"
	"DocQA/backend/go/pkg/ratelimiter"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader 是请求 ID 所在的 HTTP 头。
const RequestIDHeader = "X-Request-ID"

// RateLimit 是一个按客户端 IP 限流的 Gin 中间件，超出限制时返回 429。
func RateLimit(limiter ratelimiter.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Too Many Requests"})
			return
		}
		c.Next()
	}
}

// RequestLogger 为每个请求记录一条结构化日志，并在响应头中回写请求 ID。
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		entry := log.WithField("request_id", requestID).WithRequest(models.RequestInfo{
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			RemoteAddr: c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			Status:     status,
			LatencyMS:  time.Since(start).Milliseconds(),
		})
		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			entry = entry.WithError(models.NewErrorInfo(err))
		}

		msg := fmt.Sprintf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, status)
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error(msg)
		case status >= http.StatusBadRequest:
			entry.Warn(msg)
		default:
			entry.Info(msg)
		}
	}
}

// Recovery 捕获 handler 中的 panic，记录日志并返回 500。
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithPayload(map[string]interface{}{"panic": fmt.Sprint(r)}).
					Error(fmt.Sprintf("panic while serving %s %s", c.Request.Method, c.Request.URL.Path))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
			}
		}()
		c.Next()
	}
}
