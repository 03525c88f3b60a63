package server

import (
	"errors"
	"log/slog"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func isClientDisconnect(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.EPIPE) || errors.Is(opErr.Err, syscall.ECONNRESET) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "broken pipe")
}

// requestLogger logs one line per request, skipping clients that hung up.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		c.Next()

		last := c.Errors.Last()
		if last != nil && isClientDisconnect(last.Err) {
			return
		}

		attrs := []any{
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", path,
			"latency", time.Since(start),
			"client", c.ClientIP(),
		}
		if last != nil {
			attrs = append(attrs, "error", last.Error())
		}
		if c.Writer.Status() >= 500 {
			log.Error("request", attrs...)
			return
		}
		log.Info("request", attrs...)
	}
}
