package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"gadget-storefront/internal/device"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ctxKey string

const deviceCtxKey ctxKey = "device"

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// deviceMiddleware resolves the bearer token to a device id and stores it on
// the request context.
func deviceMiddleware(devices deviceService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing device token"})
			return
		}
		deviceID, err := devices.Lookup(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, device.ErrInvalidToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
				return
			}
			logger.Error("device lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
			return
		}
		ctx := context.WithValue(c.Request.Context(), deviceCtxKey, deviceID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func deviceFrom(c *gin.Context) string {
	id, _ := c.Request.Context().Value(deviceCtxKey).(string)
	return id
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
