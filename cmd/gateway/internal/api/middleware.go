package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/protocol"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/upstream"
)

var providerNames = map[string]string{
	"coingecko":    "CoinGecko",
	"alphavantage": "AlphaVantage",
}

// Error renders the first error attached by a handler.
func Error(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if errors.Is(c.Request.Context().Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, protocol.ErrorResponse{
				Error: "request timed out",
				Kind:  protocol.KindTimeout,
			})
			return
		}

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors[0].Err

		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			fields := make([]string, 0, len(ve))
			for _, fe := range ve {
				fields = append(fields, fe.Field()+": failed "+fe.Tag())
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, protocol.ErrorResponse{
				Error:   "invalid query",
				Kind:    protocol.KindBadRequest,
				Details: strings.Join(fields, "; "),
			})
			return
		}

		var ce CustomError
		if errors.As(err, &ce) {
			c.AbortWithStatusJSON(ce.StatusCode, protocol.ErrorResponse{
				Error:   ce.Message,
				Kind:    ce.Kind,
				Details: ce.Details,
			})
			return
		}

		var ue *upstream.Error
		if errors.As(err, &ue) {
			name := providerNames[ue.Provider]
			if name == "" {
				name = ue.Provider
			}
			logger.Warn("Upstream request failed", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusBadGateway, protocol.ErrorResponse{
				Error:   name + " fetch failed",
				Kind:    protocol.KindUpstreamUnavailable,
				Details: err.Error(),
			})
			return
		}

		logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, protocol.ErrorResponse{
			Error: err.Error(),
			Kind:  protocol.KindInternal,
		})
	}
}

// Timeout bounds the request context. Handlers observe the deadline through
// their context and Error renders the 504.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CORS allows browser viewers served from another origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
