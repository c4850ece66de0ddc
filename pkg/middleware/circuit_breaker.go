package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"

	"github.com/simholt/hyrax/pkg/configs"
	"github.com/simholt/hyrax/pkg/log"
)

// errServerStatus 响应为 5xx，计入熔断失败.
var errServerStatus = errors.New("server error status")

// CircuitBreakerMiddleware 基于 gobreaker 的简单熔断：5xx 比例过高时直接返回 503.
func CircuitBreakerMiddleware(cfg configs.CircuitBreakerConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	settings := gobreaker.Settings{
		Name:        "http",
		MaxRequests: cfg.HalfOpenMax,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}

			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRate
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Logger().Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("http circuit breaker state changed")
		},
	}
	cb := gobreaker.NewCircuitBreaker(settings)

	return func(c *gin.Context) {
		if isSkippedPath(c.Request.URL.Path, cfg.ExemptPaths) {
			c.Next()
			return
		}

		_, err := cb.Execute(func() (any, error) {
			c.Next()

			if c.Writer.Status() >= http.StatusInternalServerError {
				return nil, errServerStatus
			}

			return nil, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
		}
	}
}
