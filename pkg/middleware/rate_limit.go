package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/simholt/hyrax/pkg/configs"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepEvery = 1024 // 每创建这么多 limiter 清理一次闲置项
)

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware 返回一个基于配置的限流中间件.
// key 取值：global、ip、user（按请求方身份，匿名回退到 IP）、header:Header-Name.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	keyMode := strings.ToLower(strings.TrimSpace(cfg.Key))
	if keyMode == "global" || keyMode == "" {
		limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)

		return func(c *gin.Context) {
			if !isSkippedPath(c.Request.URL.Path, cfg.ExemptPaths) && !limiter.Allow() {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
				return
			}

			c.Next()
		}
	}

	var (
		mu       sync.Mutex
		limiters = map[string]*keyedLimiter{}
		created  int
	)

	getLimiter := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()

		if l, ok := limiters[key]; ok {
			l.lastSeen = now
			return l.limiter
		}

		created++
		if created%limiterSweepEvery == 0 {
			for k, l := range limiters {
				if now.Sub(l.lastSeen) > limiterIdleTTL {
					delete(limiters, k)
				}
			}
		}

		l := &keyedLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst), lastSeen: now}
		limiters[key] = l

		return l.limiter
	}

	return func(c *gin.Context) {
		if isSkippedPath(c.Request.URL.Path, cfg.ExemptPaths) {
			c.Next()
			return
		}

		var key string

		switch {
		case strings.HasPrefix(keyMode, "header:"):
			key = c.GetHeader(strings.TrimPrefix(keyMode, "header:"))
		case keyMode == "user":
			if p := GetPrincipal(c); !p.Anonymous() {
				key = "u:" + p.User
			}
		}

		if key == "" {
			key = clientIP(c)
		}

		if key == "" {
			key = "unknown"
		}

		if !getLimiter(key).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				gin.H{"error": "rate limit exceeded, request too frequent, please try again later"})

			return
		}

		c.Next()
	}
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err == nil {
			ip = host
		} else {
			ip = c.Request.RemoteAddr
		}
	}

	return ip
}
