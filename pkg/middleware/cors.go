package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/simholt/hyrax/pkg/configs"
)

// CORSMiddleware CORS中间件；身份头由上游代理注入，也允许前端显式携带.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AddAllowHeaders("Authorization", "X-Cache-Bypass", "X-Role")
	config.AddExposeHeaders("ETag", "X-Cache", "Age")

	if !cfg.Debug {
		config.MaxAge = 12 * time.Hour
	}

	return cors.New(config)
}
