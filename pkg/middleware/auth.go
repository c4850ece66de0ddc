package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simholt/hyrax/pkg/configs"
	ctxPkg "github.com/simholt/hyrax/pkg/context"
	"github.com/simholt/hyrax/pkg/internal/types"
)

const principalKey = "principal"

// AuthMiddleware 基于 oauth2-proxy 注入的请求头解析请求方身份。
//   - 用户取自 X-Auth-Request-Email 或 X-Forwarded-Email，组取自 X-Auth-Request-Groups（逗号分隔）
//   - 只有管理员名单中的用户是 admin 身份，可见全部集合；X-Role 只用于路由分级
//   - 支持通过配置跳过某些路径（如 /metrics, /health）
//   - 开发模式可允许 query user 兜底（由 configs.auth.dev_allow_query 控制）
//
// 需放在 RoleMiddleware 之后.
func AuthMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := principalFromRequest(c, conf)

		if p.Anonymous() && conf.Enabled && !isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})

			return
		}

		p.Admin = !p.Anonymous() && conf.IsAdminUser(p.User)
		if p.Admin {
			setRole(c, RoleAdmin)
		}

		c.Set(principalKey, p)
		c.Request = c.Request.WithContext(ctxPkg.WithPrincipal(c.Request.Context(), p))

		c.Next()
	}
}

// GetPrincipal 返回当前请求方身份.
func GetPrincipal(c *gin.Context) types.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(types.Principal); ok {
			return p
		}
	}

	return ctxPkg.GetPrincipal(c.Request.Context())
}

func principalFromRequest(c *gin.Context, conf configs.AuthConfig) types.Principal {
	user := strings.TrimSpace(c.GetHeader("X-Auth-Request-Email"))
	if user == "" {
		user = strings.TrimSpace(c.GetHeader("X-Forwarded-Email"))
	}

	if user == "" && conf.DevAllowQuery {
		user = strings.TrimSpace(c.Query("user"))
	}

	var groups []string

	for _, g := range strings.Split(c.GetHeader("X-Auth-Request-Groups"), ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}

	return types.Principal{User: user, Groups: groups}
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" || len(skips) == 0 {
		return false
	}

	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
