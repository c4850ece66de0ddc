package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Role 请求方角色，数值越大权限越高.
type Role int

const (
	RoleViewer Role = iota + 1 // 查询计数
	RoleEditor                 // 导入作品、创建集合
	RoleAdmin                  // 全部集合可见，生成报表与管理任务
)

const (
	roleHeader = "X-Role"
	roleCtxKey = "role"
)

var roleNames = map[Role]string{
	RoleViewer: "viewer",
	RoleEditor: "editor",
	RoleAdmin:  "admin",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}

	return roleNames[RoleViewer]
}

type roleKey struct{}

// ParseRole 大小写不敏感，未知值按 viewer 处理.
func ParseRole(s string) Role {
	s = strings.ToLower(strings.TrimSpace(s))
	for r, name := range roleNames {
		if name == s {
			return r
		}
	}

	return RoleViewer
}

// RoleMiddleware 读取 X-Role 头，写入 gin.Context 与 request context.
func RoleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		setRole(c, ParseRole(c.GetHeader(roleHeader)))
		c.Next()
	}
}

func setRole(c *gin.Context, r Role) {
	c.Set(roleCtxKey, r)
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), roleKey{}, r))
}

func GetRole(c *gin.Context) Role {
	if v, ok := c.Get(roleCtxKey); ok {
		if r, ok := v.(Role); ok {
			return r
		}
	}

	if r, ok := c.Request.Context().Value(roleKey{}).(Role); ok {
		return r
	}

	return RoleViewer
}

// RequireMinRole 角色低于 minRole 时返回 403.
func RequireMinRole(minRole Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) < minRole {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":    "forbidden: insufficient role",
				"required": minRole.String(),
			})

			return
		}

		c.Next()
	}
}
