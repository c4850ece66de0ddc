// Package handle 提供 HTTP 请求处理器的实现.
package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simholt/hyrax/pkg/internal/service"
	"github.com/simholt/hyrax/pkg/internal/storage/search"
	nlog "github.com/simholt/hyrax/pkg/log"
	"github.com/simholt/hyrax/pkg/rule"
)

// errorStatus 将业务错误映射为 HTTP 状态码.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidScope),
		errors.Is(err, service.ErrInvalidIngestRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, search.ErrServiceUnavailable),
		errors.Is(err, service.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrMalformedResponse),
		errors.Is(err, search.ErrBadResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail 记录错误并以 {"error": ...} 应答；5xx 记为 error，其余为 warn.
func fail(c *gin.Context, msg string, err error) {
	status := errorStatus(err)
	l := nlog.FromContext(c.Request.Context())

	if status >= http.StatusInternalServerError {
		l.Error().Err(err).Int("status", status).Msg(msg)
	} else {
		l.Warn().Err(err).Int("status", status).Msg(msg)
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

// badRequest 请求参数错误；校验错误附带逐字段说明.
func badRequest(c *gin.Context, err error) {
	nlog.FromContext(c.Request.Context()).Warn().Err(err).Msg("invalid request")

	body := gin.H{"error": err.Error()}
	if fields := rule.Errors(err); len(fields) > 0 {
		body["error"] = "validation failed"
		body["fields"] = fields
	}

	c.JSON(http.StatusBadRequest, body)
}
