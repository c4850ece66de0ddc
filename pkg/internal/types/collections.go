package types

import (
	"strings"
	"time"
)

// ParentRecord 参与计数聚合的父记录（集合），在聚合过程中只读.
type ParentRecord struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	DateModified time.Time `json:"date_modified"`
}

// EnrichedResult 带计数的父记录；Updated 保留为空.
type EnrichedResult struct {
	Collection ParentRecord `json:"collection"`
	Updated    *time.Time   `json:"updated"`
	WorkCount  int          `json:"work_count"`
	FileCount  int          `json:"file_count"`
}

// AccessScope 列表的访问范围.
type AccessScope string

const (
	// AccessRead 可读（含可编辑）的集合.
	AccessRead AccessScope = "read"
	// AccessEdit 可编辑的集合.
	AccessEdit AccessScope = "edit"
)

// ParseAccessScope 解析访问范围，空串视为 read.
func ParseAccessScope(s string) (AccessScope, bool) {
	switch AccessScope(strings.ToLower(strings.TrimSpace(s))) {
	case "", AccessRead:
		return AccessRead, true
	case AccessEdit:
		return AccessEdit, true
	default:
		return "", false
	}
}

// Principal 请求方身份，由认证中间件从代理头解析.
type Principal struct {
	User   string   `json:"user"`
	Groups []string `json:"groups,omitempty"`
	Admin  bool     `json:"admin"`
}

// Anonymous 是否未登录.
func (p Principal) Anonymous() bool {
	return p.User == ""
}

// CollectionCountsResponse GET /api/v1/collections/counts 的响应.
type CollectionCountsResponse struct {
	Items []EnrichedResult `json:"items"`
	Total int              `json:"total"`
}

// CollectionCountsQuery 计数查询参数.
type CollectionCountsQuery struct {
	Access string `form:"access" rule:"omitempty,access"`
	Field  string `form:"field"  rule:"omitempty,max=128,solrfield"`
}

// CreateCollectionRequest 创建集合请求.
type CreateCollectionRequest struct {
	Title       string  `json:"title"                 rule:"required,max=512"`
	Description string  `json:"description,omitempty"`
	Visibility  string  `json:"visibility,omitempty"  rule:"omitempty,visibility"`
	Grants      []Grant `json:"grants,omitempty"      rule:"dive"`
}

// Grant 一条授权.
type Grant struct {
	Agent     string `json:"agent"      rule:"required,max=255"`
	AgentType string `json:"agent_type" rule:"required,oneof=user group"`
	Access    string `json:"access"     rule:"required,oneof=read edit"`
}
