package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultSearchURL            = "http://localhost:8983/solr" // 检索服务根地址
	DefaultSearchCore           = "hydra"                      // 默认 core
	DefaultSearchTimeout        = 10 * time.Second             // 单次请求超时
	DefaultSearchMaxRows        = 10000                        // 聚合查询返回的最大文档数
	DefaultChildLinkField       = "member_of_collection_ids_ssim"
	DefaultSearchCountsCacheTTL = 0 * time.Second // 0 表示不缓存计数
	DefaultSearchIndexBatchSize = 200             // 重建索引时每批提交的文档数

	DefaultSearchBreakerEnabled     = true
	DefaultSearchBreakerFailureRate = 0.6
	DefaultSearchBreakerMinRequests = 10
	DefaultSearchBreakerOpenTimeout = 30 * time.Second
)

// SearchConfig 检索服务（Solr 兼容 HTTP 接口）配置.
type SearchConfig struct {
	URL            string        `mapstructure:"url"              rule:"required,url"`
	Core           string        `mapstructure:"core"             rule:"required"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRows        int           `mapstructure:"max_rows"         rule:"min=1"`
	ChildLinkField string        `mapstructure:"child_link_field" rule:"omitempty,solrfield"`
	CountsCacheTTL time.Duration `mapstructure:"counts_cache_ttl"`
	IndexBatchSize int           `mapstructure:"index_batch_size" rule:"min=1"`
	ReindexCron    string        `mapstructure:"reindex_cron"` // 为空不定时重建

	BreakerEnabled     bool          `mapstructure:"breaker_enabled"`
	BreakerFailureRate float64       `mapstructure:"breaker_failure_rate" rule:"min=0,max=1"`
	BreakerMinRequests uint32        `mapstructure:"breaker_min_requests"`
	BreakerOpenTimeout time.Duration `mapstructure:"breaker_open_timeout"`
}

// CoreURL 返回 core 的根地址，例如 http://localhost:8983/solr/hydra.
func (c *SearchConfig) CoreURL() string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(c.URL, "/"), strings.Trim(c.Core, "/"))
}

// SelectURL 返回查询端点.
func (c *SearchConfig) SelectURL() string {
	return c.CoreURL() + "/select"
}

// UpdateURL 返回写入端点.
func (c *SearchConfig) UpdateURL() string {
	return c.CoreURL() + "/update"
}

// PingURL 返回健康检查端点.
func (c *SearchConfig) PingURL() string {
	return c.CoreURL() + "/admin/ping"
}

// GetChildLinkField 返回成员关系字段，未配置时使用默认字段.
func (c *SearchConfig) GetChildLinkField() string {
	if c.ChildLinkField == "" {
		return DefaultChildLinkField
	}

	return c.ChildLinkField
}

func (c *SearchConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("search.url", DefaultSearchURL)
	v.SetDefault("search.core", DefaultSearchCore)
	v.SetDefault("search.timeout", DefaultSearchTimeout)
	v.SetDefault("search.max_rows", DefaultSearchMaxRows)
	v.SetDefault("search.child_link_field", DefaultChildLinkField)
	v.SetDefault("search.counts_cache_ttl", DefaultSearchCountsCacheTTL)
	v.SetDefault("search.index_batch_size", DefaultSearchIndexBatchSize)
	v.SetDefault("search.reindex_cron", "")

	v.SetDefault("search.breaker_enabled", DefaultSearchBreakerEnabled)
	v.SetDefault("search.breaker_failure_rate", DefaultSearchBreakerFailureRate)
	v.SetDefault("search.breaker_min_requests", DefaultSearchBreakerMinRequests)
	v.SetDefault("search.breaker_open_timeout", DefaultSearchBreakerOpenTimeout)
}
