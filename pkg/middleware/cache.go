package middleware

import (
	"bytes"
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	appcache "github.com/simholt/hyrax/pkg/cache"
	"github.com/simholt/hyrax/pkg/log"
)

const (
	responseCachePrefix   = "resp"
	defaultResponseTTL    = 30 * time.Second
	defaultMaxCachedBytes = 1 << 20
	defaultBypassHeader   = "X-Cache-Bypass"
)

// CacheConfig 响应缓存配置.
type CacheConfig struct {
	Cache *appcache.Cache
	TTL   time.Duration

	// GenerationKey 非空时代际号进入缓存键，代际号自增即整体失效
	GenerationKey string
	// VaryHeaders 参与缓存键的请求头，身份相关的头必须列在这里
	VaryHeaders []string

	BypassHeader string
	MaxBodyBytes int // 超过则不缓存，0 表示不限
}

// DefaultCacheConfig 默认配置.
func DefaultCacheConfig(c *appcache.Cache) CacheConfig {
	return CacheConfig{
		Cache:        c,
		TTL:          defaultResponseTTL,
		BypassHeader: defaultBypassHeader,
		MaxBodyBytes: defaultMaxCachedBytes,
	}
}

// cachedResponse 写入 KV 的响应快照.
type cachedResponse struct {
	Status   int                 `json:"s"`
	Header   map[string][]string `json:"h,omitempty"`
	Body     []byte              `json:"b,omitempty"`
	ETag     string              `json:"e"`
	StoredAt int64               `json:"t"`
}

type responseCache struct {
	cfg  CacheConfig
	vary []string
}

// CacheMiddleware 缓存 GET/HEAD 的 200 响应.
// 命中时带 X-Cache: HIT 与 Age；If-None-Match 匹配时返回 304；
// 响应带 Cache-Control no-store 或 private 时不缓存，max-age 覆盖 TTL.
// 缓存读写失败只记日志，请求照常处理.
func CacheMiddleware(cfg CacheConfig) gin.HandlerFunc {
	if cfg.Cache == nil {
		panic("middleware: CacheMiddleware requires a cache")
	}

	if cfg.TTL <= 0 {
		cfg.TTL = defaultResponseTTL
	}

	if cfg.BypassHeader == "" {
		cfg.BypassHeader = defaultBypassHeader
	}

	vary := slices.Clone(cfg.VaryHeaders)
	slices.Sort(vary)

	rc := &responseCache{cfg: cfg, vary: vary}

	return rc.handle
}

func (rc *responseCache) handle(c *gin.Context) {
	method := c.Request.Method
	if (method != http.MethodGet && method != http.MethodHead) || c.GetHeader(rc.cfg.BypassHeader) != "" {
		c.Next()
		return
	}

	ctx := c.Request.Context()
	logger := log.FromContext(ctx)

	key, err := rc.key(ctx, c)
	if err != nil {
		logger.Warn().Err(err).Msg("response cache generation unavailable")
		c.Next()

		return
	}

	entry, hit, err := appcache.Lookup[cachedResponse](ctx, rc.cfg.Cache, key)
	if err != nil {
		logger.Debug().Err(err).Str("key", key).Msg("response cache lookup failed")
	}

	if hit {
		rc.replay(c, entry)
		return
	}

	bw := &bufferedWriter{ResponseWriter: c.Writer}
	c.Writer = bw
	c.Next()
	c.Writer = bw.ResponseWriter

	rc.finish(c, key, bw.buf.Bytes())
}

// key 方法、路由、排序后的 query 与 vary 头.
func (rc *responseCache) key(ctx context.Context, c *gin.Context) (string, error) {
	var gen int64

	if rc.cfg.GenerationKey != "" {
		g, err := rc.cfg.Cache.Generation(ctx, rc.cfg.GenerationKey)
		if err != nil {
			return "", err
		}

		gen = g
	}

	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}

	parts := make([]string, 0, 3+len(rc.vary))
	parts = append(parts, c.Request.Method, route, c.Request.URL.Query().Encode())

	for _, h := range rc.vary {
		parts = append(parts, h+"="+c.GetHeader(h))
	}

	return appcache.Key(responseCachePrefix, gen, parts...), nil
}

func (rc *responseCache) replay(c *gin.Context, entry cachedResponse) {
	h := c.Writer.Header()
	for k, v := range entry.Header {
		h[k] = slices.Clone(v)
	}

	h.Set("ETag", entry.ETag)
	h.Set("X-Cache", "HIT")
	h.Set("Age", strconv.FormatInt(int64(time.Since(time.Unix(0, entry.StoredAt)).Seconds()), 10))

	switch {
	case etagMatches(c.GetHeader("If-None-Match"), entry.ETag):
		c.Status(http.StatusNotModified)
		c.Writer.WriteHeaderNow()
	case c.Request.Method == http.MethodHead:
		c.Status(entry.Status)
		c.Writer.WriteHeaderNow()
	default:
		c.Status(entry.Status)
		_, _ = c.Writer.Write(entry.Body)
	}

	c.Abort()
}

// finish 写出缓冲的响应，符合条件时存入缓存.
func (rc *responseCache) finish(c *gin.Context, key string, body []byte) {
	status := c.Writer.Status()
	h := c.Writer.Header()

	ttl, storable := responseTTL(h, rc.cfg.TTL)
	storable = storable && status == http.StatusOK &&
		(rc.cfg.MaxBodyBytes == 0 || len(body) <= rc.cfg.MaxBodyBytes)

	etag := h.Get("ETag")
	if etag == "" && storable {
		etag = `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
		h.Set("ETag", etag)
	}

	if etag != "" && status == http.StatusOK && etagMatches(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		c.Writer.WriteHeaderNow()
	} else if c.Request.Method == http.MethodHead || len(body) == 0 {
		c.Writer.WriteHeaderNow()
	} else {
		_, _ = c.Writer.Write(body)
	}

	if !storable {
		return
	}

	entry := cachedResponse{
		Status:   status,
		Header:   h.Clone(),
		Body:     bytes.Clone(body),
		ETag:     etag,
		StoredAt: time.Now().UnixNano(),
	}
	delete(entry.Header, "X-Cache")

	ctx := context.WithoutCancel(c.Request.Context())
	if err := appcache.Set(ctx, rc.cfg.Cache, key, entry, ttl); err != nil {
		log.FromContext(ctx).Warn().Err(err).Msg("store response cache failed")
	}
}

// responseTTL 按 Cache-Control 决定是否缓存及 TTL.
func responseTTL(h http.Header, fallback time.Duration) (time.Duration, bool) {
	ttl := fallback

	for _, directive := range strings.Split(h.Get("Cache-Control"), ",") {
		name, value, _ := strings.Cut(strings.ToLower(strings.TrimSpace(directive)), "=")

		switch name {
		case "no-store", "private":
			return 0, false
		case "max-age":
			if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
				ttl = time.Duration(secs) * time.Second
			}
		}
	}

	return ttl, ttl > 0
}

func etagMatches(header, etag string) bool {
	if header == "" || etag == "" {
		return false
	}

	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}

	return false
}

// bufferedWriter 截住响应体，状态码与头仍由底层 writer 记录.
type bufferedWriter struct {
	gin.ResponseWriter

	buf bytes.Buffer
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	return w.buf.Write(b)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	return w.buf.WriteString(s)
}
