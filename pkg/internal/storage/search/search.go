// Package search 是 Solr 兼容检索服务的 HTTP 客户端.
//
// 客户端只覆盖本服务用到的三个端点：select（查询与分面）、update（写入文档）和
// admin/ping（健康检查）。所有请求共享一个 http.Client 与一个熔断器，可并发使用.
//
// Example:
//
//	cli, err := search.New(configs.GetConfig().Search)
//	if err != nil {
//		return err
//	}
//
//	resp, err := cli.Search(ctx, &search.Query{
//		Q:           "*:*",
//		Filters:     []string{search.TermsFilter("member_of_collection_ids_ssim", ids)},
//		FacetFields: []string{"member_of_collection_ids_ssim"},
//	})
package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/simholt/hyrax/pkg/configs"
	nlog "github.com/simholt/hyrax/pkg/log"
	"github.com/simholt/hyrax/pkg/metrics"
	"github.com/simholt/hyrax/pkg/tracing"
)

var (
	// ErrServiceUnavailable 检索服务不可达、超时、返回非 2xx 或熔断打开.
	ErrServiceUnavailable = errors.New("search service unavailable")
	// ErrBadResponse 响应体无法解码.
	ErrBadResponse = errors.New("search service returned an undecodable response")
)

// maxErrorBody 错误响应最多保留的字节数.
const maxErrorBody = 512

// decoder 数字保留为 json.Number，计数解析时再判断是否为整数.
var decoder = sonic.Config{UseNumber: true}.Froze()

// Document 索引文档，字段名遵循动态字段后缀约定（_ssim、_tesim 等）.
type Document map[string]any

// Query 一次 select 请求.
type Query struct {
	Q             string
	Filters       []string // fq
	Fields        []string // fl
	Rows          int
	Start         int
	Sort          string
	FacetFields   []string
	FacetLimit    int // -1 表示不限制
	FacetMinCount int
}

// Values 编码为请求参数，固定使用 wt=json 与 json.nl=flat.
func (q *Query) Values() url.Values {
	v := url.Values{}

	query := q.Q
	if query == "" {
		query = "*:*"
	}

	v.Set("q", query)

	for _, fq := range q.Filters {
		v.Add("fq", fq)
	}

	if len(q.Fields) > 0 {
		v.Set("fl", strings.Join(q.Fields, ","))
	}

	v.Set("rows", strconv.Itoa(q.Rows))

	if q.Start > 0 {
		v.Set("start", strconv.Itoa(q.Start))
	}

	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}

	if len(q.FacetFields) > 0 {
		v.Set("facet", "true")

		for _, f := range q.FacetFields {
			v.Add("facet.field", f)
		}

		v.Set("facet.limit", strconv.Itoa(q.FacetLimit))
		v.Set("facet.mincount", strconv.Itoa(q.FacetMinCount))
	}

	v.Set("wt", "json")
	v.Set("json.nl", "flat")

	return v
}

// termsSeparators 依次尝试的分隔符，取第一个不出现在任何取值中的.
var termsSeparators = []string{",", "|", ";", "~", "\x1f"}

// TermsFilter 构造 {!terms f=field}v1,v2 过滤条件，一次匹配多个取值.
// 取值中含逗号时改用 separator 本地参数，避免一个取值被拆成多个.
func TermsFilter(field string, values []string) string {
	sep := termsSeparators[len(termsSeparators)-1]

	for _, cand := range termsSeparators {
		if !slices.ContainsFunc(values, func(v string) bool { return strings.Contains(v, cand) }) {
			sep = cand
			break
		}
	}

	if sep == "," {
		return fmt.Sprintf("{!terms f=%s}%s", field, strings.Join(values, sep))
	}

	return fmt.Sprintf("{!terms f=%s separator='%s'}%s", field, sep, strings.Join(values, sep))
}

// Response select 响应中本服务关心的部分.
type Response struct {
	Header      ResponseHeader `json:"responseHeader"`
	Result      ResultSet      `json:"response"`
	FacetCounts *FacetCounts   `json:"facet_counts,omitempty"`
}

// ResponseHeader 响应头.
type ResponseHeader struct {
	Status int   `json:"status"`
	QTime  int64 `json:"QTime"`
}

// ResultSet 命中的文档，字段值保持原始 JSON 形态.
type ResultSet struct {
	NumFound int64            `json:"numFound"`
	Start    int64            `json:"start"`
	Docs     []map[string]any `json:"docs"`
}

// FacetCounts 分面结果；json.nl=flat 时每个字段是 [值, 计数, 值, 计数, ...].
type FacetCounts struct {
	FacetFields map[string][]any `json:"facet_fields"`
}

// Option 配置 Client.
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client 检索服务客户端.
type Client struct {
	cfg     configs.SearchConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// New 创建客户端.
func New(cfg configs.SearchConfig, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid search url %q: %w", cfg.URL, err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = configs.DefaultSearchTimeout
	}

	c := &Client{
		cfg:  cfg,
		http: &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
	}

	for _, opt := range opts {
		opt(c)
	}

	if cfg.BreakerEnabled {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "search",
			Timeout: cfg.BreakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < cfg.BreakerMinRequests {
					return false
				}

				return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.BreakerFailureRate
			},
			// 只有服务不可用计入失败，坏响应说明服务本身在线
			IsSuccessful: func(err error) bool {
				return err == nil || !errors.Is(err, ErrServiceUnavailable)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				nlog.Logger().Warn().Str("breaker", name).
					Str("from", from.String()).Str("to", to.String()).
					Msg("search circuit breaker state changed")
			},
		})
	}

	return c, nil
}

// Config 返回客户端配置.
func (c *Client) Config() configs.SearchConfig {
	return c.cfg
}

// Search 执行 select 查询，参数以表单 POST 发送以容纳很长的 fq.
func (c *Client) Search(ctx context.Context, q *Query) (*Response, error) {
	ctx, span := tracing.StartSpan(ctx, "search.select")
	defer span.End()

	span.SetAttributes(attribute.Int("search.filters", len(q.Filters)), attribute.Int("search.rows", q.Rows))

	body := []byte(q.Values().Encode())

	var resp Response

	err := c.do(ctx, "select", http.MethodPost, c.cfg.SelectURL(), "application/x-www-form-urlencoded", body, &resp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetAttributes(attribute.Int64("search.num_found", resp.Result.NumFound))

	return &resp, nil
}

// Add 写入文档，commit 为 true 时立即提交.
func (c *Client) Add(ctx context.Context, docs []Document, commit bool) error {
	if len(docs) == 0 && !commit {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "search.update")
	defer span.End()

	span.SetAttributes(attribute.Int("search.docs", len(docs)), attribute.Bool("search.commit", commit))

	body, err := sonic.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode documents: %w", err)
	}

	endpoint := c.cfg.UpdateURL() + "?wt=json"
	if commit {
		endpoint += "&commit=true"
	}

	if err := c.do(ctx, "update", http.MethodPost, endpoint, "application/json", body, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	return nil
}

// Commit 提交之前写入的文档.
func (c *Client) Commit(ctx context.Context) error {
	return c.Add(ctx, nil, true)
}

// Ping 检查 core 是否可用.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, c.cfg.PingURL()+"?wt=json", "", nil, nil)
}

// do 发送请求并解码；out 为 nil 时只检查状态码.
func (c *Client) do(ctx context.Context, op, method, endpoint, contentType string, body []byte, out any) error {
	start := time.Now()

	run := func() (any, error) {
		return nil, c.roundTrip(ctx, method, endpoint, contentType, body, out)
	}

	var err error
	if c.breaker != nil {
		_, err = c.breaker.Execute(run)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
		}
	} else {
		_, err = run()
	}

	metrics.SearchRequestDuration.WithLabelValues(op, outcome(err)).Observe(time.Since(start).Seconds())

	return err
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint, contentType string, body []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build search request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return fmt.Errorf("%w: status %d: %s", ErrServiceUnavailable, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrServiceUnavailable, err)
	}

	if err := decoder.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBadResponse):
		return "bad_response"
	default:
		return "unavailable"
	}
}
