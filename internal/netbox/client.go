package netbox

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultPageSize = 50

// Config 配置 NetBox HTTP 客户端。
type Config struct {
	URL          string
	Token        string
	VerifySSL    bool
	Timeout      time.Duration
	PageSize     int
	RateLimit    float64
	CustomClient *http.Client
	Logger       *zap.Logger
}

// Client 通过 REST API 访问 NetBox，实现 Store。
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	pageSize   int
	logger     *zap.Logger

	mu        sync.RWMutex
	requestID string
}

// NewClient 根据配置创建 NetBox 客户端。
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("netbox url 不能为空")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("netbox token 不能为空")
	}
	client := cfg.CustomClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if !cfg.VerifySSL {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		}
		client = &http.Client{Timeout: timeout, Transport: transport}
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		token:      cfg.Token,
		httpClient: client,
		limiter:    limiter,
		pageSize:   pageSize,
		logger:     logger,
	}, nil
}

// SetRequestID 设置写请求携带的 X-Request-ID，通常为本次同步的 run id。
func (c *Client) SetRequestID(id string) {
	c.mu.Lock()
	c.requestID = id
	c.mu.Unlock()
}

// Status 调用 /api/status/ 检查连通性。
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/api/status/", nil, &out); err != nil {
		return nil, fmt.Errorf("连接 NetBox 失败: %w", err)
	}
	return out, nil
}

type listPage struct {
	Count   int      `json:"count"`
	Next    *string  `json:"next"`
	Results []Object `json:"results"`
}

// List 分页拉取满足 filter 的全部对象。
func (c *Client) List(ctx context.Context, kind Kind, filter Filter) ([]Object, error) {
	query := url.Values{}
	for k, v := range filter {
		query.Set(k, v)
	}
	query.Set("limit", strconv.Itoa(c.pageSize))
	next := c.endpoint(kind) + "?" + query.Encode()

	var all []Object
	for next != "" {
		var page listPage
		if err := c.do(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, fmt.Errorf("查询 %s 失败: %w", kind, err)
		}
		all = append(all, page.Results...)
		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}
	return all, nil
}

// Get 按 id 读取单个对象。
func (c *Client) Get(ctx context.Context, kind Kind, id int) (Object, error) {
	var obj Object
	if err := c.do(ctx, http.MethodGet, c.endpoint(kind)+strconv.Itoa(id)+"/", nil, &obj); err != nil {
		return nil, fmt.Errorf("读取 %s %d 失败: %w", kind, id, err)
	}
	return obj, nil
}

// Create 创建对象并返回服务端表示。
func (c *Client) Create(ctx context.Context, kind Kind, params Params) (Object, error) {
	var obj Object
	if err := c.do(ctx, http.MethodPost, c.endpoint(kind), params, &obj); err != nil {
		return nil, fmt.Errorf("创建 %s 失败: %w", kind, err)
	}
	return obj, nil
}

// Patch 局部更新对象。
func (c *Client) Patch(ctx context.Context, kind Kind, id int, changes Params) (Object, error) {
	var obj Object
	if err := c.do(ctx, http.MethodPatch, c.endpoint(kind)+strconv.Itoa(id)+"/", changes, &obj); err != nil {
		return nil, fmt.Errorf("更新 %s %d 失败: %w", kind, id, err)
	}
	return obj, nil
}

func (c *Client) endpoint(kind Kind) string {
	return c.baseURL + "/api/" + kind.Path()
}

func (c *Client) do(ctx context.Context, method, target string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("编码请求失败: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("构建请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Token "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		c.mu.RLock()
		if c.requestID != "" {
			req.Header.Set("X-Request-ID", c.requestID)
		}
		c.mu.RUnlock()
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求 NetBox 失败: %w", err)
	}
	defer resp.Body.Close()
	c.logger.Debug("netbox request",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Method: method, Path: req.URL.Path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("解析 NetBox 响应失败: %w", err)
	}
	return nil
}
