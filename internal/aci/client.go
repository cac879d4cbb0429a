package aci

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

	"aci2netbox/internal/util"
	"go.uber.org/zap"
)

// Querier 按类名查询 APIC 对象。
type Querier interface {
	Class(ctx context.Context, class string, subtree bool) ([]ApicObject, error)
}

// StaticQuerier 返回预置对象，用于测试或离线回放。
type StaticQuerier struct {
	Objects map[string][]ApicObject
	Errors  map[string]error
}

// Class 返回预置的对象。
func (q *StaticQuerier) Class(_ context.Context, class string, _ bool) ([]ApicObject, error) {
	if err := q.Errors[class]; err != nil {
		return nil, err
	}
	return q.Objects[class], nil
}

// Config 配置 APIC 客户端。
type Config struct {
	Host          string
	Username      string
	Password      string
	VerifySSL     bool
	Timeout       time.Duration
	LoginAttempts int
	CustomClient  *http.Client
	Logger        *zap.Logger
}

// Client 通过 aaaLogin 会话访问 APIC REST API。
type Client struct {
	baseURL    string
	username   string
	password   string
	attempts   int
	httpClient *http.Client
	logger     *zap.Logger

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewClient 创建 APIC 客户端，不发起登录。
func NewClient(cfg Config) (*Client, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, errors.New("apic host 不能为空")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("apic 用户名和密码不能为空")
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
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
	attempts := cfg.LoginAttempts
	if attempts <= 0 {
		attempts = 3
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(host, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		attempts:   attempts,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Login 建立会话，失败按退避重试。
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := util.Retry(ctx, c.attempts, 500*time.Millisecond, func() error {
		return c.login(ctx)
	})
	if err != nil {
		return fmt.Errorf("登录 APIC 失败: %w", err)
	}
	c.logger.Info("connected to APIC", zap.String("host", c.baseURL))
	return nil
}

// Logout 结束会话，未登录时直接返回。
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		return nil
	}
	body := ApicObject{"aaaUser": &ApicObjectBody{Attributes: map[string]any{"name": c.username}}}
	err := c.post(ctx, "/api/aaaLogout.json", body, nil, &http.Cookie{Name: "APIC-cookie", Value: c.token})
	c.token = ""
	c.expiry = time.Time{}
	if err != nil {
		return fmt.Errorf("登出 APIC 失败: %w", err)
	}
	return nil
}

func (c *Client) login(ctx context.Context) error {
	body := ApicObject{"aaaUser": &ApicObjectBody{Attributes: map[string]any{
		"name": c.username,
		"pwd":  c.password,
	}}}
	var resp ApicResponse
	if err := c.post(ctx, "/api/aaaLogin.json", body, &resp); err != nil {
		var status *statusError
		if errors.As(err, &status) && (status.code == http.StatusUnauthorized || status.code == http.StatusForbidden) {
			return util.Permanent(err)
		}
		return err
	}
	for _, obj := range resp.Imdata {
		if _, ok := obj["aaaLogin"]; !ok {
			continue
		}
		token := obj.Attr("token")
		if token == "" {
			return errors.New("登录响应中缺少 token")
		}
		refresh, err := strconv.Atoi(obj.Attr("refreshTimeoutSeconds"))
		if err != nil || refresh <= 0 {
			refresh = 600
		}
		c.token = token
		c.expiry = time.Now().Add(time.Duration(refresh) * time.Second)
		return nil
	}
	return errors.New("登录响应中缺少 aaaLogin")
}

func (c *Client) session(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Until(c.expiry) > 30*time.Second {
		return c.token, nil
	}
	if err := c.login(ctx); err != nil {
		return "", fmt.Errorf("刷新 APIC 会话失败: %w", err)
	}
	return c.token, nil
}

// Class 执行类查询 /api/class/{class}.json，subtree 为 true 时一并返回子对象。
func (c *Client) Class(ctx context.Context, class string, subtree bool) ([]ApicObject, error) {
	token, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	target := c.baseURL + "/api/class/" + url.PathEscape(class) + ".json"
	if subtree {
		target += "?rsp-subtree=children"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("构建请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: "APIC-cookie", Value: token})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("查询 %s 失败: %w", class, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("查询 %s 返回状态码 %d: %s", class, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var out ApicResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("解析 %s 响应失败: %w", class, err)
	}
	c.logger.Debug("apic class query", zap.String("class", class), zap.Int("count", len(out.Imdata)))
	return out.Imdata, nil
}

// statusError 表示 APIC 返回了非 2xx 状态码。
type statusError struct {
	path string
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("APIC %s 返回状态码 %d", e.path, e.code)
}

func (c *Client) post(ctx context.Context, path string, body any, out any, cookies ...*http.Cookie) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("编码请求失败: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("构建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求 APIC 失败: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{path: path, code: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("解析 APIC 响应失败: %w", err)
	}
	return nil
}
