package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"

	"go-wechat-svc/internal/token"
)

// APIClient 携带 access_token 调用微信服务端接口
type APIClient struct {
	baseURL    string
	tokens     token.Manager
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAPIClient 创建接口客户端，httpClient 为 nil 时使用 http.DefaultClient
func NewAPIClient(baseURL string, tokens token.Manager, httpClient *http.Client, logger *slog.Logger) *APIClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Do 从 token.Manager 取得 access_token 放入查询参数后发送请求，响应由调用方关闭
func (c *APIClient) Do(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Response, error) {
	accessToken, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("get access token: %w", err)
	}

	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("access_token", accessToken)

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+q.Encode(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

// Call JSON 请求的便捷封装：in 为 nil 时不发送请求体，errcode 非 0 时返回 *APIError
func (c *APIClient) Call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := sonic.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.Do(ctx, method, path, nil, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var status APIError
	if err := sonic.Unmarshal(respBody, &status); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if status.Code != 0 {
		c.logger.Warn("wechat api returned error",
			"path", path,
			"errcode", status.Code,
			"errmsg", status.Msg,
		)
		return &status
	}

	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// CallbackIPs 获取微信回调服务器 IP 列表，可用于校验推送来源
func (c *APIClient) CallbackIPs(ctx context.Context) ([]string, error) {
	var resp struct {
		IPList []string `json:"ip_list"`
	}
	if err := c.Call(ctx, http.MethodGet, "/cgi-bin/getcallbackip", nil, &resp); err != nil {
		return nil, err
	}
	return resp.IPList, nil
}
