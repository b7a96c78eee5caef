package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"

	"go-wechat-svc/internal/shared"
	"go-wechat-svc/internal/token"
)

// tokenResponse 微信 token 接口响应，成功与失败共用
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
}

// TokenClient 微信 access_token 接口 HTTP 客户端
type TokenClient struct {
	tokenURL   string
	appID      string
	secret     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTokenClient 创建 token 接口客户端，超时即视为刷新失败
func NewTokenClient(cfg shared.WeChatConfig, logger *slog.Logger) *TokenClient {
	return &TokenClient{
		tokenURL: cfg.TokenURL,
		appID:    cfg.AppID,
		secret:   cfg.AppSecret,
		httpClient: &http.Client{
			Timeout: cfg.TokenTimeout,
		},
		logger: logger,
	}
}

// FetchToken 实现 token.Source 接口，所有失败都包装为 token.ErrRefreshFailed，不在此记录错误日志
func (c *TokenClient) FetchToken(ctx context.Context) (*token.Credential, error) {
	start := time.Now()
	cred, err := c.doRequest(ctx)
	if err != nil {
		// 由 token.Manager 统一记录失败日志
		return nil, fmt.Errorf("%w: %w", token.ErrRefreshFailed, err)
	}
	c.logger.Debug("token endpoint request succeeded",
		"app_id", c.appID,
		"duration", time.Since(start),
	)
	return cred, nil
}

// doRequest 执行单次 GET 请求
func (c *TokenClient) doRequest(ctx context.Context) (*token.Credential, error) {
	u, err := url.Parse(c.tokenURL)
	if err != nil {
		return nil, fmt.Errorf("parse token url: %w", err)
	}
	q := u.Query()
	q.Set("grant_type", "client_credential")
	q.Set("appid", c.appID)
	q.Set("secret", c.secret)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var tokenResp tokenResponse
	if err := sonic.Unmarshal(respBody, &tokenResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if tokenResp.ErrCode != 0 {
		return nil, &APIError{Code: tokenResp.ErrCode, Msg: tokenResp.ErrMsg}
	}
	if tokenResp.AccessToken == "" || tokenResp.ExpiresIn <= 0 {
		return nil, fmt.Errorf("incomplete response: %s", string(respBody))
	}

	return &token.Credential{
		AccessToken: tokenResp.AccessToken,
		ExpiresIn:   time.Duration(tokenResp.ExpiresIn) * time.Second,
	}, nil
}
