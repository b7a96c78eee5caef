package token

import (
	"context"
	"errors"
	"time"
)

//go:generate mockgen -destination=mocks/mock_source.go -package=mocks go-wechat-svc/internal/token Source

// ErrRefreshFailed 向微信换取 access_token 失败，包括传输错误、非 200 状态与 errcode 响应
var ErrRefreshFailed = errors.New("access token refresh failed")

// Credential 微信 token 接口返回的凭证
type Credential struct {
	AccessToken string
	ExpiresIn   time.Duration
}

// Source access_token 的远端来源
type Source interface {
	// FetchToken 用 appid/secret 换取新的 access_token，每次调用都会发起网络请求
	FetchToken(ctx context.Context) (*Credential, error)
}
