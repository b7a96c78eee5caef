package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-wechat-svc/internal/shared"
	"go-wechat-svc/internal/token"
)

// CallbackIPSource 查询微信回调服务器 IP
type CallbackIPSource interface {
	CallbackIPs(ctx context.Context) ([]string, error)
}

// ClientHandler 调试用的出站接口路由，仅在 server.expose_token_route 开启时注册
type ClientHandler struct {
	tokens token.Manager
	ips    CallbackIPSource
	logger *slog.Logger
}

// NewClientHandler 创建出站接口调试处理器
func NewClientHandler(tokens token.Manager, ips CallbackIPSource, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{tokens: tokens, ips: ips, logger: logger}
}

// AccessToken 返回当前缓存的 access_token
func (h *ClientHandler) AccessToken(c *gin.Context) {
	ctx := c.Request.Context()

	accessToken, err := shared.Await(ctx, h.tokens.TokenAsync(ctx))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": accessToken})
}

// CallbackIPs 返回微信回调服务器 IP 列表
func (h *ClientHandler) CallbackIPs(c *gin.Context) {
	ips, err := h.ips.CallbackIPs(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ip_list": ips})
}

func (h *ClientHandler) writeError(c *gin.Context, err error) {
	h.logger.Error("outbound call failed", "request_id", RequestID(c), "path", c.FullPath(), "error", err)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, token.ErrRefreshFailed):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
