package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger 可探活的依赖，例如 access_token 缓存
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	cache  Pinger
	logger *slog.Logger
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(cache Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{cache: cache, logger: logger}
}

// Health 缓存可用时返回 200，否则 503
func (h *HealthHandler) Health(c *gin.Context) {
	if err := h.cache.Ping(c.Request.Context()); err != nil {
		h.logger.Warn("health check failed", "error", err)
		c.String(http.StatusServiceUnavailable, "cache unavailable")
		return
	}
	c.String(http.StatusOK, "ok")
}
