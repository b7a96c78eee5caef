package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// NewRouter 注册所有路由，clientHandler 为 nil 时不暴露 /client 调试路由
func NewRouter(logger *slog.Logger, callback *CallbackHandler, health *HealthHandler, clientHandler *ClientHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger))

	r.GET("/wechat", callback.VerifyURL)
	r.POST("/wechat", callback.HandlePush)
	r.GET("/health", health.Health)

	if clientHandler != nil {
		g := r.Group("/client")
		g.GET("/access_token", clientHandler.AccessToken)
		g.GET("/callback_ip", clientHandler.CallbackIPs)
	}

	return r
}
