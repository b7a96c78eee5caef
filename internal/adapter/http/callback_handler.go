package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-wechat-svc/internal/wechat"
)

// MaxPushBodyBytes 推送请求体上限，微信推送的 XML 远小于该值
const MaxPushBodyBytes = 512 << 10

// CallbackHandler 公众号回调 HTTP 处理器
type CallbackHandler struct {
	svc    wechat.Service
	logger *slog.Logger
}

// NewCallbackHandler 创建回调处理器实例
func NewCallbackHandler(svc wechat.Service, logger *slog.Logger) *CallbackHandler {
	return &CallbackHandler{svc: svc, logger: logger}
}

// VerifyURL 处理 GET 请求的服务器地址验证
func (h *CallbackHandler) VerifyURL(c *gin.Context) {
	q := callbackQuery(c)

	body, err := h.svc.VerifyURL(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Data(http.StatusOK, wechat.ContentTypeText, []byte(body))
}

// HandlePush 处理 POST 请求的消息推送
func (h *CallbackHandler) HandlePush(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxPushBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("push body too large", "request_id", RequestID(c), "limit", tooLarge.Limit)
			c.String(http.StatusBadRequest, "Bad Request")
			return
		}
		h.logger.Error("failed to read request body", "request_id", RequestID(c), "error", err)
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}

	reply, err := h.svc.HandlePush(c.Request.Context(), callbackQuery(c), body)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Data(http.StatusOK, reply.ContentType, reply.Body)
}

// writeError 签名、解密、解码错误返回 400，其它返回 500
func (h *CallbackHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, wechat.ErrInvalidSignature):
		c.String(http.StatusBadRequest, "Invalid Signature")
	case errors.Is(err, wechat.ErrIdentityMismatch),
		errors.Is(err, wechat.ErrDecryptionFailed),
		errors.Is(err, wechat.ErrDecodeFailed):
		h.logger.Warn("rejected callback", "request_id", RequestID(c), "error", err)
		c.String(http.StatusBadRequest, "Bad Request")
	default:
		h.logger.Error("callback processing failed", "request_id", RequestID(c), "error", err)
		c.String(http.StatusInternalServerError, "internal server error")
	}
}

func callbackQuery(c *gin.Context) wechat.CallbackQuery {
	return wechat.CallbackQuery{
		Signature:    c.Query("signature"),
		Timestamp:    c.Query("timestamp"),
		Nonce:        c.Query("nonce"),
		Echostr:      c.Query("echostr"),
		MsgSignature: c.Query("msg_signature"),
		EncryptType:  c.Query("encrypt_type"),
	}
}
