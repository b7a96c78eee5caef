// Package reply 公众号默认自动回复：文本与事件回显，其它消息不回复
package reply

import (
	"context"
	"log/slog"
	"time"

	"go-wechat-svc/internal/wechat"
)

// Echo 实现 wechat.Responder
type Echo struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewEcho 创建回显回复器
func NewEcho(logger *slog.Logger) *Echo {
	return &Echo{logger: logger, now: time.Now}
}

// Respond 文本消息回复 "Received text message: {Content}"，事件回复 "Received event message: {Event}"
func (e *Echo) Respond(ctx context.Context, msg wechat.Message) (wechat.Message, error) {
	var content string
	switch m := msg.(type) {
	case *wechat.TextMessage:
		content = "Received text message: " + m.Content
	case *wechat.SubscribeEvent:
		content = eventContent(m.Event)
	case *wechat.UnsubscribeEvent:
		content = eventContent(m.Event)
	case *wechat.ScanEvent:
		content = eventContent(m.Event)
	case *wechat.LocationEvent:
		content = eventContent(m.Event)
	case *wechat.ClickEvent:
		content = eventContent(m.Event)
	case *wechat.ViewEvent:
		content = eventContent(m.Event)
	default:
		h := msg.Header()
		e.logger.Debug("no reply for message",
			"msg_type", h.MsgType,
			"from_user", h.FromUserName,
		)
		return nil, nil
	}

	h := msg.Header()
	return wechat.NewText(h.ToUserName, h.FromUserName, e.now().Unix(), content), nil
}

func eventContent(event wechat.EventType) string {
	return "Received event message: " + string(event)
}
