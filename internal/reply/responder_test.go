package reply

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-wechat-svc/internal/wechat"
)

func newTestEcho() *Echo {
	e := NewEcho(slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.now = func() time.Time { return time.Unix(1727188435, 0) }
	return e
}

func base(kind wechat.MsgType) wechat.Base {
	return wechat.Base{
		ToUserName:   "gh_399908c3505e",
		FromUserName: "oIqny6t2aR0L7dhDHr6qkm27kvxA",
		CreateTime:   1727188434,
		MsgType:      kind,
	}
}

func TestEchoText(t *testing.T) {
	got, err := newTestEcho().Respond(context.Background(), &wechat.TextMessage{
		Base:    base(wechat.MsgTypeText),
		Content: "hello",
	})
	require.NoError(t, err)

	want := wechat.NewText("gh_399908c3505e", "oIqny6t2aR0L7dhDHr6qkm27kvxA", 1727188435, "Received text message: hello")
	assert.Equal(t, want, got)

	out, err := wechat.Encode(got)
	require.NoError(t, err)
	assert.Equal(t,
		"<xml><ToUserName>oIqny6t2aR0L7dhDHr6qkm27kvxA</ToUserName>"+
			"<FromUserName>gh_399908c3505e</FromUserName>"+
			"<CreateTime>1727188435</CreateTime>"+
			"<MsgType>text</MsgType>"+
			"<Content>Received text message: hello</Content></xml>",
		string(out))
}

func TestEchoEvents(t *testing.T) {
	event := func(kind wechat.EventType) wechat.EventBase {
		return wechat.EventBase{Base: base(wechat.MsgTypeEvent), Event: kind}
	}

	tests := []struct {
		msg  wechat.Message
		want string
	}{
		{&wechat.SubscribeEvent{EventBase: event(wechat.EventSubscribe)}, "Received event message: subscribe"},
		{&wechat.UnsubscribeEvent{EventBase: event(wechat.EventUnsubscribe)}, "Received event message: unsubscribe"},
		{&wechat.ScanEvent{EventBase: event(wechat.EventScan)}, "Received event message: SCAN"},
		{&wechat.LocationEvent{EventBase: event(wechat.EventLocation)}, "Received event message: LOCATION"},
		{&wechat.ClickEvent{EventBase: event(wechat.EventClick)}, "Received event message: CLICK"},
		{&wechat.ViewEvent{EventBase: event(wechat.EventView)}, "Received event message: VIEW"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := newTestEcho().Respond(context.Background(), tt.msg)
			require.NoError(t, err)

			text, ok := got.(*wechat.TextMessage)
			require.True(t, ok, "got %T", got)
			assert.Equal(t, tt.want, text.Content)
			assert.Equal(t, "oIqny6t2aR0L7dhDHr6qkm27kvxA", text.ToUserName)
			assert.Equal(t, "gh_399908c3505e", text.FromUserName)
		})
	}
}

func TestEchoNoReply(t *testing.T) {
	msgs := []wechat.Message{
		&wechat.ImageMessage{Base: base(wechat.MsgTypeImage), Image: wechat.ImageDetail{MediaID: "m"}},
		&wechat.VoiceMessage{Base: base(wechat.MsgTypeVoice)},
		&wechat.UnknownMessage{Base: base("shortvideo")},
	}
	for _, msg := range msgs {
		got, err := newTestEcho().Respond(context.Background(), msg)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
}
