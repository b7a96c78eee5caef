package wechat

import "encoding/xml"

// MsgType 消息类型
type MsgType string

// MsgType 常量
const (
	MsgTypeText  MsgType = "text"
	MsgTypeImage MsgType = "image"
	MsgTypeVoice MsgType = "voice"
	MsgTypeVideo MsgType = "video"
	MsgTypeMusic MsgType = "music"
	MsgTypeNews  MsgType = "news"
	MsgTypeEvent MsgType = "event"
)

// EventType 事件类型
type EventType string

// EventType 常量，大小写与微信推送一致
const (
	EventSubscribe   EventType = "subscribe"
	EventUnsubscribe EventType = "unsubscribe"
	EventScan        EventType = "SCAN"
	EventLocation    EventType = "LOCATION"
	EventClick       EventType = "CLICK"
	EventView        EventType = "VIEW"
)

// Message 消息与事件的封闭集合，只能由本包的类型实现
type Message interface {
	Header() *Base
	isMessage()
}

// Base 所有消息共有的字段
type Base struct {
	XMLName      xml.Name `xml:"xml"`
	ToUserName   string   `xml:"ToUserName"`
	FromUserName string   `xml:"FromUserName"`
	CreateTime   int64    `xml:"CreateTime"`
	MsgType      MsgType  `xml:"MsgType"`
}

// Header 返回公共字段
func (b *Base) Header() *Base { return b }

func (*Base) isMessage() {}

// TextMessage 文本消息
type TextMessage struct {
	Base
	Content string `xml:"Content"`
	MsgID   int64  `xml:"MsgId,omitempty"`
}

// ImageDetail 图片素材
type ImageDetail struct {
	MediaID string `xml:"MediaId"`
}

// ImageMessage 图片消息
type ImageMessage struct {
	Base
	Image  ImageDetail `xml:"Image"`
	PicURL string      `xml:"PicUrl,omitempty"`
	MsgID  int64       `xml:"MsgId,omitempty"`
}

// VoiceDetail 语音素材
type VoiceDetail struct {
	MediaID string `xml:"MediaId"`
}

// VoiceMessage 语音消息
type VoiceMessage struct {
	Base
	Voice       VoiceDetail `xml:"Voice"`
	Format      string      `xml:"Format,omitempty"`
	Recognition string      `xml:"Recognition,omitempty"`
	MsgID       int64       `xml:"MsgId,omitempty"`
}

// VideoDetail 视频素材
type VideoDetail struct {
	MediaID     string `xml:"MediaId"`
	Title       string `xml:"Title,omitempty"`
	Description string `xml:"Description,omitempty"`
}

// VideoMessage 视频消息
type VideoMessage struct {
	Base
	Video        VideoDetail `xml:"Video"`
	ThumbMediaID string      `xml:"ThumbMediaId,omitempty"`
	MsgID        int64       `xml:"MsgId,omitempty"`
}

// MusicDetail 音乐
type MusicDetail struct {
	Title        string `xml:"Title,omitempty"`
	Description  string `xml:"Description,omitempty"`
	MusicURL     string `xml:"MusicUrl,omitempty"`
	HQMusicURL   string `xml:"HQMusicUrl,omitempty"`
	ThumbMediaID string `xml:"ThumbMediaId"`
}

// MusicMessage 音乐消息，仅用于回复
type MusicMessage struct {
	Base
	Music MusicDetail `xml:"Music"`
}

// Article 图文条目
type Article struct {
	Title       string `xml:"Title,omitempty"`
	Description string `xml:"Description,omitempty"`
	PicURL      string `xml:"PicUrl,omitempty"`
	URL         string `xml:"Url,omitempty"`
}

// Articles 图文列表
type Articles struct {
	Items []Article `xml:"item"`
}

// ArticleMessage 图文消息，仅用于回复，MsgType 为 news
type ArticleMessage struct {
	Base
	ArticleCount int      `xml:"ArticleCount"`
	Articles     Articles `xml:"Articles"`
}

// EventBase 事件共有字段
type EventBase struct {
	Base
	Event EventType `xml:"Event"`
}

// SubscribeEvent 关注事件，扫描带参数二维码关注时带 EventKey 与 Ticket
type SubscribeEvent struct {
	EventBase
	EventKey string `xml:"EventKey,omitempty"`
	Ticket   string `xml:"Ticket,omitempty"`
}

// UnsubscribeEvent 取消关注事件
type UnsubscribeEvent struct {
	EventBase
}

// ScanEvent 已关注用户扫描带参数二维码
type ScanEvent struct {
	EventBase
	EventKey string `xml:"EventKey,omitempty"`
	Ticket   string `xml:"Ticket,omitempty"`
}

// LocationEvent 上报地理位置
type LocationEvent struct {
	EventBase
	Latitude  float64 `xml:"Latitude"`
	Longitude float64 `xml:"Longitude"`
	Precision float64 `xml:"Precision"`
}

// ClickEvent 点击菜单拉取消息
type ClickEvent struct {
	EventBase
	EventKey string `xml:"EventKey,omitempty"`
}

// ViewEvent 点击菜单跳转链接
type ViewEvent struct {
	EventBase
	EventKey string `xml:"EventKey,omitempty"`
}

// UnknownMessage 无法识别的 MsgType 或 Event，保留原始字段供调用方自行处理
type UnknownMessage struct {
	Base
	Event  EventType `xml:"Event,omitempty"`
	Fields *Field    `xml:"-"`
}

// NewText 构造回复给 to 的文本消息
func NewText(from, to string, createTime int64, content string) *TextMessage {
	return &TextMessage{
		Base: Base{
			ToUserName:   to,
			FromUserName: from,
			CreateTime:   createTime,
			MsgType:      MsgTypeText,
		},
		Content: content,
	}
}
