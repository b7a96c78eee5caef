package wechat

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Field 解码第一阶段得到的松散字段树，对应根元素下的子元素
type Field struct {
	XMLName  xml.Name
	Text     string   `xml:",chardata"`
	Children []*Field `xml:",any"`
}

// Name 元素名
func (f *Field) Name() string { return f.XMLName.Local }

// Child 返回第一个同名子元素
func (f *Field) Child(name string) *Field {
	if f == nil {
		return nil
	}
	for _, c := range f.Children {
		if c.XMLName.Local == name {
			return c
		}
	}
	return nil
}

// Value 返回子元素的原始文本，元素不存在或内容为空时 ok 为 false
func (f *Field) Value(name string) (string, bool) {
	c := f.Child(name)
	if c == nil || c.Text == "" {
		return "", false
	}
	return c.Text, true
}

// Envelope 通用消息，包含所有消息和事件类型可能出现的字段
// 入站请求要么是明文消息，要么只携带 Encrypt 密文
type Envelope struct {
	ToUserName   string
	FromUserName string
	CreateTime   int64
	MsgType      MsgType
	MsgID        int64

	Content      string
	PicURL       string
	MediaID      string
	Format       string
	Recognition  string
	ThumbMediaID string

	Image        *ImageDetail
	Voice        *VoiceDetail
	Video        *VideoDetail
	Music        *MusicDetail
	ArticleCount int
	Articles     *Articles

	Event     EventType
	EventKey  string
	Ticket    string
	Latitude  *float64
	Longitude *float64
	Precision *float64

	Encrypt      string
	MsgSignature string
	TimeStamp    string
	Nonce        string

	Fields *Field
}

// Encrypted 是否为安全模式的加密消息
func (e *Envelope) Encrypted() bool {
	return e.Encrypt != ""
}

// ParseFields 解码第一阶段：把唯一的 <xml> 根元素解析为字段树
// 根元素名不是 xml 或根元素之后还有其它内容时返回 ErrDecodeFailed
func ParseFields(data []byte) (*Field, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var root Field
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: unmarshal xml: %v", ErrDecodeFailed, err)
	}
	if root.Name() != "xml" {
		return nil, fmt.Errorf("%w: unexpected root element <%s>", ErrDecodeFailed, root.Name())
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return &root, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: trailing content: %v", ErrDecodeFailed, err)
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return nil, fmt.Errorf("%w: trailing text after root element", ErrDecodeFailed)
			}
		default:
			return nil, fmt.Errorf("%w: content after root element", ErrDecodeFailed)
		}
	}
}

// Decode 解码第二阶段：字段树按类型转换为 Envelope
// 未知 MsgType/Event 原样保留，缺失字段保持零值
func Decode(data []byte) (*Envelope, error) {
	root, err := ParseFields(data)
	if err != nil {
		return nil, err
	}

	c := coercer{root: root}
	env := &Envelope{
		ToUserName:   c.str("ToUserName"),
		FromUserName: c.str("FromUserName"),
		CreateTime:   c.integer("CreateTime"),
		MsgType:      MsgType(c.str("MsgType")),
		MsgID:        c.integer("MsgId"),

		Content:      c.str("Content"),
		PicURL:       c.str("PicUrl"),
		MediaID:      c.str("MediaId"),
		Format:       c.str("Format"),
		Recognition:  c.str("Recognition"),
		ThumbMediaID: c.str("ThumbMediaId"),
		ArticleCount: int(c.integer("ArticleCount")),

		Event:     EventType(c.str("Event")),
		EventKey:  c.str("EventKey"),
		Ticket:    c.str("Ticket"),
		Latitude:  c.number("Latitude"),
		Longitude: c.number("Longitude"),
		Precision: c.number("Precision"),

		Encrypt:      c.str("Encrypt"),
		MsgSignature: c.str("MsgSignature"),
		TimeStamp:    c.str("TimeStamp"),
		Nonce:        c.str("Nonce"),

		Fields: root,
	}

	if f := root.Child("Image"); f != nil {
		env.Image = &ImageDetail{MediaID: text(f, "MediaId")}
	}
	if f := root.Child("Voice"); f != nil {
		env.Voice = &VoiceDetail{MediaID: text(f, "MediaId")}
	}
	if f := root.Child("Video"); f != nil {
		env.Video = &VideoDetail{
			MediaID:     text(f, "MediaId"),
			Title:       text(f, "Title"),
			Description: text(f, "Description"),
		}
	}
	if f := root.Child("Music"); f != nil {
		env.Music = &MusicDetail{
			Title:        text(f, "Title"),
			Description:  text(f, "Description"),
			MusicURL:     text(f, "MusicUrl"),
			HQMusicURL:   text(f, "HQMusicUrl"),
			ThumbMediaID: text(f, "ThumbMediaId"),
		}
	}
	if f := root.Child("Articles"); f != nil {
		articles := &Articles{}
		for _, item := range f.Children {
			if item.Name() != "item" {
				continue
			}
			articles.Items = append(articles.Items, Article{
				Title:       text(item, "Title"),
				Description: text(item, "Description"),
				PicURL:      text(item, "PicUrl"),
				URL:         text(item, "Url"),
			})
		}
		env.Articles = articles
	}

	if c.err != nil {
		return nil, c.err
	}
	return env, nil
}

// Narrow 解码第三阶段：按 MsgType/Event 收窄为具体类型
// 无法识别的类型返回 *UnknownMessage；缺少公共字段或位置坐标时返回 ErrDecodeFailed
func Narrow(env *Envelope) (Message, error) {
	switch {
	case env.ToUserName == "":
		return nil, fmt.Errorf("%w: missing ToUserName", ErrDecodeFailed)
	case env.FromUserName == "":
		return nil, fmt.Errorf("%w: missing FromUserName", ErrDecodeFailed)
	case env.MsgType == "":
		return nil, fmt.Errorf("%w: missing MsgType", ErrDecodeFailed)
	}

	base := Base{
		ToUserName:   env.ToUserName,
		FromUserName: env.FromUserName,
		CreateTime:   env.CreateTime,
		MsgType:      env.MsgType,
	}

	switch env.MsgType {
	case MsgTypeText:
		return &TextMessage{Base: base, Content: env.Content, MsgID: env.MsgID}, nil
	case MsgTypeImage:
		// 用户发来的图片 MediaId 位于顶层，回复格式则嵌套在 Image 中
		img := ImageDetail{MediaID: env.MediaID}
		if env.Image != nil {
			img = *env.Image
		}
		return &ImageMessage{Base: base, Image: img, PicURL: env.PicURL, MsgID: env.MsgID}, nil
	case MsgTypeVoice:
		voice := VoiceDetail{MediaID: env.MediaID}
		if env.Voice != nil {
			voice = *env.Voice
		}
		return &VoiceMessage{
			Base:        base,
			Voice:       voice,
			Format:      env.Format,
			Recognition: env.Recognition,
			MsgID:       env.MsgID,
		}, nil
	case MsgTypeVideo:
		video := VideoDetail{MediaID: env.MediaID}
		if env.Video != nil {
			video = *env.Video
		}
		return &VideoMessage{Base: base, Video: video, ThumbMediaID: env.ThumbMediaID, MsgID: env.MsgID}, nil
	case MsgTypeMusic:
		var music MusicDetail
		if env.Music != nil {
			music = *env.Music
		}
		return &MusicMessage{Base: base, Music: music}, nil
	case MsgTypeNews:
		var articles Articles
		if env.Articles != nil {
			articles = *env.Articles
		}
		return &ArticleMessage{Base: base, ArticleCount: env.ArticleCount, Articles: articles}, nil
	case MsgTypeEvent:
		return narrowEvent(env, EventBase{Base: base, Event: env.Event})
	default:
		return &UnknownMessage{Base: base, Event: env.Event, Fields: env.Fields}, nil
	}
}

func narrowEvent(env *Envelope, eb EventBase) (Message, error) {
	switch env.Event {
	case EventSubscribe:
		return &SubscribeEvent{EventBase: eb, EventKey: env.EventKey, Ticket: env.Ticket}, nil
	case EventUnsubscribe:
		return &UnsubscribeEvent{EventBase: eb}, nil
	case EventScan:
		return &ScanEvent{EventBase: eb, EventKey: env.EventKey, Ticket: env.Ticket}, nil
	case EventLocation:
		if env.Latitude == nil || env.Longitude == nil || env.Precision == nil {
			return nil, fmt.Errorf("%w: LOCATION event missing coordinates", ErrDecodeFailed)
		}
		return &LocationEvent{
			EventBase: eb,
			Latitude:  *env.Latitude,
			Longitude: *env.Longitude,
			Precision: *env.Precision,
		}, nil
	case EventClick:
		return &ClickEvent{EventBase: eb, EventKey: env.EventKey}, nil
	case EventView:
		return &ViewEvent{EventBase: eb, EventKey: env.EventKey}, nil
	default:
		return &UnknownMessage{Base: eb.Base, Event: env.Event, Fields: env.Fields}, nil
	}
}

// Encode 将具体消息编码为 <xml> 文档，字段按声明顺序输出，空的可选字段不输出
func Encode(m Message) ([]byte, error) {
	return marshal(m)
}

func marshal(v any) ([]byte, error) {
	data, err := xml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal xml: %w", err)
	}
	return data, nil
}

// coercer 记录第一次类型转换失败
type coercer struct {
	root *Field
	err  error
}

func (c *coercer) str(name string) string {
	v, _ := c.root.Value(name)
	return v
}

func (c *coercer) integer(name string) int64 {
	v, ok := c.numeric(name)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil && c.err == nil {
		c.err = fmt.Errorf("%w: field %s: %v", ErrDecodeFailed, name, err)
	}
	return n
}

func (c *coercer) number(name string) *float64 {
	v, ok := c.numeric(name)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		if c.err == nil {
			c.err = fmt.Errorf("%w: field %s: %v", ErrDecodeFailed, name, err)
		}
		return nil
	}
	return &f
}

// numeric 数值字段允许两侧空白，纯空白视为缺失
func (c *coercer) numeric(name string) (string, bool) {
	v, _ := c.root.Value(name)
	v = strings.TrimSpace(v)
	return v, v != ""
}

func text(f *Field, name string) string {
	v, _ := f.Value(name)
	return v
}
