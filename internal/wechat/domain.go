package wechat

import (
	"encoding/xml"
	"errors"
)

// CallbackQuery 回调请求的 URL 查询参数
type CallbackQuery struct {
	Signature    string
	Timestamp    string
	Nonce        string
	Echostr      string // 仅 GET 验证时使用
	MsgSignature string // 安全模式下 POST 携带
	EncryptType  string
}

// Reply 推送处理结果，由 HTTP 层原样写回
type Reply struct {
	Body        []byte
	ContentType string
}

// EncryptedReply 安全模式下的加密回复
type EncryptedReply struct {
	XMLName      xml.Name `xml:"xml"`
	Encrypt      string   `xml:"Encrypt"`
	MsgSignature string   `xml:"MsgSignature"`
	TimeStamp    string   `xml:"TimeStamp"`
	Nonce        string   `xml:"Nonce"`
}

// 响应内容类型
const (
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeXML  = "application/xml; charset=utf-8"
)

// SuccessBody 无需回复时返回给微信服务器的内容
const SuccessBody = "success"

var (
	// ErrInvalidSignature 签名验证失败
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrIdentityMismatch 解密后的 AppID 与配置不一致
	ErrIdentityMismatch = errors.New("app id mismatch")
	// ErrDecryptionFailed 密文、分组或填充不合法
	ErrDecryptionFailed = errors.New("decryption failed")
	// ErrDecodeFailed XML 格式错误或缺少必填字段
	ErrDecodeFailed = errors.New("decode failed")
)
