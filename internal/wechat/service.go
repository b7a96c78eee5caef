package wechat

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strconv"
	"time"
)

// Responder 业务处理：根据收到的消息构造回复，返回 nil 表示无需回复
type Responder interface {
	Respond(ctx context.Context, msg Message) (Message, error)
}

// Service 公众号回调领域服务接口
type Service interface {
	// VerifyURL 处理 GET 请求的服务器地址验证，返回应原样写回的内容
	VerifyURL(ctx context.Context, q CallbackQuery) (string, error)

	// HandlePush 处理 POST 推送，明文进明文出，密文进密文出
	HandlePush(ctx context.Context, q CallbackQuery, body []byte) (*Reply, error)
}

// serviceImpl Service 接口的实现
type serviceImpl struct {
	crypto    Crypto
	responder Responder
	logger    *slog.Logger
	now       func() time.Time
	rand      io.Reader
}

// NewService 创建公众号回调领域服务实例
func NewService(crypto Crypto, responder Responder, logger *slog.Logger) Service {
	return &serviceImpl{
		crypto:    crypto,
		responder: responder,
		logger:    logger,
		now:       time.Now,
		rand:      rand.Reader,
	}
}

// VerifyURL 校验 signature，通过后返回 echostr，echostr 为空时返回 success
func (s *serviceImpl) VerifyURL(ctx context.Context, q CallbackQuery) (string, error) {
	if !s.crypto.VerifySignature(q.Signature, q.Timestamp, q.Nonce) {
		s.logger.Warn("URL verification signature failed",
			"timestamp", q.Timestamp,
			"nonce", q.Nonce,
		)
		return "", ErrInvalidSignature
	}

	if q.Echostr == "" {
		return SuccessBody, nil
	}
	return q.Echostr, nil
}

// HandlePush 处理消息推送
// 1. 验证签名 2. 解析 XML 3. 安全模式下验证 msg_signature 并解密 4. 收窄类型 5. 业务回复 6. 编码（必要时加密）
func (s *serviceImpl) HandlePush(ctx context.Context, q CallbackQuery, body []byte) (*Reply, error) {
	// 1. 验证签名
	if !s.crypto.VerifySignature(q.Signature, q.Timestamp, q.Nonce) {
		s.logger.Warn("push signature verification failed",
			"timestamp", q.Timestamp,
			"nonce", q.Nonce,
		)
		return nil, ErrInvalidSignature
	}

	// 2. 解析 XML
	env, err := Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode push body: %w", err)
	}

	// 3. 安全模式
	encrypted := env.Encrypted()
	if encrypted {
		env, err = s.openEnvelope(q, env.Encrypt)
		if err != nil {
			return nil, err
		}
	}

	// 4. 收窄类型
	msg, err := Narrow(env)
	if err != nil {
		return nil, fmt.Errorf("narrow message: %w", err)
	}
	s.logger.Debug("push received",
		"msg_type", env.MsgType,
		"event", env.Event,
		"from_user", env.FromUserName,
		"encrypted", encrypted,
	)

	// 5. 业务回复
	reply, err := s.responder.Respond(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("respond: %w", err)
	}
	if noReply(reply) {
		return &Reply{Body: []byte(SuccessBody), ContentType: ContentTypeText}, nil
	}

	// 6. 编码
	out, err := Encode(reply)
	if err != nil {
		return nil, fmt.Errorf("encode reply: %w", err)
	}
	if encrypted {
		out, err = s.sealReply(out)
		if err != nil {
			return nil, err
		}
	}

	return &Reply{Body: out, ContentType: ContentTypeXML}, nil
}

// noReply nil 接口与带类型的 nil 指针都表示无需回复
func noReply(m Message) bool {
	if m == nil {
		return true
	}
	v := reflect.ValueOf(m)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// openEnvelope 校验 msg_signature 并解密内层消息
func (s *serviceImpl) openEnvelope(q CallbackQuery, blob string) (*Envelope, error) {
	if !s.crypto.VerifySignature(q.MsgSignature, q.Timestamp, q.Nonce, blob) {
		s.logger.Warn("msg_signature verification failed",
			"timestamp", q.Timestamp,
			"nonce", q.Nonce,
		)
		return nil, ErrInvalidSignature
	}

	plaintext, _, err := s.crypto.Decrypt(blob)
	if err != nil {
		s.logger.Error("failed to decrypt message", "error", err)
		return nil, fmt.Errorf("decrypt message: %w", err)
	}

	inner, err := Decode(plaintext)
	if err != nil {
		return nil, fmt.Errorf("decode decrypted message: %w", err)
	}
	return inner, nil
}

// sealReply 加密回复并用新的时间戳与随机串签名
func (s *serviceImpl) sealReply(plain []byte) ([]byte, error) {
	encrypt, err := s.crypto.Encrypt(plain)
	if err != nil {
		return nil, fmt.Errorf("encrypt reply: %w", err)
	}

	nonce, err := s.newNonce()
	if err != nil {
		return nil, err
	}
	timestamp := strconv.FormatInt(s.now().Unix(), 10)

	out, err := marshal(EncryptedReply{
		Encrypt:      encrypt,
		MsgSignature: s.crypto.Sign(timestamp, nonce, encrypt),
		TimeStamp:    timestamp,
		Nonce:        nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("encode encrypted reply: %w", err)
	}
	return out, nil
}

// newNonce 生成 URL 安全的随机串
func (s *serviceImpl) newNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := io.ReadFull(s.rand, b); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
