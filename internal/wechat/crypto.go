package wechat

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
)

// 微信服务器按 32 字节块填充，本端加密按 AES 块大小填充，两者都能被对方正确去除
const maxPadding = 32

// Crypto 公众号消息签名与加解密接口
type Crypto interface {
	// VerifySignature 验证签名
	// 明文模式: SHA1(sort(token, timestamp, nonce))
	// 安全模式: SHA1(sort(token, timestamp, nonce, msgEncrypt))
	VerifySignature(signature, timestamp, nonce string, msgEncrypt ...string) bool

	// Sign 使用配置的 token 生成签名
	Sign(timestamp, nonce string, msgEncrypt ...string) string

	// Decrypt 解密消息，返回明文与发送方 AppID
	Decrypt(encrypted string) ([]byte, string, error)

	// Encrypt 加密回复消息
	Encrypt(plaintext []byte) (string, error)
}

// cryptoImpl Crypto 接口的实现
type cryptoImpl struct {
	token  string
	aesKey []byte // 明文模式下为 nil
	appID  string
	rand   io.Reader
}

// NewCrypto 创建公众号加解密服务实例
// encodingAESKey 为 43 字符的 Base64 编码密钥，追加 "=" 后解码得到 32 字节 AES 密钥；
// 为空时只支持明文模式，Decrypt/Encrypt 返回 ErrDecryptionFailed
func NewCrypto(token, encodingAESKey, appID string) (Crypto, error) {
	c := &cryptoImpl{
		token: token,
		appID: appID,
		rand:  rand.Reader,
	}
	if encodingAESKey == "" {
		return c, nil
	}

	aesKey, err := base64.StdEncoding.DecodeString(encodingAESKey + "=")
	if err != nil {
		return nil, fmt.Errorf("decode encoding_aes_key: %w", err)
	}
	if len(aesKey) != 32 {
		return nil, fmt.Errorf("invalid aes key length: got %d, want 32", len(aesKey))
	}
	c.aesKey = aesKey
	return c, nil
}

// VerifySignature 验证消息签名
func (c *cryptoImpl) VerifySignature(signature, timestamp, nonce string, msgEncrypt ...string) bool {
	return Verify(signature, c.token, timestamp, nonce, msgEncrypt...)
}

// Sign 生成消息签名
func (c *cryptoImpl) Sign(timestamp, nonce string, msgEncrypt ...string) string {
	return Sign(c.token, timestamp, nonce, msgEncrypt...)
}

// Decrypt 解密公众号加密消息
// Base64 解码 → AES-CBC 解密（IV = aesKey[:16]）→ PKCS#7 去填充 → 解析明文 → 验证 AppID
//
// IV 取自密钥前 16 字节是微信协议的固定约定，并非随机 IV，必须保持一致才能互通。
func (c *cryptoImpl) Decrypt(encrypted string) ([]byte, string, error) {
	if c.aesKey == nil {
		return nil, "", fmt.Errorf("%w: cipher not configured", ErrDecryptionFailed)
	}

	// 1. Base64 解码
	ciphertext, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, "", fmt.Errorf("%w: base64 decode: %v", ErrDecryptionFailed, err)
	}

	// 2. 验证密文长度是 AES 块大小的整数倍
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, "", fmt.Errorf("%w: ciphertext length %d is not a multiple of block size %d",
			ErrDecryptionFailed, len(ciphertext), aes.BlockSize)
	}

	// 3. AES-CBC 解密
	block, err := aes.NewCipher(c.aesKey)
	if err != nil {
		return nil, "", fmt.Errorf("new aes cipher: %w", err)
	}
	mode := cipher.NewCBCDecrypter(block, c.aesKey[:aes.BlockSize])
	plaintext := make([]byte, len(ciphertext))
	mode.CryptBlocks(plaintext, ciphertext)

	// 4. 去除 PKCS#7 填充
	plaintext, err = pkcs7Unpad(plaintext)
	if err != nil {
		return nil, "", fmt.Errorf("%w: pkcs7 unpad: %v", ErrDecryptionFailed, err)
	}

	// 5. 解析明文: random(16) + msgLen(4, big-endian) + msg + appID
	if len(plaintext) < 20 {
		return nil, "", fmt.Errorf("%w: plaintext too short: %d bytes", ErrDecryptionFailed, len(plaintext))
	}
	msgLen := binary.BigEndian.Uint32(plaintext[16:20])
	if uint64(len(plaintext)) < 20+uint64(msgLen) {
		return nil, "", fmt.Errorf("%w: invalid msg length: %d, plaintext length: %d",
			ErrDecryptionFailed, msgLen, len(plaintext))
	}
	msg := plaintext[20 : 20+msgLen]
	appID := string(plaintext[20+msgLen:])

	// 6. 验证 AppID
	if appID != c.appID {
		return nil, appID, fmt.Errorf("%w: got %s, want %s", ErrIdentityMismatch, appID, c.appID)
	}

	return msg, appID, nil
}

// Encrypt 加密消息
// 构造 random(16) + msgLen(4, big-endian) + msg + appID → PKCS#7 填充 → AES-CBC 加密 → Base64 编码
func (c *cryptoImpl) Encrypt(plaintext []byte) (string, error) {
	if c.aesKey == nil {
		return "", fmt.Errorf("%w: cipher not configured", ErrDecryptionFailed)
	}

	// 1. 构造明文
	randomBytes := make([]byte, 16)
	if _, err := io.ReadFull(c.rand, randomBytes); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}

	msgLen := make([]byte, 4)
	binary.BigEndian.PutUint32(msgLen, uint32(len(plaintext)))

	buf := make([]byte, 0, 20+len(plaintext)+len(c.appID)+aes.BlockSize)
	buf = append(buf, randomBytes...)
	buf = append(buf, msgLen...)
	buf = append(buf, plaintext...)
	buf = append(buf, c.appID...)

	// 2. PKCS#7 填充
	padded := pkcs7Pad(buf, aes.BlockSize)

	// 3. AES-CBC 加密，IV = aesKey[:16]
	block, err := aes.NewCipher(c.aesKey)
	if err != nil {
		return "", fmt.Errorf("new aes cipher: %w", err)
	}
	mode := cipher.NewCBCEncrypter(block, c.aesKey[:aes.BlockSize])
	ciphertext := make([]byte, len(padded))
	mode.CryptBlocks(ciphertext, padded)

	// 4. Base64 编码
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// pkcs7Pad 对数据进行 PKCS#7 填充
func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	for range padding {
		data = append(data, byte(padding))
	}
	return data
}

// pkcs7Unpad 去除 PKCS#7 填充，兼容 16 与 32 字节块
func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > maxPadding {
		return nil, fmt.Errorf("invalid padding value: %d", padding)
	}
	if padding > len(data) {
		return nil, fmt.Errorf("padding %d exceeds data length %d", padding, len(data))
	}
	for i := len(data) - padding; i < len(data); i++ {
		if data[i] != byte(padding) {
			return nil, fmt.Errorf("invalid padding byte at position %d", i)
		}
	}
	return data[:len(data)-padding], nil
}
