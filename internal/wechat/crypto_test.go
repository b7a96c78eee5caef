package wechat

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAppID = "wx5823bf96d3bd56c7"

// testEncodingKey 生成 43 字符的 EncodingAESKey
func testEncodingKey(b byte) string {
	raw := bytes.Repeat([]byte{b}, 32)
	enc := base64.StdEncoding.EncodeToString(raw)
	return enc[:43]
}

func newTestCrypto(t *testing.T, appID string) Crypto {
	t.Helper()
	c, err := NewCrypto("token", testEncodingKey(0x11), appID)
	require.NoError(t, err)
	return c
}

// encryptFrame 按微信服务器的方式构造密文：32 字节块填充
func encryptFrame(t *testing.T, encodingKey, appID string, msg []byte, msgLen uint32) string {
	t.Helper()

	key, err := base64.StdEncoding.DecodeString(encodingKey + "=")
	require.NoError(t, err)

	buf := make([]byte, 0, 20+len(msg)+len(appID)+32)
	buf = append(buf, bytes.Repeat([]byte("A"), 16)...)
	buf = binary.BigEndian.AppendUint32(buf, msgLen)
	buf = append(buf, msg...)
	buf = append(buf, appID...)

	pad := 32 - len(buf)%32
	buf = append(buf, bytes.Repeat([]byte{byte(pad)}, pad)...)

	return encryptBlocks(t, key, buf)
}

func encryptBlocks(t *testing.T, key, plain []byte) string {
	t.Helper()
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	out := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, key[:aes.BlockSize]).CryptBlocks(out, plain)
	return base64.StdEncoding.EncodeToString(out)
}

func TestNewCryptoRejectsBadKey(t *testing.T) {
	_, err := NewCrypto("token", "short", testAppID)
	assert.Error(t, err)

	// 合法 Base64 但长度不是 32 字节
	_, err = NewCrypto("token", "YWJjZGU", testAppID)
	assert.Error(t, err)
}

func TestCryptoRoundTrip(t *testing.T) {
	c := newTestCrypto(t, testAppID)

	payloads := [][]byte{
		[]byte("<xml><Content>hello</Content></xml>"),
		[]byte("<xml><Content>你好，世界</Content></xml>"),
		{},
		bytes.Repeat([]byte("x"), 4096),
	}
	for _, payload := range payloads {
		enc, err := c.Encrypt(payload)
		require.NoError(t, err)

		got, appID, err := c.Decrypt(enc)
		require.NoError(t, err)
		assert.Equal(t, testAppID, appID)
		assert.True(t, bytes.Equal(payload, got), "payload mismatch for %q", payload)
	}
}

func TestCryptoEncryptIsRandomised(t *testing.T) {
	c := newTestCrypto(t, testAppID)
	a, err := c.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := c.Encrypt([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCryptoDecryptVendorPadding(t *testing.T) {
	c := newTestCrypto(t, testAppID)
	msg := []byte("<xml><ToUserName><![CDATA[gh_399908c3505e]]></ToUserName></xml>")

	enc := encryptFrame(t, testEncodingKey(0x11), testAppID, msg, uint32(len(msg)))
	got, appID, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
	assert.Equal(t, testAppID, appID)
}

func TestCryptoIdentityMismatch(t *testing.T) {
	sender := newTestCrypto(t, "wx_other_app")
	receiver := newTestCrypto(t, testAppID)

	enc, err := sender.Encrypt([]byte("<xml/>"))
	require.NoError(t, err)

	_, appID, err := receiver.Decrypt(enc)
	assert.ErrorIs(t, err, ErrIdentityMismatch)
	assert.NotErrorIs(t, err, ErrDecryptionFailed)
	assert.Equal(t, "wx_other_app", appID)
}

func TestCryptoDecryptFailures(t *testing.T) {
	c := newTestCrypto(t, testAppID)
	key, err := base64.StdEncoding.DecodeString(testEncodingKey(0x11) + "=")
	require.NoError(t, err)

	zeroPad := bytes.Repeat([]byte{0}, 32)
	badBytes := append(bytes.Repeat([]byte{'a'}, 29), 2, 1, 3)

	tests := []struct {
		name   string
		cipher string
	}{
		{"malformed base64", "%%%not-base64%%%"},
		{"empty", ""},
		{"not block aligned", base64.StdEncoding.EncodeToString([]byte("0123456789"))},
		{"zero padding", encryptBlocks(t, key, zeroPad)},
		{"inconsistent padding", encryptBlocks(t, key, badBytes)},
		{"too short", encryptBlocks(t, key, append(bytes.Repeat([]byte{'a'}, 4), bytes.Repeat([]byte{12}, 12)...))},
		{"length overflow", encryptFrame(t, testEncodingKey(0x11), testAppID, []byte("<xml/>"), 1<<20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := c.Decrypt(tt.cipher)
			assert.ErrorIs(t, err, ErrDecryptionFailed)
			assert.NotErrorIs(t, err, ErrIdentityMismatch)
		})
	}
}

func TestCryptoWithoutKey(t *testing.T) {
	c, err := NewCrypto("token", "", testAppID)
	require.NoError(t, err)

	_, _, err = c.Decrypt("anything")
	assert.ErrorIs(t, err, ErrDecryptionFailed)
	_, err = c.Encrypt([]byte("<xml/>"))
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	// 明文模式仍可校验签名
	sig := c.Sign("1727185580", "nonce")
	assert.True(t, c.VerifySignature(sig, "1727185580", "nonce"))
}
