package wechat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyKnownFixture(t *testing.T) {
	// 公众号后台配置 token 为 123456 时微信服务器发来的签名
	const (
		token     = "123456"
		signature = "9bbb8b7d8ce841bfe8a59a6db5fc37647ebe4a53"
	)

	assert.True(t, Verify(signature, token, "1727186898", "1313055186"))
	assert.True(t, Verify(strings.ToUpper(signature), token, "1727186898", "1313055186"))
	assert.False(t, Verify(signature, token, "1727186898", "invalid_nonce"))
	assert.False(t, Verify(signature, token, "1727185580", "invalid_nonce"))
}

func TestSignDeterministicAndOrderIndependent(t *testing.T) {
	sig := Sign("token", "1727185580", "nonce", "encrypt")
	assert.Len(t, sig, 40)
	assert.Equal(t, sig, Sign("token", "1727185580", "nonce", "encrypt"))

	// 排序后拼接，参数位置互换结果不变
	assert.Equal(t, sig, Sign("nonce", "encrypt", "token", "1727185580"))
}

func TestVerifyRejectsAnySingleCharacterChange(t *testing.T) {
	const (
		token     = "token"
		timestamp = "1727185580"
		nonce     = "nonce"
		encrypt   = "encrypt"
	)
	sig := Sign(token, timestamp, nonce, encrypt)
	assert.True(t, Verify(sig, token, timestamp, nonce, encrypt))

	mutate := func(s string) string {
		b := []byte(s)
		b[0] ^= 0x01
		return string(b)
	}

	tests := []struct {
		name                                    string
		sig, token, timestamp, nonce, encrypted string
	}{
		{"signature", mutate(sig), token, timestamp, nonce, encrypt},
		{"token", sig, mutate(token), timestamp, nonce, encrypt},
		{"timestamp", sig, token, mutate(timestamp), nonce, encrypt},
		{"nonce", sig, token, timestamp, mutate(nonce), encrypt},
		{"encrypted", sig, token, timestamp, nonce, mutate(encrypt)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, Verify(tt.sig, tt.token, tt.timestamp, tt.nonce, tt.encrypted))
		})
	}
}

func TestVerifyThreeVersusFourInputs(t *testing.T) {
	three := Sign("token", "1727185580", "nonce")
	four := Sign("token", "1727185580", "nonce", "encrypt")

	assert.NotEqual(t, three, four)
	assert.True(t, Verify(three, "token", "1727185580", "nonce"))
	assert.False(t, Verify(three, "token", "1727185580", "nonce", "encrypt"))
	assert.False(t, Verify("", "token", "1727185580", "nonce"))
	assert.False(t, Verify("not-hex", "token", "1727185580", "nonce"))
}
