package wechat

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

// Sign 计算消息签名
// SHA1(sort(token, timestamp, nonce[, encrypted])) 的小写十六进制
func Sign(token, timestamp, nonce string, encrypted ...string) string {
	params := make([]string, 0, 4)
	params = append(params, token, timestamp, nonce)
	if len(encrypted) > 0 {
		params = append(params, encrypted[0])
	}
	sort.Strings(params)

	hash := sha1.Sum([]byte(strings.Join(params, "")))
	return hex.EncodeToString(hash[:])
}

// Verify 校验签名，比较过程为常量时间
func Verify(signature, token, timestamp, nonce string, encrypted ...string) bool {
	expected := Sign(token, timestamp, nonce, encrypted...)
	given := strings.ToLower(signature)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(given)) == 1
}
