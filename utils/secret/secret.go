package secret

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

const maskRune = "•"

// Mask 遮蔽 API Key 供前端顯示。
// 長度 <= 8 時固定回 8 個遮蔽字元，避免洩漏長度；其餘顯示前 4 後 4，中段一律 4 個遮蔽字元。
func Mask(key string) string {
	if len(key) <= 8 {
		return strings.Repeat(maskRune, 8)
	}
	return key[:4] + strings.Repeat(maskRune, 4) + key[len(key)-4:]
}

// Fingerprint 以 HMAC-SHA256 產生 secret 的短指紋，供 log / trace 辨識同一把 key。
// 指紋不可逆，且絕不可與 Mask 混用輸出完整 key。
func Fingerprint(key, serverSecret string) string {
	mac := hmac.New(sha256.New, []byte(serverSecret))
	mac.Write([]byte(key))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))[:16]
}
