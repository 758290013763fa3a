package assetrail

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes hex(HMAC-SHA256(secret, appID ‖ timestamp ‖ body)). Outbound
// requests and inbound webhooks share the same canonical form.
func Sign(appID, secret, timestamp string, body []byte) string {
	return hex.EncodeToString(signature(appID, secret, timestamp, body))
}

// Verify checks sig against the expected signature in constant time.
func Verify(appID, secret, timestamp string, body []byte, sig string) bool {
	if sig == "" || timestamp == "" {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	return hmac.Equal(got, signature(appID, secret, timestamp, body))
}

func signature(appID, secret, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(appID))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return mac.Sum(nil)
}
