// Package signature implements the HMAC-SHA256 request signature shared by
// outbound Sheepy API calls and inbound Sheepy notifications.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Sign returns the lowercase hex HMAC-SHA256 of
// timestamp + upper(method) + url + body, keyed by key.
//
// An empty key is accepted; rejecting it is left to configuration.
func Sign(timestamp int64, method, url, body, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(CanonicalString(timestamp, method, url, body)))
	return hex.EncodeToString(mac.Sum(nil))
}

// CanonicalString builds the signed message with no separators.
func CanonicalString(timestamp int64, method, url, body string) string {
	var b strings.Builder
	b.Grow(20 + len(method) + len(url) + len(body))
	b.WriteString(strconv.FormatInt(timestamp, 10))
	b.WriteString(strings.ToUpper(method))
	b.WriteString(url)
	b.WriteString(body)
	return b.String()
}

// Equal compares two hex signatures in constant time. An empty received
// signature never matches.
func Equal(expected, received string) bool {
	if received == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(received))
}
