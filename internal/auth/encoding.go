package auth

import (
	"encoding/base64"
	"strings"
)

// Base64URLEncode encodes data with the URL-safe alphabet and strips padding,
// the encoding used by compact tokens.
func Base64URLEncode(data []byte) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(data), "=")
}

// Base64URLDecode reverses Base64URLEncode. Input is re-padded to a multiple
// of four before decoding, so padded and unpadded forms are both accepted.
func Base64URLDecode(s string) ([]byte, error) {
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	return base64.URLEncoding.DecodeString(s)
}
