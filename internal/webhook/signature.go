package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signatureAlgorithm = "sha256"

// Verify reports whether signatureHeader ("sha256=<hex>") is the HMAC-SHA256
// of rawBody under secret. It fails closed on an empty secret and on any
// malformed header.
func Verify(rawBody []byte, signatureHeader, secret string) bool {
	if secret == "" {
		return false
	}

	algorithm, digestHex, ok := strings.Cut(signatureHeader, "=")
	if !ok || algorithm != signatureAlgorithm {
		return false
	}

	// Decode hex to bytes so that comparison is on raw digests
	expected, err := hex.DecodeString(digestHex)
	if err != nil || len(expected) != sha256.Size {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return hmac.Equal(expected, mac.Sum(nil))
}

// Sign returns the signature header value for rawBody.
func Sign(rawBody []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return signatureAlgorithm + "=" + hex.EncodeToString(mac.Sum(nil))
}
