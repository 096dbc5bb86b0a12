package viberbot

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader is the request header carrying the body signature.
const SignatureHeader = "X-Viber-Content-Signature"

// SignatureQueryParam overrides SignatureHeader when present and non-empty.
const SignatureQueryParam = "sig"

// Sign returns the lowercase hex HMAC-SHA256 of body keyed by secret. This is the
// form the platform uses for webhook signatures.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// IsValid reports whether signature is the signature of body under secret.
//
// The signature is compared as opaque text in constant time. A mismatch is a
// normal false result, not an error.
func IsValid(signature string, body []byte, secret string) bool {
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
