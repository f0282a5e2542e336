// Package pipeline provides the two generic hook-based pipelines shared by
// every synchronous approval endpoint and every asynchronous webhook
// endpoint: the route-specific parts arrive as a struct of function fields,
// the pipeline itself (signature check, hard rules, context fetch, LLM call,
// response shaping, audit write) runs exactly once per request type.
package pipeline

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const hmacSHA256Prefix = "sha256="

// VerifyHMACSHA256 checks a "sha256=<hex>" signature header (the shape
// Instagram's X-Hub-Signature-256 and most webhook providers use) against
// the raw request body, compared in constant time via hmac.Equal. An empty
// secret disables verification and always succeeds — callers running
// without a configured secret should log that explicitly.
func VerifyHMACSHA256(secret string, body []byte, signatureHeader string) bool {
	if secret == "" {
		return true
	}
	if !strings.HasPrefix(signatureHeader, hmacSHA256Prefix) {
		return false
	}
	expected := signatureHeader[len(hmacSHA256Prefix):]

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	computed := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(computed), []byte(expected))
}
