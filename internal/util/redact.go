package util

import (
	"regexp"
	"strings"
)

var (
	// Matches "Bearer <token>" (JWTs and opaque tokens). Resend and Gemini errors can echo
	// the authorization header back.
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// Common key=value formats that sometimes leak in error strings.
	apiKeyKVRe = regexp.MustCompile(`(?i)\b(api[_-]?key|gemini[_-]?api[_-]?key|password|passwd)\b\s*[:=]\s*[^\s"']+`)

	// SMTP AUTH exchanges carry base64 credentials on the same line as the verb.
	smtpAuthRe = regexp.MustCompile(`(?i)\bAUTH\s+(PLAIN|LOGIN|XOAUTH2)\s+[A-Za-z0-9+/=]+`)
)

// RedactSecrets removes obvious secret-bearing substrings from error/log strings.
//
// This is intentionally conservative: it should be safe to call on any message,
// including user-provided inputs and upstream error strings.
func RedactSecrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = bearerTokenRe.ReplaceAllString(out, "Bearer <redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	out = smtpAuthRe.ReplaceAllString(out, "AUTH $1 <redacted>")
	return strings.TrimSpace(out)
}

// RedactValue replaces every occurrence of a known secret value in s. Values shorter
// than four characters are left alone to avoid mangling ordinary text.
func RedactValue(s, secret string) string {
	secret = strings.TrimSpace(secret)
	if len(secret) < 4 || s == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "<redacted>")
}
