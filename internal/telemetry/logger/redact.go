package logger

import (
	"log/slog"
	"strings"
)

// Key fragments whose values are never logged.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"authorization",
	"bearer",
	"cookie",
	"encryption_key",
}

const (
	redactedValue = "***REDACTED***"
	bearerPrefix  = "Bearer "
)

// redactSensitive masks credential-looking values and fully redacts values
// stored under sensitive keys.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()
		if IsSensitiveValue(strVal) {
			return slog.String(a.Key, RedactString(strVal))
		}

		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// maskValue keeps the first and last 4 characters of value.
func maskValue(value string) string {
	if len(value) <= 12 {
		return "***"
	}
	return value[:4] + "..." + value[len(value)-4:]
}

// RedactString masks a bearer header or JWT and returns other values
// unchanged.
func RedactString(value string) string {
	if rest, ok := strings.CutPrefix(value, bearerPrefix); ok {
		return bearerPrefix + maskValue(rest)
	}
	if looksLikeJWT(value) {
		return maskValue(value)
	}
	return value
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// IsSensitiveValue reports whether value is a bearer header or a JWT.
func IsSensitiveValue(value string) bool {
	return strings.HasPrefix(value, bearerPrefix) || looksLikeJWT(value)
}

// looksLikeJWT matches compact JWS: a base64url JSON header and three
// dot-separated segments.
func looksLikeJWT(value string) bool {
	return strings.HasPrefix(value, "eyJ") && strings.Count(value, ".") == 2
}
