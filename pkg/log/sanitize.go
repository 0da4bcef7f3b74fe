package log

import (
	"regexp"
	"strings"
)

// sensitiveKeywords 匹配日志字段名（小写）
var sensitiveKeywords = []string{
	"password", "passwd", "pwd",
	"api_key", "apikey", "api-key",
	"token", "secret", "authorization",
	"credential", "private_key", "bearer",
}

// dsnKeys 是可能携带 MySQL DSN 的字段名
var dsnKeys = []string{"dsn", "source"}

// sealedPrefix matches pkg/crypto.SealedPrefix; sealed values never reach logs in clear.
const sealedPrefix = "enc:"

var (
	// user:password@tcp(host)/db
	dsnPasswordPattern = regexp.MustCompile(`^([^:@/]+):([^@]*)@`)
	// "Bearer xxx" inside free text such as upstream error messages
	bearerPattern = regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-._~+/]+=*`)
)

// SanitizeField masks value when key names a secret. Values of other keys only
// get embedded bearer tokens masked.
func SanitizeField(key, value string) string {
	if value == "" {
		return value
	}

	lowerKey := strings.ToLower(key)

	for _, k := range dsnKeys {
		if strings.Contains(lowerKey, k) {
			return sanitizeDSN(value)
		}
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerKey, keyword) {
			if strings.HasPrefix(value, sealedPrefix) {
				return sealedPrefix + "***"
			}
			return sanitizeToken(strings.TrimPrefix(value, "Bearer "))
		}
	}

	return bearerPattern.ReplaceAllString(value, "${1}***")
}

// sanitizeToken keeps the first and last 4 characters of long values.
func sanitizeToken(value string) string {
	if len(value) <= 8 {
		if len(value) <= 2 {
			return strings.Repeat("*", len(value))
		}
		return string(value[0]) + strings.Repeat("*", len(value)-2) + string(value[len(value)-1])
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// sanitizeDSN hides the password of a user:password@... DSN and keeps the address.
func sanitizeDSN(value string) string {
	if strings.HasPrefix(value, sealedPrefix) {
		return sealedPrefix + "***"
	}
	if !dsnPasswordPattern.MatchString(value) {
		return value
	}
	return dsnPasswordPattern.ReplaceAllString(value, "${1}:***@")
}
