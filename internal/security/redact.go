// Package security provides credential masking and watchlist input validation.
package security

import (
	"regexp"
	"strings"
)

// sensitivePatterns match credentials the price providers and Telegram carry
// inside request URLs, which net/http echoes back in *url.Error messages.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)((?:api[_-]?key|apikey|api[_-]?token|access[_-]?token|token)=)([^&\s"']+)`),
	regexp.MustCompile(`(/bot)([0-9]+:[A-Za-z0-9_-]+)`),
}

// MaskCredential masks a credential, keeping a short prefix and suffix when
// the value is long enough to stay unguessable.
func MaskCredential(value string) string {
	if len(value) == 0 {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	if len(value) <= 8 {
		return value[:2] + strings.Repeat("*", len(value)-2)
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// Redact masks every credential found in s.
func Redact(s string) string {
	for _, pattern := range sensitivePatterns {
		s = pattern.ReplaceAllStringFunc(s, func(match string) string {
			parts := pattern.FindStringSubmatch(match)
			if len(parts) != 3 {
				return match
			}
			return parts[1] + MaskCredential(parts[2])
		})
	}
	return s
}

// RedactError returns err's message with credentials masked.
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return Redact(err.Error())
}
