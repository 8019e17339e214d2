package providers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"
)

// ErrorKind is the coarse class of a provider failure.
type ErrorKind string

const (
	KindQuotaExceeded     ErrorKind = "quota-exceeded"
	KindInvalidCredential ErrorKind = "invalid-credential"
	KindNetworkBlocked    ErrorKind = "network-or-region-blocked"
	KindNotConfigured     ErrorKind = "not-configured"
	KindUnclassified      ErrorKind = "unclassified"
)

const (
	msgQuota         = "Закончился лимит по ключу. Groq: console.groq.com; OpenAI: platform.openai.com."
	msgInvalidKey    = "Неверный или недействительный API-ключ. Проверь ключ в .env."
	msgBlocked       = "Доступ к API заблокирован (сеть или регион). Попробуй другой ключ или VPN."
	msgCheckKeys     = "Проверь ключи в .env."
	msgNotConfigured = "Не задан ни один ключ нейросети. Добавь в .env: GROQ_API_KEY (console.groq.com) или OPENAI_API_KEY (platform.openai.com)."

	maxDetailRunes = 200
)

// Classify maps an error to its kind. A FallbackError is classified by its
// last real failure.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnclassified
	}
	var fe *FallbackError
	if errors.As(err, &fe) {
		last := fe.LastFailure()
		if last == nil {
			return KindUnclassified
		}
		err = last
	}
	if errors.Is(err, ErrNotConfigured) {
		return KindNotConfigured
	}

	var he *HTTPError
	if errors.As(err, &he) {
		switch he.Status {
		case http.StatusTooManyRequests, http.StatusPaymentRequired:
			return KindQuotaExceeded
		case http.StatusUnauthorized:
			return KindInvalidCredential
		case http.StatusForbidden:
			if mentionsRegion(strings.ToLower(he.Body)) {
				return KindNetworkBlocked
			}
		}
		return KindUnclassified
	}

	var ne net.Error
	if errors.As(err, &ne) || errors.Is(err, context.DeadlineExceeded) {
		return KindNetworkBlocked
	}

	// Errors without a status, e.g. from the Gemini SDK, are matched by text.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "quota"):
		return KindQuotaExceeded
	case strings.Contains(msg, "401") || strings.Contains(msg, "invalid api key") ||
		strings.Contains(msg, "invalid_api_key") || strings.Contains(msg, "api_key_invalid"):
		return KindInvalidCredential
	case strings.Contains(msg, "network") || mentionsRegion(msg):
		return KindNetworkBlocked
	}
	return KindUnclassified
}

func mentionsRegion(msg string) bool {
	for _, k := range []string{"access denied", "unsupported_country", "country", "region", "location is not supported"} {
		if strings.Contains(msg, k) {
			return true
		}
	}
	return false
}

// UserMessage returns a short, actionable Russian text for err.
func UserMessage(err error) string {
	switch Classify(err) {
	case KindQuotaExceeded:
		return msgQuota
	case KindInvalidCredential:
		return msgInvalidKey
	case KindNetworkBlocked:
		return msgBlocked
	case KindNotConfigured:
		return msgNotConfigured
	}

	var fe *FallbackError
	if errors.As(err, &fe) {
		if err = fe.LastFailure(); err == nil {
			return msgCheckKeys
		}
	}
	if err == nil {
		return msgCheckKeys
	}
	return truncateRunes(strings.TrimSpace(err.Error()), maxDetailRunes)
}

// truncateRunes cuts s to max runes, replacing the tail with "..." when cut.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
