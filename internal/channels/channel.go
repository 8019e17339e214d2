// Package channels holds pieces shared by messaging transports.
package channels

import "strings"

// Allowlist restricts which senders a channel serves.
// An empty list allows everyone.
type Allowlist struct {
	entries []string
}

func NewAllowlist(entries []string) *Allowlist {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return &Allowlist{entries: out}
}

// Empty reports whether no restriction is configured.
func (a *Allowlist) Empty() bool { return len(a.entries) == 0 }

// IsAllowed checks if a sender is permitted.
// Supports compound senderID format: "123456|username".
// Entries may be an ID, a username (with or without "@"), or "id|username".
func (a *Allowlist) IsAllowed(senderID string) bool {
	if len(a.entries) == 0 {
		return true
	}

	idPart := senderID
	userPart := ""
	if idx := strings.Index(senderID, "|"); idx > 0 {
		idPart = senderID[:idx]
		userPart = senderID[idx+1:]
	}

	for _, allowed := range a.entries {
		trimmed := strings.TrimPrefix(allowed, "@")
		allowedID := trimmed
		allowedUser := ""
		if idx := strings.Index(trimmed, "|"); idx > 0 {
			allowedID = trimmed[:idx]
			allowedUser = trimmed[idx+1:]
		}

		if senderID == allowed ||
			idPart == trimmed ||
			idPart == allowedID ||
			(userPart != "" && (strings.EqualFold(userPart, trimmed) || strings.EqualFold(userPart, allowedUser))) {
			return true
		}
	}
	return false
}

// Truncate shortens a string to maxLen runes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
