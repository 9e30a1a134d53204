// Package session tracks which WhatsApp senders have supplied valid client
// credentials and for how long that verification holds.
package session

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// DefaultTTL matches the validity window promised in the verification reply.
const DefaultTTL = 24 * time.Hour

// Store keeps per-sender verification state.
type Store interface {
	IsVerified(ctx context.Context, sender string) (bool, error)
	MarkVerified(ctx context.Context, sender string) error
	Revoke(ctx context.Context, sender string) error
}

var nonDigitRe = regexp.MustCompile(`\D`)

// SenderKey normalizes a provider address ("whatsapp:+1 (555) 010-0000") to
// the +digits form. Addresses without digits are returned trimmed and lowercased.
func SenderKey(sender string) string {
	s := strings.TrimSpace(sender)
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	digits := nonDigitRe.ReplaceAllString(s, "")
	if digits == "" {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return "+" + digits
}
