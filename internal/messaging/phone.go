package messaging

import (
	"regexp"
	"strings"
)

const whatsappPrefix = "whatsapp:"

var phoneDigitsRe = regexp.MustCompile(`\d+`)

// NormalizeE164 ensures the value begins with + and only contains digits afterward.
// A leading whatsapp: channel prefix is ignored.
func NormalizeE164(value string) string {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(strings.ToLower(value), whatsappPrefix)
	if value == "" {
		return ""
	}
	digits := sanitizePhone(value)
	if digits == "" {
		return ""
	}
	return "+" + digits
}

// WhatsAppAddress returns value in Twilio's whatsapp:+E164 address form.
func WhatsAppAddress(value string) string {
	e164 := NormalizeE164(value)
	if e164 == "" {
		return ""
	}
	return whatsappPrefix + e164
}

func sanitizePhone(value string) string {
	if value == "" {
		return ""
	}
	return strings.Join(phoneDigitsRe.FindAllString(value, -1), "")
}
