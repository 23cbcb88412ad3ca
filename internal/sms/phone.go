package sms

import "strings"

// NormalizeMSISDN canonicalizes a phone number to digits-only
// countrycode+subscriber form. Accepted inputs are the local form
// (0XXXXXXXXX), the bare subscriber, or an already-international number with
// optional "+" or "00" prefix. ok=false means the number is unusable and the
// send must be recorded as failed.
func NormalizeMSISDN(value, countryCode string) (string, bool) {
	digits := sanitizePhone(value)
	if digits == "" || countryCode == "" {
		return "", false
	}

	if strings.HasPrefix(digits, "00") {
		digits = digits[2:]
	}

	switch {
	case strings.HasPrefix(digits, countryCode):
		// Already international.
	case strings.HasPrefix(digits, "0"):
		digits = countryCode + digits[1:]
	default:
		digits = countryCode + digits
	}

	subscriber := digits[len(countryCode):]
	if len(subscriber) < 8 || len(subscriber) > 12 {
		return "", false
	}
	return digits, true
}

func sanitizePhone(value string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(value) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
