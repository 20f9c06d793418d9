package redact

import (
	"regexp"
	"strings"
	"sync/atomic"
)

var enabled atomic.Bool

var (
	emailRe = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phoneRe = regexp.MustCompile(`\b\+?\d[\d\s\-]{7,}\d\b`)
)

// SetEnabled toggles PII redaction.
func SetEnabled(v bool) {
	enabled.Store(v)
}

// Enabled returns true when redaction is active.
func Enabled() bool {
	return enabled.Load()
}

// Text redacts emails and phone numbers when enabled.
func Text(in string) string {
	if !enabled.Load() || strings.TrimSpace(in) == "" {
		return in
	}
	out := emailRe.ReplaceAllString(in, "[REDACTED_EMAIL]")
	out = phoneRe.ReplaceAllString(out, "[REDACTED_PHONE]")
	return out
}

// Phone masks all but the last four digits of a phone number when enabled.
// Non-digit characters are preserved so "+15551234567" becomes "+*******4567".
func Phone(in string) string {
	if !enabled.Load() || strings.TrimSpace(in) == "" {
		return in
	}
	digits := 0
	for _, r := range in {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	keep := 4
	if digits <= keep {
		return strings.Repeat("*", len(in))
	}
	seen := 0
	out := []rune(in)
	for i, r := range out {
		if r < '0' || r > '9' {
			continue
		}
		seen++
		if seen <= digits-keep {
			out[i] = '*'
		}
	}
	return string(out)
}
