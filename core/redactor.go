package core

import (
	"sort"
	"strings"

	"github.com/SamuelRCrider/legal-auditor/utils"
)

// WithheldPlaceholder stands in for raw values that are never carried forward
const WithheldPlaceholder = "[REDACTED]"

// Redact produces the display-safe form of a raw value for the given kind
func Redact(kind Kind, raw string) string {
	switch kind {
	case KindEmail:
		return redactEmail(raw)
	case KindSSN:
		return "XXX-XX-" + lastDigits(raw, 4)
	case KindPhone:
		return maskDigitsExceptLast(raw, 4)
	case KindCreditCard:
		return "**** **** **** " + lastDigits(raw, 4)
	case KindDateOfBirth:
		return "**/**/****"
	case KindIPAddress:
		return "***.***.***.***"
	default:
		return "[REDACTED:" + string(kind) + "]"
	}
}

// WithheldValue reports whether the raw value of a kind must be replaced by
// a placeholder in analysis output
func WithheldValue(kind Kind) (string, bool) {
	switch kind {
	case KindSSN, KindCreditCard:
		return WithheldPlaceholder, true
	}
	return "", false
}

// redactEmail keeps the first two characters of the local part
func redactEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 2 {
		return email
	}
	return email[:2] + strings.Repeat("*", at-2) + email[at:]
}

func lastDigits(s string, n int) string {
	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			digits = append(digits, s[i])
		}
	}
	if len(digits) <= n {
		return string(digits)
	}
	return string(digits[len(digits)-n:])
}

// maskDigitsExceptLast replaces every digit but the trailing n with '*',
// leaving separators in place
func maskDigitsExceptLast(s string, n int) string {
	total := 0
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			total++
		}
	}

	out := []byte(s)
	seen := 0
	for i := 0; i < len(out); i++ {
		if !isDigit(out[i]) {
			continue
		}
		if seen < total-n {
			out[i] = '*'
		}
		seen++
	}
	return string(out)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// ApplyRedactions rewrites text, replacing each match span with its redacted
// form. Matches are applied in position order; a match overlapping an
// already replaced span is skipped.
func ApplyRedactions(text string, matches []utils.MatchResult) string {
	sorted := make([]utils.MatchResult, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].StartIndex == sorted[j].StartIndex {
			return sorted[i].Len() > sorted[j].Len()
		}
		return sorted[i].StartIndex < sorted[j].StartIndex
	})

	var builder strings.Builder
	lastIndex := 0

	for _, match := range sorted {
		if match.StartIndex < lastIndex || match.EndIndex > len(text) {
			continue
		}
		builder.WriteString(text[lastIndex:match.StartIndex])

		redacted := match.Redacted
		if redacted == "" {
			redacted = Redact(Kind(match.Kind), text[match.StartIndex:match.EndIndex])
		}
		builder.WriteString(redacted)

		lastIndex = match.EndIndex
	}

	if lastIndex < len(text) {
		builder.WriteString(text[lastIndex:])
	}

	return builder.String()
}
