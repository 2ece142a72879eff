// Package core provides the withholding-tax domain: earners, periods,
// business schedules, the tax arithmetic and display formatting.
//
// This file contains parsing and formatting of won amounts.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// MaxAmount caps a single earner's amount (1,000조 원). MaxTotalAmount caps
// the sum of a declaration; both keep the tax arithmetic inside int64.
const (
	MaxAmount      int64 = 1_000_000_000_000_000
	MaxTotalAmount int64 = 1_000 * MaxAmount
)

// ParseWon converts user input such as "1,000,000" or "1 000 000원" into an
// amount. Only positive whole amounts up to MaxAmount are accepted.
func ParseWon(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "원")
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == ',' || unicode.IsSpace(r):
			continue
		case unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			return 0, ErrInvalidAmount
		}
	}
	if b.Len() == 0 {
		return 0, ErrInvalidAmount
	}
	v, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil || v <= 0 || v > MaxAmount {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// FormatWon renders an amount with ko-KR thousands separators, e.g. 1,000,000.
func FormatWon(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
