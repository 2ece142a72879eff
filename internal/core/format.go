package core

import (
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

// phoneRegion is the default region for numbers entered without a country code.
const phoneRegion = "KR"

// Digits strips everything but ASCII digits.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// FormatBizNumber renders a 10-digit registration number as "000 00 00000".
// Other inputs are returned unchanged.
func FormatBizNumber(s string) string {
	d := Digits(s)
	if len(d) != 10 {
		return s
	}
	return d[:3] + " " + d[3:5] + " " + d[5:]
}

// NormalizeBizNumber removes spaces and dashes from a registration number.
func NormalizeBizNumber(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return r
	}, s)
}

// ValidBizNumber reports whether s holds exactly ten digits once normalized.
func ValidBizNumber(s string) bool {
	n := NormalizeBizNumber(s)
	return len(n) == 10 && Digits(n) == n
}

// FormatResidentNumber renders a 13-digit number as "000000-0000000".
func FormatResidentNumber(s string) string {
	d := Digits(s)
	if len(d) != 13 {
		return s
	}
	return d[:6] + "-" + d[6:]
}

// MaskResidentNumber hides everything after the first back digit.
func MaskResidentNumber(s string) string {
	d := Digits(s)
	if len(d) != 13 {
		return s
	}
	return d[:6] + "-" + d[6:7] + "******"
}

// ParsePhone validates a Korean phone number and returns its national
// digits. Numbers with an explicit +country prefix are accepted as well.
func ParsePhone(s string) (string, error) {
	num, err := phonenumbers.Parse(strings.TrimSpace(s), phoneRegion)
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return Digits(phonenumbers.Format(num, phonenumbers.NATIONAL)), nil
}

// FormatPhone renders a phone number for display, e.g. "010-1234-5678".
// Unparseable input falls back to a 3-4-4 split of its digits.
func FormatPhone(s string) string {
	if num, err := phonenumbers.Parse(s, phoneRegion); err == nil && phonenumbers.IsValidNumber(num) {
		return phonenumbers.Format(num, phonenumbers.NATIONAL)
	}
	d := Digits(s)
	if len(d) != 11 {
		return s
	}
	return d[:3] + "-" + d[3:7] + "-" + d[7:]
}
