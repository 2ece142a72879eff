// Package http serves the withholding-tax web front end.
//
// This file parses and sanitises request parameters: periods, path ids and
// the earner form.

package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wonchon/internal/core"
)

// ParsePeriodParams reads year and month, falling back to now's period for
// missing or malformed values. An out-of-range month falls back as well.
func ParsePeriodParams(query url.Values, now time.Time) core.Period {
	p := core.PeriodOf(now)

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			p.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			p.Month = m
		}
	}
	if p.Validate() != nil {
		return core.PeriodOf(now)
	}
	return p
}

// ParseMonthFilter reads a "YYYY-MM" filter value. ok is false when the
// value is empty or malformed.
func ParseMonthFilter(v string) (core.Period, bool) {
	t, err := time.Parse("2006-01", strings.TrimSpace(v))
	if err != nil {
		return core.Period{}, false
	}
	return core.PeriodOf(t), true
}

// PathInt64 parses a positive integer path value.
func PathInt64(r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// ParseEarnerForm overlays the posted earner fields on base. Fields absent
// from the form keep their base value; an unparsable amount clears it so the
// form reads as incomplete.
func ParseEarnerForm(form url.Values, base core.IncomeEarner) core.IncomeEarner {
	e := base
	str := func(key string, dst *string) {
		if _, ok := form[key]; ok {
			*dst = sanitizeInput(form.Get(key))
		}
	}

	str("name", &e.Name)
	str("residentNumber", &e.ResidentNumber)
	str("phone", &e.Phone)
	str("paymentDate", &e.PaymentDate)

	// The type goes first: switching it resets the code.
	if _, ok := form["incomeType"]; ok {
		if t := core.IncomeType(sanitizeInput(form.Get("incomeType"))); t.IsValid() {
			e = e.WithIncomeType(t)
		}
	}
	str("incomeCode", &e.IncomeCode)
	if !e.IncomeType.HasCode(e.IncomeCode) {
		e.IncomeCode = e.IncomeType.DefaultCode()
	}
	if _, ok := form["amountType"]; ok {
		if a := core.AmountType(sanitizeInput(form.Get("amountType"))); a.IsValid() {
			e.AmountType = a
		}
	}
	if _, ok := form["amount"]; ok {
		amount, err := core.ParseWon(form.Get("amount"))
		if err != nil {
			amount = 0
		}
		e.Amount = amount
	}
	if _, err := time.Parse(core.DateLayout, e.PaymentDate); err != nil {
		e.PaymentDate = base.PaymentDate
	}
	return e
}

// ParseMemberForm reads the filer profile fields.
func ParseMemberForm(form url.Values) core.Member {
	return core.Member{
		Name:          sanitizeInput(form.Get("name")),
		PhoneNumber:   sanitizeInput(form.Get("phoneNumber")),
		HometaxUserID: sanitizeInput(form.Get("hometaxUserId")),
		BirthDate:     sanitizeInput(form.Get("birthDate")),
		RepresentName: sanitizeInput(form.Get("representName")),
	}
}

// ParseFormOrFail parses the request form and returns an error response on
// failure. Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("요청 형식이 올바르지 않습니다.")
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
