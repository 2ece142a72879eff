package core

import (
	"errors"
	"strings"
	"time"
)

const (
	IncomeOther    IncomeType = "OTHER"
	IncomeBusiness IncomeType = "BUSINESS"

	PreTax   AmountType = "pre-tax"
	AfterTax AmountType = "after-tax"
)

// DateLayout is the wire format of payment dates.
const DateLayout = "2006-01-02"

type (
	IncomeType string
	AmountType string

	// IncomeCode is a classification code valid for one IncomeType.
	IncomeCode struct {
		Code  string
		Label string
	}

	// IncomeEarner is one payee entered in a declaration.
	IncomeEarner struct {
		ID             string     `json:"id"`
		Name           string     `json:"name"`
		ResidentNumber string     `json:"residentNumber"`
		Phone          string     `json:"phone"`
		IncomeType     IncomeType `json:"incomeType"`
		IncomeCode     string     `json:"incomeCode"`
		PaymentDate    string     `json:"paymentDate"`
		AmountType     AmountType `json:"amountType"`
		Amount         int64      `json:"amount"`
	}
)

var (
	ErrEmptyName           = errors.New("empty name")
	ErrEmptyResidentNumber = errors.New("empty resident number")
	ErrEmptyPhone          = errors.New("empty phone")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidPhone        = errors.New("invalid phone number")
)

var incomeCodes = map[IncomeType][]IncomeCode{
	IncomeOther: {
		{Code: "76", Label: "76(고용관계 없는 일시적 유상 용역)"},
	},
	IncomeBusiness: {
		{Code: "940909", Label: "940909(기타 자영업)"},
		{Code: "940100", Label: "940100(저술가 및 작곡가)"},
		{Code: "940903", Label: "940903(연예인)"},
		{Code: "940906", Label: "940906(프리랜서)"},
	},
}

// IncomeTypes lists the selectable income types in display order.
func IncomeTypes() []IncomeType {
	return []IncomeType{IncomeOther, IncomeBusiness}
}

func (t IncomeType) IsValid() bool {
	_, ok := incomeCodes[t]
	return ok
}

// Label returns the Korean display name.
func (t IncomeType) Label() string {
	switch t {
	case IncomeOther:
		return "기타소득"
	case IncomeBusiness:
		return "사업소득"
	default:
		return string(t)
	}
}

// Codes returns the income codes selectable for t.
func (t IncomeType) Codes() []IncomeCode {
	return append([]IncomeCode(nil), incomeCodes[t]...)
}

// DefaultCode is the code preselected when t is chosen. Business income
// has no default and must be picked explicitly.
func (t IncomeType) DefaultCode() string {
	if t == IncomeOther {
		return incomeCodes[IncomeOther][0].Code
	}
	return ""
}

// HasCode reports whether code belongs to t.
func (t IncomeType) HasCode(code string) bool {
	for _, c := range incomeCodes[t] {
		if c.Code == code {
			return true
		}
	}
	return false
}

// CodeLabel returns the display label of code, or code itself when unknown.
func (t IncomeType) CodeLabel(code string) string {
	for _, c := range incomeCodes[t] {
		if c.Code == code {
			return c.Label
		}
	}
	return code
}

func (a AmountType) IsValid() bool {
	return a == PreTax || a == AfterTax
}

func (a AmountType) Label() string {
	if a == AfterTax {
		return "세후"
	}
	return "세전"
}

// NewEarner returns a blank earner with the form defaults: other income,
// its default code, pre-tax amount and the first day of now's month.
func NewEarner(id string, now time.Time) IncomeEarner {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return IncomeEarner{
		ID:          id,
		IncomeType:  IncomeOther,
		IncomeCode:  IncomeOther.DefaultCode(),
		PaymentDate: first.Format(DateLayout),
		AmountType:  PreTax,
	}
}

// WithIncomeType switches the income type, resetting the code to the
// type's default.
func (e IncomeEarner) WithIncomeType(t IncomeType) IncomeEarner {
	if e.IncomeType == t {
		return e
	}
	e.IncomeType = t
	e.IncomeCode = t.DefaultCode()
	return e
}

// Validate checks the fields required before an earner can be committed.
func (e IncomeEarner) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(e.ResidentNumber) == "" {
		return ErrEmptyResidentNumber
	}
	if strings.TrimSpace(e.Phone) == "" {
		return ErrEmptyPhone
	}
	if e.Amount <= 0 || e.Amount > MaxAmount {
		return ErrInvalidAmount
	}
	return nil
}

// IsComplete reports whether e passes Validate.
func (e IncomeEarner) IsComplete() bool {
	return e.Validate() == nil
}

// PaymentTime parses PaymentDate; the zero time is returned when unset or malformed.
func (e IncomeEarner) PaymentTime() time.Time {
	t, err := time.Parse(DateLayout, e.PaymentDate)
	if err != nil {
		return time.Time{}
	}
	return t
}
