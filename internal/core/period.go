package core

import (
	"errors"
	"fmt"
	"time"
)

// FilingDueDay is the day of the following month on which withholding
// tax for a period is due.
const FilingDueDay = 10

var ErrInvalidPeriod = errors.New("invalid period")

// Period is an attribution month (귀속 연월).
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func NewPeriod(year, month int) (Period, error) {
	p := Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

func (p Period) Validate() error {
	if p.Year < 1 || p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: %d-%d", ErrInvalidPeriod, p.Year, p.Month)
	}
	return nil
}

// Next returns the following month, rolling December into January.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Year: p.Year + 1, Month: 1}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// Prev returns the preceding month.
func (p Period) Prev() Period {
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// DueDate is the submission deadline: the 10th of the following month.
func (p Period) DueDate() time.Time {
	n := p.Next()
	return time.Date(n.Year, time.Month(n.Month), FilingDueDay, 0, 0, 0, 0, time.UTC)
}

// Key is the month-status map key, "year-month" without padding.
func (p Period) Key() string {
	return fmt.Sprintf("%d-%d", p.Year, p.Month)
}

// Label renders "2025년 12월".
func (p Period) Label() string {
	return fmt.Sprintf("%d년 %d월", p.Year, p.Month)
}

func (p Period) Before(o Period) bool {
	return p.Year < o.Year || (p.Year == o.Year && p.Month < o.Month)
}

// Window returns the n periods ending at p, oldest first.
func (p Period) Window(n int) []Period {
	out := make([]Period, n)
	cur := p
	for i := n - 1; i >= 0; i-- {
		out[i] = cur
		cur = cur.Prev()
	}
	return out
}
