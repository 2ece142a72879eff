package core

// Withholding rates expressed as integer ratios so rounding stays exact.
const (
	nationalRateNum = 3 // 3%
	nationalRateDen = 100
	localRateNum    = 1 // 10% of national tax
	localRateDen    = 10
	surchargeNum    = 3 // 3% of national tax when filed late
	surchargeDen    = 100
)

// TaxCalculation is derived from an earner list; it is never stored.
type TaxCalculation struct {
	NationalTax int64  `json:"nationalTax"`
	LocalTax    int64  `json:"localTax"`
	Surcharge   *int64 `json:"surcharge,omitempty"`
	TotalTax    int64  `json:"totalTax"`
}

// EarnerTaxes is the per-earner review breakdown.
type EarnerTaxes struct {
	NationalTax int64 `json:"nationalTax"`
	LocalTax    int64 `json:"localTax"`
}

// CalculateTax totals the withholding for earners. Amounts are summed as
// pre-tax regardless of each earner's AmountType. The editor keeps the sum
// within MaxTotalAmount.
func CalculateTax(earners []IncomeEarner, isOverdue bool) TaxCalculation {
	total := TotalAmount(earners)
	national := roundRatio(total, nationalRateNum, nationalRateDen)
	local := roundRatio(national, localRateNum, localRateDen)
	calc := TaxCalculation{NationalTax: national, LocalTax: local}
	if isOverdue {
		s := roundRatio(national, surchargeNum, surchargeDen)
		calc.Surcharge = &s
	}
	calc.TotalTax = national + local + calc.SurchargeOrZero()
	return calc
}

// EarnerTax applies the same rates to a single earner, rounded on its own.
// The per-earner figures need not add up to CalculateTax's totals.
func EarnerTax(e IncomeEarner) EarnerTaxes {
	national := roundRatio(e.Amount, nationalRateNum, nationalRateDen)
	return EarnerTaxes{
		NationalTax: national,
		LocalTax:    roundRatio(national, localRateNum, localRateDen),
	}
}

func (t TaxCalculation) SurchargeOrZero() int64 {
	if t.Surcharge == nil {
		return 0
	}
	return *t.Surcharge
}

// TotalAmount sums earner amounts.
func TotalAmount(earners []IncomeEarner) int64 {
	var total int64
	for _, e := range earners {
		total += e.Amount
	}
	return total
}

// roundRatio computes round(v*num/den) with halves rounded away from zero.
// v is split by den first so only the remainder is scaled; the result is
// exact for any v whose quotient times num fits in int64.
func roundRatio(v, num, den int64) int64 {
	if v < 0 {
		return -roundRatio(-v, num, den)
	}
	q, r := v/den, v%den
	return q*num + (r*num*2+den)/(2*den)
}
