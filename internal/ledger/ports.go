// Package ledger records completed filings as rows of an external ledger.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"wonchon/internal/core"
)

// Writer appends one row per completed filing and returns a reference to it.
type Writer interface {
	AppendFiling(ctx context.Context, f core.Filing) (string, error)
}

// Header is the column layout shared by every ledger backend.
var Header = []string{
	"접수번호", "사업자명", "사업자번호", "귀속연월", "소득자수",
	"지급총액", "소득세", "지방소득세", "가산세", "납부세액", "완료일시",
}

// Row converts a filing to ledger cells in Header order.
func Row(f core.Filing) []any {
	return []any{
		f.JobID,
		f.BusinessName,
		core.FormatBizNumber(f.BizNumber),
		fmt.Sprintf("%04d-%02d", f.Period.Year, f.Period.Month),
		f.EarnerCount,
		f.TotalAmount,
		f.Tax.NationalTax,
		f.Tax.LocalTax,
		f.Tax.SurchargeOrZero(),
		f.Tax.TotalTax,
		f.CompletedAt.Format("2006-01-02 15:04:05"),
	}
}

var ErrNoJobID = errors.New("ledger: filing has no job id")

// Validate rejects filings that cannot be identified in the ledger.
func Validate(f core.Filing) error {
	if f.JobID == "" {
		return ErrNoJobID
	}
	return f.Period.Validate()
}
