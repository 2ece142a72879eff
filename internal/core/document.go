package core

import "time"

type DocumentCategory string

const (
	DocPaymentLedger    DocumentCategory = "지급대장"
	DocWithholdingTax   DocumentCategory = "원천세"
	DocPaymentStatement DocumentCategory = "지급명세서"
)

// DocumentCategories lists the filterable categories in display order.
func DocumentCategories() []DocumentCategory {
	return []DocumentCategory{DocPaymentLedger, DocWithholdingTax, DocPaymentStatement}
}

func (c DocumentCategory) IsValid() bool {
	switch c {
	case DocPaymentLedger, DocWithholdingTax, DocPaymentStatement:
		return true
	}
	return false
}

// Document is a generated artifact for one filed period. Receipts are kept
// as references (JobID) and fetched from the filing API on download.
type Document struct {
	ID          string
	BusinessID  int64
	Period      Period
	Category    DocumentCategory
	Title       string
	Filename    string
	ContentType string
	Content     []byte
	JobID       string
	CreatedAt   time.Time
}

// IsReference reports whether the document content lives on the filing API.
func (d Document) IsReference() bool {
	return len(d.Content) == 0 && d.JobID != ""
}

// Filing is a completed submission as recorded locally.
type Filing struct {
	JobID        string
	BusinessID   int64
	BusinessName string
	BizNumber    string
	Period       Period
	EarnerCount  int
	TotalAmount  int64
	Tax          TaxCalculation
	Overdue      bool
	CompletedAt  time.Time
}
