// Package documents renders the spreadsheets produced after a filing: the
// simplified payment statement and the payment ledger.
package documents

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"wonchon/internal/core"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	statementSheet = "간이지급명세서"
	ledgerSheet    = "지급대장"
)

// Filing is everything the documents are rendered from.
type Filing struct {
	JobID       string
	Business    core.Company
	Period      core.Period
	Overdue     bool
	Earners     []core.IncomeEarner
	Tax         core.TaxCalculation
	CompletedAt time.Time
}

var statementHeader = []string{
	"번호", "성명", "주민등록번호", "연락처", "소득구분", "업종코드",
	"지급일", "금액구분", "지급액", "소득세", "지방소득세",
}

var statementWidths = []float64{6, 12, 18, 16, 10, 34, 12, 10, 14, 12, 12}

var ledgerHeader = []string{"번호", "성명", "지급일", "지급액", "소득세", "지방소득세", "차인지급액"}

var ledgerWidths = []float64{6, 12, 12, 14, 12, 12, 14}

// Generate renders both spreadsheets and returns them as documents ready to
// store.
func Generate(in Filing) ([]core.Document, error) {
	statement, err := Statement(in)
	if err != nil {
		return nil, err
	}
	ledger, err := Ledger(in)
	if err != nil {
		return nil, err
	}

	created := in.CompletedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	base := core.Document{
		BusinessID:  in.Business.ID,
		Period:      in.Period,
		ContentType: xlsxContentType,
		JobID:       in.JobID,
		CreatedAt:   created,
	}

	st := base
	st.ID = uuid.NewString()
	st.Category = core.DocPaymentStatement
	st.Title = fmt.Sprintf("%s 간이지급명세서", in.Period.Label())
	st.Filename = filename(statementSheet, in)
	st.Content = statement

	lg := base
	lg.ID = uuid.NewString()
	lg.Category = core.DocPaymentLedger
	lg.Title = fmt.Sprintf("%s 지급대장", in.Period.Label())
	lg.Filename = filename(ledgerSheet, in)
	lg.Content = ledger

	return []core.Document{st, lg}, nil
}

// ReceiptReference is the stored pointer to the filing receipt; the PDF
// itself stays with the filing service.
func ReceiptReference(in Filing) core.Document {
	created := in.CompletedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return core.Document{
		ID:          uuid.NewString(),
		BusinessID:  in.Business.ID,
		Period:      in.Period,
		Category:    core.DocWithholdingTax,
		Title:       fmt.Sprintf("%s 원천세 접수증", in.Period.Label()),
		Filename:    fmt.Sprintf("접수증_%s.pdf", in.JobID),
		ContentType: "application/pdf",
		JobID:       in.JobID,
		CreatedAt:   created,
	}
}

func filename(kind string, in Filing) string {
	return fmt.Sprintf("%s_%d%02d_%s.xlsx", kind, in.Period.Year, in.Period.Month, core.Digits(in.Business.BizNumber))
}

// Statement renders the simplified payment statement, one row per earner.
func Statement(in Filing) ([]byte, error) {
	w, err := newWorkbook(statementSheet)
	if err != nil {
		return nil, err
	}
	defer w.f.Close()

	if err := w.header(1, statementHeader, statementWidths); err != nil {
		return nil, err
	}
	for i, e := range in.Earners {
		tax := core.EarnerTax(e)
		row := []any{
			i + 1,
			e.Name,
			core.FormatResidentNumber(e.ResidentNumber),
			core.FormatPhone(e.Phone),
			e.IncomeType.Label(),
			e.IncomeType.CodeLabel(e.IncomeCode),
			e.PaymentDate,
			e.AmountType.Label(),
			e.Amount,
			tax.NationalTax,
			tax.LocalTax,
		}
		if err := w.row(i+2, row); err != nil {
			return nil, err
		}
	}
	if err := w.freeze(1); err != nil {
		return nil, err
	}
	return w.bytes()
}

// Ledger renders the payment ledger: a summary block, one row per earner
// and a totals block carrying the aggregate tax.
func Ledger(in Filing) ([]byte, error) {
	w, err := newWorkbook(ledgerSheet)
	if err != nil {
		return nil, err
	}
	defer w.f.Close()

	summary := [][]any{
		{"사업장", in.Business.Name},
		{"사업자등록번호", core.FormatBizNumber(in.Business.BizNumber)},
		{"귀속연월", in.Period.Label()},
		{"제출기한", in.Period.DueDate().Format(core.DateLayout)},
		{"접수번호", in.JobID},
	}
	for i, r := range summary {
		if err := w.row(i+1, r); err != nil {
			return nil, err
		}
	}

	headerRow := len(summary) + 2
	if err := w.header(headerRow, ledgerHeader, ledgerWidths); err != nil {
		return nil, err
	}
	row := headerRow + 1
	for i, e := range in.Earners {
		tax := core.EarnerTax(e)
		if err := w.row(row, []any{i + 1, e.Name, e.PaymentDate, e.Amount, tax.NationalTax, tax.LocalTax, e.Amount - tax.NationalTax - tax.LocalTax}); err != nil {
			return nil, err
		}
		row++
	}

	totals := [][]any{
		{"지급액 합계", core.TotalAmount(in.Earners)},
		{"소득세", in.Tax.NationalTax},
		{"지방소득세", in.Tax.LocalTax},
		{"가산세", in.Tax.SurchargeOrZero()},
		{"납부세액 합계", in.Tax.TotalTax},
	}
	row++
	for _, r := range totals {
		if err := w.row(row, r); err != nil {
			return nil, err
		}
		row++
	}
	return w.bytes()
}

type workbook struct {
	f           *excelize.File
	sheet       string
	headerStyle int
}

func newWorkbook(sheet string) (*workbook, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	return &workbook{f: f, sheet: sheet, headerStyle: style}, nil
}

func (w *workbook) header(row int, cols []string, widths []float64) error {
	for i, h := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("convert coordinates: %w", err)
		}
		if err := w.f.SetCellValue(w.sheet, cell, h); err != nil {
			return fmt.Errorf("set header cell %s: %w", cell, err)
		}
		if err := w.f.SetCellStyle(w.sheet, cell, cell, w.headerStyle); err != nil {
			return fmt.Errorf("set header style: %w", err)
		}
		if i < len(widths) {
			col, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				return fmt.Errorf("convert column number: %w", err)
			}
			if err := w.f.SetColWidth(w.sheet, col, col, widths[i]); err != nil {
				return fmt.Errorf("set column width: %w", err)
			}
		}
	}
	return nil
}

func (w *workbook) row(row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("convert coordinates: %w", err)
	}
	if err := w.f.SetSheetRow(w.sheet, cell, &values); err != nil {
		return fmt.Errorf("set row %d: %w", row, err)
	}
	return nil
}

func (w *workbook) freeze(rows int) error {
	top, err := excelize.CoordinatesToCellName(1, rows+1)
	if err != nil {
		return err
	}
	return w.f.SetPanes(w.sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      rows,
		TopLeftCell: top,
		ActivePane:  "bottomLeft",
	})
}

func (w *workbook) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := w.f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
