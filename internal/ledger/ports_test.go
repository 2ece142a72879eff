package ledger

import (
	"testing"
	"time"

	"wonchon/internal/core"
)

func TestRow(t *testing.T) {
	surcharge := int64(900)
	f := core.Filing{
		JobID:        "job-9",
		BusinessName: "삼쩜삼상사",
		BizNumber:    "1234567890",
		Period:       core.Period{Year: 2026, Month: 5},
		EarnerCount:  2,
		TotalAmount:  1000000,
		Tax:          core.TaxCalculation{NationalTax: 30000, LocalTax: 3000, Surcharge: &surcharge, TotalTax: 33900},
		Overdue:      true,
		CompletedAt:  time.Date(2026, 6, 20, 9, 30, 0, 0, time.UTC),
	}

	row := Row(f)
	if len(row) != len(Header) {
		t.Fatalf("row has %d cells, header has %d", len(row), len(Header))
	}
	want := []any{"job-9", "삼쩜삼상사", "123 45 67890", "2026-05", 2, int64(1000000),
		int64(30000), int64(3000), int64(900), int64(33900), "2026-06-20 09:30:00"}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("cell %d (%s) = %v, want %v", i, Header[i], row[i], want[i])
		}
	}
}

func TestRow_NoSurcharge(t *testing.T) {
	row := Row(core.Filing{JobID: "j", Period: core.Period{Year: 2025, Month: 1}})
	if row[8] != int64(0) {
		t.Errorf("surcharge cell = %v, want 0", row[8])
	}
}
