package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"wonchon/internal/core"
)

const timeLayout = time.RFC3339Nano

// RecordFiling stores a completed submission. Recording the same job twice
// keeps the first row.
func (r *SQLiteRepository) RecordFiling(ctx context.Context, f core.Filing) error {
	var surcharge sql.NullInt64
	if f.Tax.Surcharge != nil {
		surcharge = sql.NullInt64{Int64: *f.Tax.Surcharge, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO filings (job_id, business_id, business_name, biz_number, year, month,
			earner_count, total_amount, national_tax, local_tax, surcharge, total_tax, overdue, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO NOTHING`,
		f.JobID, f.BusinessID, f.BusinessName, f.BizNumber, f.Period.Year, f.Period.Month,
		f.EarnerCount, f.TotalAmount, f.Tax.NationalTax, f.Tax.LocalTax, surcharge, f.Tax.TotalTax,
		f.Overdue, f.CompletedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert filing: %w", err)
	}

	slog.InfoContext(ctx, "Filing recorded in SQLite",
		"job_id", f.JobID,
		"business_id", f.BusinessID,
		"period", f.Period.Key(),
		"total_tax", f.Tax.TotalTax)
	return nil
}

// ListFilings returns a business's recorded filings, newest period first.
func (r *SQLiteRepository) ListFilings(ctx context.Context, businessID int64) ([]core.Filing, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT job_id, business_id, business_name, biz_number, year, month, earner_count,
			total_amount, national_tax, local_tax, surcharge, total_tax, overdue, completed_at
		FROM filings WHERE business_id = ?
		ORDER BY year DESC, month DESC, completed_at DESC`, businessID)
	if err != nil {
		return nil, fmt.Errorf("query filings: %w", err)
	}
	defer rows.Close()

	var out []core.Filing
	for rows.Next() {
		var (
			f         core.Filing
			surcharge sql.NullInt64
			completed string
		)
		if err := rows.Scan(&f.JobID, &f.BusinessID, &f.BusinessName, &f.BizNumber,
			&f.Period.Year, &f.Period.Month, &f.EarnerCount, &f.TotalAmount,
			&f.Tax.NationalTax, &f.Tax.LocalTax, &surcharge, &f.Tax.TotalTax,
			&f.Overdue, &completed); err != nil {
			return nil, fmt.Errorf("scan filing: %w", err)
		}
		if surcharge.Valid {
			v := surcharge.Int64
			f.Tax.Surcharge = &v
		}
		f.CompletedAt, _ = time.Parse(timeLayout, completed)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate filings: %w", err)
	}
	return out, nil
}
