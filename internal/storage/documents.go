package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wonchon/internal/core"
)

var ErrDocumentNotFound = errors.New("document not found")

// DocumentFilter narrows ListDocuments. Zero values match everything.
type DocumentFilter struct {
	Category   core.DocumentCategory
	Period     *core.Period
	BusinessID int64
}

// SaveDocument inserts d. A second document of the same category for the
// same filing job replaces the first, so redelivered events are harmless.
func (r *SQLiteRepository) SaveDocument(ctx context.Context, d core.Document) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if d.JobID != "" {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM documents WHERE job_id = ? AND category = ?`, d.JobID, string(d.Category)); err != nil {
			return fmt.Errorf("replace document: %w", err)
		}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, business_id, year, month, category, title, filename,
			content_type, content, job_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.BusinessID, d.Period.Year, d.Period.Month, string(d.Category), d.Title, d.Filename,
		d.ContentType, d.Content, d.JobID, d.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit document: %w", err)
	}

	slog.InfoContext(ctx, "Document saved to SQLite",
		"id", d.ID,
		"category", d.Category,
		"business_id", d.BusinessID,
		"period", d.Period.Key(),
		"bytes", len(d.Content))
	return nil
}

// ListDocuments returns document metadata (without content), newest first.
func (r *SQLiteRepository) ListDocuments(ctx context.Context, f DocumentFilter) ([]core.Document, error) {
	query := `SELECT id, business_id, year, month, category, title, filename, content_type, job_id, created_at
		FROM documents WHERE 1 = 1`
	var args []any
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, string(f.Category))
	}
	if f.Period != nil {
		query += ` AND year = ? AND month = ?`
		args = append(args, f.Period.Year, f.Period.Month)
	}
	if f.BusinessID != 0 {
		query += ` AND business_id = ?`
		args = append(args, f.BusinessID)
	}
	query += ` ORDER BY year DESC, month DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []core.Document
	for rows.Next() {
		d, err := scanDocument(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// GetDocument loads a document including its content.
func (r *SQLiteRepository) GetDocument(ctx context.Context, id string) (core.Document, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, business_id, year, month, category, title, filename, content_type, job_id, created_at, content
		FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Document{}, ErrDocumentNotFound
	}
	return d, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(s rowScanner, withContent bool) (core.Document, error) {
	var (
		d        core.Document
		category string
		created  string
	)
	dest := []any{&d.ID, &d.BusinessID, &d.Period.Year, &d.Period.Month, &category,
		&d.Title, &d.Filename, &d.ContentType, &d.JobID, &created}
	if withContent {
		dest = append(dest, &d.Content)
	}
	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, err
		}
		return d, fmt.Errorf("scan document: %w", err)
	}
	d.Category = core.DocumentCategory(category)
	d.CreatedAt, _ = time.Parse(timeLayout, created)
	return d, nil
}
