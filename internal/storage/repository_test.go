package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"wonchon/internal/core"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "wonchon.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func TestMigrationsApplied(t *testing.T) {
	_, path := newTestRepo(t)
	version, dirty, err := SchemaVersion(path)
	if err != nil || dirty || version != 1 {
		t.Fatalf("version=%d dirty=%v err=%v", version, dirty, err)
	}
	// Re-running on an up-to-date database is a no-op.
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}
}

func TestKeyValue(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	if _, ok, err := repo.Get(ctx, "draft_1_2025_12"); ok || err != nil {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	if err := repo.Set(ctx, "draft_1_2025_12", []byte("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.Set(ctx, "draft_1_2025_12", []byte("v2")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, ok, err := repo.Get(ctx, "draft_1_2025_12")
	if err != nil || !ok || string(got) != "v2" {
		t.Fatalf("get = %q ok=%v err=%v", got, ok, err)
	}

	_ = repo.Set(ctx, "draftXother", []byte("x"))
	keys, err := repo.Keys(ctx, "draft_")
	if err != nil || len(keys) != 1 {
		t.Fatalf("keys = %v err=%v", keys, err)
	}

	if err := repo.Remove(ctx, "draft_1_2025_12"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := repo.Get(ctx, "draft_1_2025_12"); ok {
		t.Fatalf("key survived remove")
	}
}

func TestRecordAndListFilings(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	tax := core.CalculateTax([]core.IncomeEarner{{Amount: 1_000_000}}, true)
	f := core.Filing{
		JobID:        "job-1",
		BusinessID:   7,
		BusinessName: "해보자 컴퍼니",
		BizNumber:    "1234567890",
		Period:       core.Period{Year: 2025, Month: 12},
		EarnerCount:  1,
		TotalAmount:  1_000_000,
		Tax:          tax,
		Overdue:      true,
		CompletedAt:  time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
	}
	if err := repo.RecordFiling(ctx, f); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := repo.RecordFiling(ctx, f); err != nil {
		t.Fatalf("duplicate record should be ignored: %v", err)
	}

	list, err := repo.ListFilings(ctx, 7)
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %v err=%v", list, err)
	}
	got := list[0]
	if got.Tax.Surcharge == nil || *got.Tax.Surcharge != 900 || got.Tax.TotalTax != 33900 || !got.Overdue {
		t.Fatalf("unexpected filing %+v", got)
	}
	if !got.CompletedAt.Equal(f.CompletedAt) {
		t.Fatalf("completed_at = %v, want %v", got.CompletedAt, f.CompletedAt)
	}
}

func TestDocuments(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	dec := core.Period{Year: 2025, Month: 12}
	nov := core.Period{Year: 2025, Month: 11}

	docs := []core.Document{
		{ID: "d1", BusinessID: 1, Period: dec, Category: core.DocPaymentLedger, Title: "지급대장", Filename: "a.xlsx", ContentType: "application/octet-stream", Content: []byte("xlsx"), JobID: "job-1"},
		{ID: "d2", BusinessID: 1, Period: dec, Category: core.DocWithholdingTax, Title: "접수증", Filename: "접수증_job-1.pdf", ContentType: "application/pdf", JobID: "job-1"},
		{ID: "d3", BusinessID: 2, Period: nov, Category: core.DocPaymentStatement, Title: "간이지급명세서", Filename: "b.xlsx", ContentType: "application/octet-stream", Content: []byte("x")},
	}
	for _, d := range docs {
		if err := repo.SaveDocument(ctx, d); err != nil {
			t.Fatalf("save %s: %v", d.ID, err)
		}
	}

	all, err := repo.ListDocuments(ctx, DocumentFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("all = %d err=%v", len(all), err)
	}
	if len(all[0].Content) != 0 {
		t.Fatalf("list must not load content")
	}

	byCategory, _ := repo.ListDocuments(ctx, DocumentFilter{Category: core.DocWithholdingTax})
	if len(byCategory) != 1 || byCategory[0].ID != "d2" || !byCategory[0].IsReference() {
		t.Fatalf("by category = %+v", byCategory)
	}
	byMonth, _ := repo.ListDocuments(ctx, DocumentFilter{Period: &nov})
	if len(byMonth) != 1 || byMonth[0].ID != "d3" {
		t.Fatalf("by month = %+v", byMonth)
	}

	// Redelivery for the same job and category replaces the earlier row.
	replacement := docs[0]
	replacement.ID = "d1b"
	if err := repo.SaveDocument(ctx, replacement); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, err := repo.GetDocument(ctx, "d1"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("old document err = %v, want ErrDocumentNotFound", err)
	}
	got, err := repo.GetDocument(ctx, "d1b")
	if err != nil || string(got.Content) != "xlsx" || got.Category != core.DocPaymentLedger {
		t.Fatalf("get = %+v err=%v", got, err)
	}
}
