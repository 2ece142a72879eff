package memory

import (
	"context"
	"errors"
	"testing"

	"wonchon/internal/core"
	"wonchon/internal/ledger"
)

func TestStore_AppendFiling(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.AppendFiling(ctx, core.Filing{JobID: "job-1", Period: core.Period{Year: 2025, Month: 12}})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}
	ref, _ = s.AppendFiling(ctx, core.Filing{JobID: "job-2", Period: core.Period{Year: 2026, Month: 1}})
	if ref != "mem:2" {
		t.Errorf("ref = %q, want mem:2", ref)
	}

	got := s.Filings()
	if len(got) != 2 || got[0].JobID != "job-1" || got[1].JobID != "job-2" {
		t.Fatalf("unexpected filings: %+v", got)
	}
}

func TestStore_AppendFilingRejectsInvalid(t *testing.T) {
	s := New()
	_, err := s.AppendFiling(context.Background(), core.Filing{Period: core.Period{Year: 2025, Month: 1}})
	if !errors.Is(err, ledger.ErrNoJobID) {
		t.Fatalf("expected ErrNoJobID, got %v", err)
	}
	_, err = s.AppendFiling(context.Background(), core.Filing{JobID: "x", Period: core.Period{Year: 2025, Month: 13}})
	if !errors.Is(err, core.ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
	if len(s.Filings()) != 0 {
		t.Error("invalid filings must not be stored")
	}
}
