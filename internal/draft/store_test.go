package draft

import (
	"context"
	"errors"
	"testing"

	"wonchon/internal/core"
	"wonchon/internal/kv/memory"
)

func sampleEarners() []core.IncomeEarner {
	return []core.IncomeEarner{
		{ID: "a", Name: "홍길동", ResidentNumber: "9001011234567", Phone: "01012345678",
			IncomeType: core.IncomeOther, IncomeCode: "76", PaymentDate: "2025-12-01",
			AmountType: core.PreTax, Amount: 1_000_000},
		{ID: "b", Name: "김철수", ResidentNumber: "8505051234567", Phone: "01098765432",
			IncomeType: core.IncomeBusiness, IncomeCode: "940906", PaymentDate: "2025-12-15",
			AmountType: core.AfterTax, Amount: 250_000},
	}
}

func TestKeyFormat(t *testing.T) {
	k := NewKey(12, 2025, 3)
	if k.String() != "draft_12_2025_3" {
		t.Fatalf("key = %s", k)
	}
	parsed, err := ParseKey(k.String())
	if err != nil || parsed != k {
		t.Fatalf("ParseKey = %+v err=%v", parsed, err)
	}
	for _, bad := range []string{"accessToken", "draft_1_2025", "draft_x_2025_1"} {
		if _, err := ParseKey(bad); err == nil {
			t.Errorf("ParseKey(%q) should fail", bad)
		}
	}
}

func TestKeysDoNotCollide(t *testing.T) {
	seen := map[string]Key{}
	for _, k := range []Key{NewKey(1, 2025, 12), NewKey(12, 2025, 1), NewKey(11, 2025, 2), NewKey(1, 2025, 1), NewKey(2, 2025, 1)} {
		if prev, ok := seen[k.String()]; ok {
			t.Fatalf("%+v and %+v share key %s", prev, k, k)
		}
		seen[k.String()] = k
	}
}

func TestSaveLoadRemove(t *testing.T) {
	ctx := context.Background()
	s := NewStore(memory.New())
	key := NewKey(1, 2025, 12)

	if _, ok := s.Load(ctx, key); ok {
		t.Fatalf("expected no draft initially")
	}
	if err := s.Save(ctx, key, sampleEarners()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok := s.Load(ctx, key)
	if !ok || len(got) != 2 || got[1].IncomeCode != "940906" || got[1].AmountType != core.AfterTax {
		t.Fatalf("load = %+v ok=%v", got, ok)
	}
	if !s.Exists(ctx, key) || s.Exists(ctx, NewKey(1, 2025, 11)) {
		t.Fatalf("exists mismatch")
	}

	if err := s.Save(ctx, key, sampleEarners()[:1]); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, _ := s.Load(ctx, key); len(got) != 1 {
		t.Fatalf("save must replace wholesale, got %d earners", len(got))
	}

	if err := s.Remove(ctx, key); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := s.Load(ctx, key); ok {
		t.Fatalf("draft survived remove")
	}
}

func TestSaveEmptyDeletesKey(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	s := NewStore(backend)
	key := NewKey(3, 2026, 5)

	_ = s.Save(ctx, key, sampleEarners())
	if err := s.Save(ctx, key, nil); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	got, ok := s.Load(ctx, key)
	if ok || got != nil {
		t.Fatalf("load after empty save = %v ok=%v, want absent", got, ok)
	}
	if _, found, _ := backend.Get(ctx, key.String()); found {
		t.Fatalf("empty list must not be persisted")
	}
}

func TestLoadDegradesToAbsent(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	s := NewStore(backend)
	key := NewKey(1, 2025, 1)

	for _, raw := range []string{"not json", "{}", "[]", `{"id":"a"}`} {
		_ = backend.Set(ctx, key.String(), []byte(raw))
		if got, ok := s.Load(ctx, key); ok {
			t.Errorf("raw %q loaded as %+v", raw, got)
		}
	}

	s = NewStore(failingStore{})
	if _, ok := s.Load(ctx, key); ok {
		t.Fatalf("read error must degrade to absent")
	}
	if err := s.Save(ctx, key, sampleEarners()); err == nil {
		t.Fatalf("write errors are reported")
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	s := NewStore(backend)
	_ = s.Save(ctx, NewKey(2, 2025, 12), sampleEarners())
	_ = s.Save(ctx, NewKey(1, 2026, 1), sampleEarners())
	_ = backend.Set(ctx, "accessToken", []byte("t"))

	keys, err := s.List(ctx)
	if err != nil || len(keys) != 2 {
		t.Fatalf("list = %v err=%v", keys, err)
	}

	if _, err := NewStore(failingStore{}).List(ctx); err == nil {
		t.Fatalf("expected error for backend without key listing")
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func (failingStore) Set(context.Context, string, []byte) error {
	return errors.New("disk on fire")
}

func (failingStore) Remove(context.Context, string) error {
	return errors.New("disk on fire")
}
