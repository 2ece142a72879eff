package memory

import (
	"context"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, ok, err := s.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}

	buf := []byte("value")
	if err := s.Set(ctx, "a", buf); err != nil {
		t.Fatalf("set: %v", err)
	}
	buf[0] = 'X' // caller mutation must not leak into the store

	got, ok, err := s.Get(ctx, "a")
	if err != nil || !ok || string(got) != "value" {
		t.Fatalf("get = %q ok=%v err=%v", got, ok, err)
	}

	if err := s.Remove(ctx, "a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Fatalf("key still present after remove")
	}
}

func TestStoreKeys(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, k := range []string{"draft_2_2025_1", "draft_1_2025_12", "accessToken"} {
		_ = s.Set(ctx, k, []byte("x"))
	}
	keys, err := s.Keys(ctx, "draft_")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "draft_1_2025_12" || keys[1] != "draft_2_2025_1" {
		t.Fatalf("unexpected keys %v", keys)
	}
}
