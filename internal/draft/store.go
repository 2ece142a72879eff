// Package draft persists in-progress declarations, one earner list per
// business and attribution month.
package draft

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"wonchon/internal/core"
	"wonchon/internal/kv"
)

const keyPrefix = "draft_"

// Key identifies one draft.
type Key struct {
	BusinessID int64
	Period     core.Period
}

func NewKey(businessID int64, year, month int) Key {
	return Key{BusinessID: businessID, Period: core.Period{Year: year, Month: month}}
}

// String renders draft_{businessId}_{year}_{month}. Components are integers
// joined by a separator that cannot appear in them, so keys never collide.
func (k Key) String() string {
	return fmt.Sprintf("%s%d_%d_%d", keyPrefix, k.BusinessID, k.Period.Year, k.Period.Month)
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	rest, ok := strings.CutPrefix(s, keyPrefix)
	if !ok {
		return Key{}, fmt.Errorf("not a draft key: %q", s)
	}
	parts := strings.Split(rest, "_")
	if len(parts) != 3 {
		return Key{}, fmt.Errorf("malformed draft key: %q", s)
	}
	var n [3]int64
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return Key{}, fmt.Errorf("malformed draft key %q: %w", s, err)
		}
		n[i] = v
	}
	return NewKey(n[0], int(n[1]), int(n[2])), nil
}

// Store reads and writes drafts through a kv.Store. It is best-effort on
// reads: anything unreadable is reported as no draft.
type Store struct {
	kv kv.Store
}

func NewStore(s kv.Store) *Store {
	return &Store{kv: s}
}

// Load returns the earners saved under key. ok is false when no usable
// draft exists, including unreadable or empty ones.
func (s *Store) Load(ctx context.Context, key Key) (earners []core.IncomeEarner, ok bool) {
	raw, found, err := s.kv.Get(ctx, key.String())
	if err != nil {
		slog.WarnContext(ctx, "Draft read failed, treating as absent", "key", key.String(), "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	if err := json.Unmarshal(raw, &earners); err != nil {
		slog.WarnContext(ctx, "Draft unreadable, treating as absent", "key", key.String(), "error", err)
		return nil, false
	}
	if len(earners) == 0 {
		return nil, false
	}
	return earners, true
}

// Exists reports whether Load would return a draft.
func (s *Store) Exists(ctx context.Context, key Key) bool {
	_, ok := s.Load(ctx, key)
	return ok
}

// Save overwrites the draft with earners. An empty list removes the key so
// that absence, not an empty list, marks "no draft".
func (s *Store) Save(ctx context.Context, key Key, earners []core.IncomeEarner) error {
	if len(earners) == 0 {
		return s.Remove(ctx, key)
	}
	raw, err := json.Marshal(earners)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := s.kv.Set(ctx, key.String(), raw); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	slog.DebugContext(ctx, "Draft saved", "key", key.String(), "earners", len(earners))
	return nil
}

func (s *Store) Remove(ctx context.Context, key Key) error {
	if err := s.kv.Remove(ctx, key.String()); err != nil {
		return fmt.Errorf("remove draft: %w", err)
	}
	return nil
}

// List returns the keys of all stored drafts when the backend can
// enumerate them.
func (s *Store) List(ctx context.Context) ([]Key, error) {
	lister, ok := s.kv.(kv.Lister)
	if !ok {
		return nil, fmt.Errorf("draft backend %T cannot list keys", s.kv)
	}
	raw, err := lister.Keys(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	keys := make([]Key, 0, len(raw))
	for _, r := range raw {
		k, err := ParseKey(r)
		if err != nil {
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}
