package memory

import (
	"context"
	"fmt"
	"sync"

	"wonchon/internal/core"
	"wonchon/internal/ledger"
)

var _ ledger.Writer = (*Store)(nil)

// Store keeps ledger rows in memory. Used when no spreadsheet is configured
// and in tests.
type Store struct {
	mu   sync.Mutex
	rows []core.Filing
}

func New() *Store { return &Store{} }

// AppendFiling stores the filing and returns a synthetic row reference.
func (s *Store) AppendFiling(_ context.Context, f core.Filing) (string, error) {
	if err := ledger.Validate(f); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, f)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Filings returns the appended filings in order.
func (s *Store) Filings() []core.Filing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Filing(nil), s.rows...)
}
