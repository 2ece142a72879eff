package editor

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"wonchon/internal/core"
)

func newTestEditor(earners []core.IncomeEarner, changes *[][]core.IncomeEarner) *Editor {
	n := 0
	return NewEditor(earners,
		WithClock(func() time.Time { return time.Date(2025, 12, 17, 9, 0, 0, 0, time.UTC) }),
		WithIDs(func() string { n++; return fmt.Sprintf("id-%d", n) }),
		OnChange(func(e []core.IncomeEarner) {
			if changes != nil {
				*changes = append(*changes, e)
			}
		}),
	)
}

func fill(f core.IncomeEarner, name string, amount int64) core.IncomeEarner {
	f.Name = name
	f.ResidentNumber = "900101-1234567"
	f.Phone = "010-1234-5678"
	f.Amount = amount
	return f
}

func TestProceedNeedsAnEarner(t *testing.T) {
	ed := newTestEditor(nil, nil)
	if ed.CanProceed() {
		t.Fatalf("CanProceed() with no earners = true")
	}
	if err := ed.Commit(); !errors.Is(err, ErrNoEarners) {
		t.Fatalf("Commit() err = %v, want ErrNoEarners", err)
	}

	if err := ed.Add(); err != nil {
		t.Fatalf("Add: %v", err)
	}
	form, _ := ed.Form()
	if err := ed.Update(fill(form, "김철수", 1_000_000)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !ed.CanProceed() {
		t.Fatalf("CanProceed() with valid form = false")
	}
	if err := ed.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if ed.Mode() != Idle || len(ed.Earners()) != 1 || !ed.CanProceed() {
		t.Fatalf("after commit mode=%v earners=%d", ed.Mode(), len(ed.Earners()))
	}
}

func TestAddDefaults(t *testing.T) {
	ed := newTestEditor(nil, nil)
	if err := ed.Add(); err != nil {
		t.Fatalf("Add: %v", err)
	}
	form, open := ed.Form()
	if !open || ed.Mode() != New {
		t.Fatalf("form not open after Add")
	}
	want := core.IncomeEarner{
		ID:          "id-1",
		IncomeType:  core.IncomeOther,
		IncomeCode:  "76",
		PaymentDate: "2025-12-01",
		AmountType:  core.PreTax,
	}
	if form != want {
		t.Fatalf("form = %+v, want %+v", form, want)
	}
	if err := ed.Add(); !errors.Is(err, ErrFormOpen) {
		t.Fatalf("second Add err = %v", err)
	}
}

func TestCommitRejectsInvalidForm(t *testing.T) {
	var changes [][]core.IncomeEarner
	ed := newTestEditor(nil, &changes)
	_ = ed.Add()
	form, _ := ed.Form()
	_ = ed.Update(fill(form, "김철수", 0))

	err := ed.Commit()
	if !errors.Is(err, ErrInvalidForm) || !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("Commit() err = %v", err)
	}
	if ed.Mode() != New || len(ed.Earners()) != 0 || len(changes) != 0 {
		t.Fatalf("invalid commit changed state")
	}
}

func TestCommitRejectsTotalOverLimit(t *testing.T) {
	full := make([]core.IncomeEarner, 1000)
	for i := range full {
		full[i] = fill(core.IncomeEarner{ID: fmt.Sprintf("e-%d", i)}, "김철수", core.MaxAmount)
	}
	var changes [][]core.IncomeEarner
	ed := newTestEditor(full, &changes)

	_ = ed.Add()
	form, _ := ed.Form()
	_ = ed.Update(fill(form, "이영희", 1))
	if err := ed.Commit(); !errors.Is(err, ErrTotalTooLarge) {
		t.Fatalf("Commit() err = %v, want ErrTotalTooLarge", err)
	}
	if len(ed.Earners()) != 1000 || len(changes) != 0 {
		t.Fatalf("rejected commit changed state")
	}
	_ = ed.Delete()

	// Replacing an earner is measured without its old amount.
	if err := ed.Edit(0); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	form, _ = ed.Form()
	_ = ed.Update(fill(form, "김철수", core.MaxAmount-1))
	if err := ed.Commit(); err != nil {
		t.Fatalf("Commit() edit under limit: %v", err)
	}
	if got := core.TotalAmount(ed.Earners()); got != core.MaxTotalAmount-1 {
		t.Fatalf("total = %d", got)
	}
}

func TestUpdateKeepsIDAndResetsCode(t *testing.T) {
	ed := newTestEditor(nil, nil)
	_ = ed.Add()
	form, _ := ed.Form()

	form.ID = "forged"
	form.IncomeType = core.IncomeBusiness
	if err := ed.Update(form); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := ed.Form()
	if got.ID != "id-1" {
		t.Errorf("ID = %q, want id-1", got.ID)
	}
	if got.IncomeCode != "" {
		t.Errorf("IncomeCode = %q after switching to business", got.IncomeCode)
	}

	got.IncomeCode = "940906"
	_ = ed.Update(got)
	got, _ = ed.Form()
	if got.IncomeCode != "940906" {
		t.Errorf("IncomeCode = %q, want 940906", got.IncomeCode)
	}

	got.IncomeType = core.IncomeOther
	_ = ed.Update(got)
	got, _ = ed.Form()
	if got.IncomeCode != "76" {
		t.Errorf("IncomeCode = %q after switching back, want 76", got.IncomeCode)
	}
}

func TestSaveAndAddThenEditAndDelete(t *testing.T) {
	var changes [][]core.IncomeEarner
	ed := newTestEditor(nil, &changes)

	_ = ed.Add()
	form, _ := ed.Form()
	_ = ed.Update(fill(form, "A", 100))
	if err := ed.SaveAndAdd(); err != nil {
		t.Fatalf("SaveAndAdd: %v", err)
	}
	if ed.Mode() != New || ed.OrderLabel() != "두 번째" {
		t.Fatalf("after SaveAndAdd mode=%v label=%q", ed.Mode(), ed.OrderLabel())
	}
	form, _ = ed.Form()
	_ = ed.Update(fill(form, "B", 200))
	_ = ed.Commit()

	if err := ed.Edit(0); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if ed.OrderLabel() != "첫 번째" || ed.Index() != 0 {
		t.Fatalf("edit label=%q index=%d", ed.OrderLabel(), ed.Index())
	}
	form, _ = ed.Form()
	form.Amount = 150
	_ = ed.Update(form)
	if err := ed.SaveAndAdd(); err != nil {
		t.Fatalf("SaveAndAdd in edit: %v", err)
	}
	if got := ed.Earners()[0].Amount; got != 150 {
		t.Fatalf("edited amount = %d", got)
	}

	// Deleting a new form discards it without touching the list.
	n := len(changes)
	if err := ed.Delete(); err != nil {
		t.Fatalf("Delete new: %v", err)
	}
	if len(ed.Earners()) != 2 || len(changes) != n {
		t.Fatalf("discarding a new form changed earners")
	}

	_ = ed.Edit(0)
	if err := ed.Delete(); err != nil {
		t.Fatalf("Delete edit: %v", err)
	}
	earners := ed.Earners()
	if len(earners) != 1 || earners[0].Name != "B" {
		t.Fatalf("earners after delete = %+v", earners)
	}
	if last := changes[len(changes)-1]; len(last) != 1 || last[0].Name != "B" {
		t.Fatalf("last change = %+v", last)
	}
	if err := ed.Delete(); !errors.Is(err, ErrNoForm) {
		t.Fatalf("Delete idle err = %v", err)
	}
}

func TestEditOutOfRange(t *testing.T) {
	ed := newTestEditor(nil, nil)
	if err := ed.Edit(0); !errors.Is(err, ErrIndexInvalid) {
		t.Fatalf("Edit(0) err = %v", err)
	}
}

func TestOrderLabel(t *testing.T) {
	tests := []struct {
		i    int
		want string
	}{
		{0, "첫 번째"},
		{4, "다섯 번째"},
		{9, "열 번째"},
		{10, "11번째"},
		{24, "25번째"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := OrderLabel(tt.i); got != tt.want {
				t.Errorf("OrderLabel(%d) = %q, want %q", tt.i, got, tt.want)
			}
		})
	}
}
