package wizard

import (
	"time"

	"wonchon/internal/core"
	"wonchon/internal/editor"
)

// Snapshot is a consistent copy of the wizard state for rendering.
type Snapshot struct {
	Step     Step
	Phase    Phase
	Title    string
	Business core.Company
	Filer    core.Member
	Period   core.Period
	DueDate  time.Time
	Overdue  bool
	Restored bool

	Earners     []core.IncomeEarner
	EarnerTaxes []core.EarnerTaxes
	Tax         core.TaxCalculation
	TotalAmount int64

	Mode       editor.Mode
	Form       core.IncomeEarner
	FormOpen   bool
	FormIndex  int
	FormValid  bool
	OrderLabel string
	CanProceed bool

	JobID         string
	Status        core.FilingStatus
	StatusMessage string
	Err           error
}

func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	earners := w.editor.Earners()
	taxes := make([]core.EarnerTaxes, len(earners))
	for i, e := range earners {
		taxes[i] = core.EarnerTax(e)
	}
	form, open := w.editor.Form()

	s := Snapshot{
		Step:     w.step,
		Phase:    w.phase,
		Title:    title(w.step, w.cfg.Period),
		Business: w.cfg.Business,
		Filer:    w.cfg.Filer,
		Period:   w.cfg.Period,
		DueDate:  w.cfg.Period.DueDate(),
		Overdue:  w.cfg.Overdue,
		Restored: w.restored,

		Earners:     earners,
		EarnerTaxes: taxes,
		Tax:         core.CalculateTax(earners, w.cfg.Overdue),
		TotalAmount: core.TotalAmount(earners),

		Mode:       w.editor.Mode(),
		Form:       form,
		FormOpen:   open,
		FormIndex:  w.editor.Index(),
		FormValid:  w.editor.IsFormValid(),
		OrderLabel: w.editor.OrderLabel(),
		CanProceed: w.editor.CanProceed(),

		JobID:  w.jobID,
		Status: w.status,
		Err:    w.lastErr,
	}
	if w.status != "" {
		s.StatusMessage = w.status.Message()
	}
	return s
}
