// Package editor holds the add/edit state machine for the income earners of
// one declaration.
package editor

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wonchon/internal/core"
)

type Mode int

const (
	Idle Mode = iota
	New
	Edit
)

func (m Mode) String() string {
	switch m {
	case New:
		return "new"
	case Edit:
		return "edit"
	default:
		return "idle"
	}
}

var (
	ErrFormOpen      = errors.New("an earner form is already open")
	ErrNoForm        = errors.New("no earner form is open")
	ErrInvalidForm   = errors.New("earner form is incomplete")
	ErrNoEarners     = errors.New("at least one earner is required")
	ErrIndexInvalid  = errors.New("earner index out of range")
	ErrTotalTooLarge = errors.New("total amount exceeds the declaration limit")
)

var orderLabels = []string{
	"첫 번째", "두 번째", "세 번째", "네 번째", "다섯 번째",
	"여섯 번째", "일곱 번째", "여덟 번째", "아홉 번째", "열 번째",
}

// Option configures an Editor.
type Option func(*Editor)

// WithClock sets the time source used for the default payment date.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) { e.now = now }
}

// WithIDs sets the earner id generator.
func WithIDs(newID func() string) Option {
	return func(e *Editor) { e.newID = newID }
}

// OnChange registers fn to run with the earner list after every mutation.
func OnChange(fn func([]core.IncomeEarner)) Option {
	return func(e *Editor) { e.onChange = fn }
}

// Editor is not safe for concurrent use; the wizard serialises access.
type Editor struct {
	earners []core.IncomeEarner
	mode    Mode
	index   int
	form    core.IncomeEarner

	now      func() time.Time
	newID    func() string
	onChange func([]core.IncomeEarner)
}

func NewEditor(earners []core.IncomeEarner, opts ...Option) *Editor {
	e := &Editor{
		earners: append([]core.IncomeEarner(nil), earners...),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Earners returns a copy of the committed earners.
func (e *Editor) Earners() []core.IncomeEarner {
	return append([]core.IncomeEarner(nil), e.earners...)
}

func (e *Editor) Mode() Mode { return e.mode }

// Index is the earner being edited, or -1 outside Edit mode.
func (e *Editor) Index() int {
	if e.mode != Edit {
		return -1
	}
	return e.index
}

// Form returns the open form and whether one is open.
func (e *Editor) Form() (core.IncomeEarner, bool) {
	return e.form, e.mode != Idle
}

// Add opens a blank form.
func (e *Editor) Add() error {
	if e.mode != Idle {
		return ErrFormOpen
	}
	e.openBlank()
	return nil
}

// Edit opens earner i, discarding any open form.
func (e *Editor) Edit(i int) error {
	if i < 0 || i >= len(e.earners) {
		return fmt.Errorf("%w: %d", ErrIndexInvalid, i)
	}
	e.mode = Edit
	e.index = i
	e.form = e.earners[i]
	return nil
}

// Update replaces the open form's fields. The id is kept and a change of
// income type resets the income code.
func (e *Editor) Update(form core.IncomeEarner) error {
	if e.mode == Idle {
		return ErrNoForm
	}
	form.ID = e.form.ID
	if form.IncomeType != e.form.IncomeType {
		form.IncomeCode = form.IncomeType.DefaultCode()
	}
	e.form = form
	return nil
}

// SaveAndAdd commits the open form and opens a blank one.
func (e *Editor) SaveAndAdd() error {
	if err := e.commitForm(); err != nil {
		return err
	}
	e.openBlank()
	return nil
}

// Delete removes the earner being edited, or discards a new form.
func (e *Editor) Delete() error {
	switch e.mode {
	case Edit:
		e.earners = append(e.earners[:e.index:e.index], e.earners[e.index+1:]...)
		e.close()
		e.changed()
	case New:
		e.close()
	default:
		return ErrNoForm
	}
	return nil
}

// Commit is the proceed action: an open form is committed when valid, and an
// idle editor needs at least one earner.
func (e *Editor) Commit() error {
	if e.mode == Idle {
		if len(e.earners) == 0 {
			return ErrNoEarners
		}
		return nil
	}
	return e.commitForm()
}

// CanProceed reports whether Commit would succeed.
func (e *Editor) CanProceed() bool {
	if e.mode == Idle {
		return len(e.earners) > 0
	}
	return e.IsFormValid()
}

func (e *Editor) IsFormValid() bool {
	return e.mode != Idle && e.form.IsComplete()
}

// OrderLabel names the earner position shown in the step heading.
func (e *Editor) OrderLabel() string {
	var i int
	switch e.mode {
	case New:
		i = len(e.earners)
	case Edit:
		i = e.index
	default:
		i = max(0, len(e.earners)-1)
	}
	return OrderLabel(i)
}

// OrderLabel returns the Korean ordinal for the zero-based position i.
func OrderLabel(i int) string {
	if i >= 0 && i < len(orderLabels) {
		return orderLabels[i]
	}
	return fmt.Sprintf("%d번째", i+1)
}

func (e *Editor) commitForm() error {
	if e.mode == Idle {
		return ErrNoForm
	}
	if err := e.form.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidForm, err)
	}
	if e.totalWithForm() > core.MaxTotalAmount {
		return ErrTotalTooLarge
	}
	if e.mode == New {
		e.earners = append(e.earners, e.form)
	} else {
		e.earners[e.index] = e.form
	}
	e.close()
	e.changed()
	return nil
}

// totalWithForm sums the committed earners with the open form in place of
// the one it edits. Each amount is at most core.MaxAmount, so the running sum
// stops before it can overflow.
func (e *Editor) totalWithForm() int64 {
	total := e.form.Amount
	for i, x := range e.earners {
		if e.mode == Edit && i == e.index {
			continue
		}
		total += x.Amount
		if total > core.MaxTotalAmount {
			break
		}
	}
	return total
}

func (e *Editor) openBlank() {
	e.mode = New
	e.index = 0
	e.form = core.NewEarner(e.newID(), e.now())
}

func (e *Editor) close() {
	e.mode = Idle
	e.index = 0
	e.form = core.IncomeEarner{}
}

func (e *Editor) changed() {
	if e.onChange != nil {
		e.onChange(e.Earners())
	}
}
