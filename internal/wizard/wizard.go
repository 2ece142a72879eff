// Package wizard drives one declaration from business info to a completed
// filing job.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"wonchon/internal/api"
	"wonchon/internal/core"
	"wonchon/internal/draft"
	"wonchon/internal/editor"
	applog "wonchon/internal/log"
	"wonchon/internal/metrics"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollTimeout  = 10 * time.Minute
)

var (
	ErrNotAtReview  = errors.New("not at the review step")
	ErrNotAtEarners = errors.New("not at the earner step")
	ErrUseSubmit    = errors.New("review step proceeds by submitting")
	ErrBusy         = errors.New("filing in progress")
	ErrClosed       = errors.New("wizard closed")
	ErrFilingFailed = errors.New("filing failed")
	ErrPollTimeout  = errors.New("filing status did not settle in time")
)

// Filer starts filing jobs and reports their status.
type Filer interface {
	CreateFiling(ctx context.Context, businessID int64, req api.FilingRequest) (string, error)
	FilingStatus(ctx context.Context, businessID int64, jobID string) (core.FilingStatus, error)
}

// Drafts persists the earner list between visits.
type Drafts interface {
	Load(ctx context.Context, key draft.Key) ([]core.IncomeEarner, bool)
	Save(ctx context.Context, key draft.Key, earners []core.IncomeEarner) error
	Remove(ctx context.Context, key draft.Key) error
}

// Result describes a completed filing.
type Result struct {
	JobID       string
	Business    core.Company
	Period      core.Period
	Overdue     bool
	Earners     []core.IncomeEarner
	Tax         core.TaxCalculation
	CompletedAt time.Time
}

type Config struct {
	Business core.Company
	Filer    core.Member
	Period   core.Period
	Overdue  bool

	PollInterval time.Duration
	PollTimeout  time.Duration

	// OnComplete runs once after COMPLETED on the poller goroutine, outside
	// the wizard lock. It must not call Close.
	OnComplete func(context.Context, Result)

	Now    func() time.Time
	NewID  func() string
	Logger *applog.Logger
}

// Wizard is safe for concurrent use; HTTP handlers and the status poller
// share it.
type Wizard struct {
	cfg    Config
	key    draft.Key
	drafts Drafts
	filer  Filer
	logger *applog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	step     Step
	phase    Phase
	editor   *editor.Editor
	restored bool
	jobID    string
	status   core.FilingStatus
	lastErr  error
	result   *Result
	closed   bool
	polling  chan struct{}
}

// New opens a wizard at the business-info step and applies any saved draft.
// ctx bounds the wizard's lifetime, including its status poller.
func New(ctx context.Context, cfg Config, drafts Drafts, filer Filer) *Wizard {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentWizard})
	}

	wctx, cancel := context.WithCancel(ctx)
	w := &Wizard{
		cfg:    cfg,
		key:    draft.Key{BusinessID: cfg.Business.ID, Period: cfg.Period},
		drafts: drafts,
		filer:  filer,
		logger: cfg.Logger.With(applog.FieldBusinessID, cfg.Business.ID, applog.FieldYear, cfg.Period.Year, applog.FieldMonth, cfg.Period.Month),
		ctx:    wctx,
		cancel: cancel,
		step:   BusinessInfo,
	}

	saved, ok := drafts.Load(wctx, w.key)
	w.restored = ok

	opts := []editor.Option{
		editor.WithClock(cfg.Now),
		editor.OnChange(w.saveDraft),
	}
	if cfg.NewID != nil {
		opts = append(opts, editor.WithIDs(cfg.NewID))
	}
	w.editor = editor.NewEditor(saved, opts...)
	metrics.ActiveWizards.Inc()
	return w
}

// Key identifies the draft this wizard writes.
func (w *Wizard) Key() draft.Key { return w.key }

// Restored reports whether a saved draft was applied on open.
func (w *Wizard) Restored() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.restored
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

func (w *Wizard) Title() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return title(w.step, w.cfg.Period)
}

// Next runs the current step's forward transition.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	to, err := steps[w.step].next(w)
	if err != nil {
		return err
	}
	w.step = to
	return nil
}

// Back moves one step back; from the first step it exits the wizard.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	back := steps[w.step].back
	if back == 0 {
		w.phase = Exited
		return nil
	}
	w.step = back
	return nil
}

// EditEarners returns from review to the earner step with earners intact.
func (w *Wizard) EditEarners() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	if w.step != Review {
		return ErrNotAtReview
	}
	w.step = Earners
	return nil
}

// AddEarner opens a blank earner form.
func (w *Wizard) AddEarner() error {
	return w.withEditor(func(ed *editor.Editor) error { return ed.Add() })
}

func (w *Wizard) EditEarner(i int) error {
	return w.withEditor(func(ed *editor.Editor) error { return ed.Edit(i) })
}

func (w *Wizard) UpdateEarner(form core.IncomeEarner) error {
	return w.withEditor(func(ed *editor.Editor) error { return ed.Update(form) })
}

func (w *Wizard) SaveAndAddEarner() error {
	return w.withEditor(func(ed *editor.Editor) error { return ed.SaveAndAdd() })
}

func (w *Wizard) DeleteEarner() error {
	return w.withEditor(func(ed *editor.Editor) error { return ed.Delete() })
}

func (w *Wizard) withEditor(fn func(*editor.Editor) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	if w.step != Earners {
		return ErrNotAtEarners
	}
	return fn(w.editor)
}

// editable reports why the wizard refuses edits, if it does. Callers hold mu.
func (w *Wizard) editable() error {
	switch {
	case w.closed:
		return ErrClosed
	case w.phase == Submitting:
		return ErrBusy
	case w.phase != Editing:
		return ErrClosed
	}
	return nil
}

// Close cancels any status poll and waits for it to stop.
func (w *Wizard) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	polling := w.polling
	w.mu.Unlock()

	w.cancel()
	if polling != nil {
		<-polling
	}
	metrics.ActiveWizards.Dec()
}

func (w *Wizard) saveDraft(earners []core.IncomeEarner) {
	if err := w.drafts.Save(w.ctx, w.key, earners); err != nil {
		w.logger.WarnContext(w.ctx, "Failed to save draft", applog.FieldDraftKey, w.key.String(), applog.FieldError, err)
		return
	}
	metrics.DraftOperations.WithLabelValues("save").Inc()
}

// Payload builds the create-filing request from the current earners.
func (w *Wizard) Payload() api.FilingRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.payload(w.editor.Earners())
}

func (w *Wizard) payload(earners []core.IncomeEarner) api.FilingRequest {
	recipients := make([]api.Recipient, 0, len(earners))
	for _, e := range earners {
		recipients = append(recipients, api.NewRecipient(e))
	}
	business := w.cfg.Business
	business.BizNumber = core.Digits(business.BizNumber)
	return api.FilingRequest{
		Year:       w.cfg.Period.Year,
		Month:      w.cfg.Period.Month,
		DueDate:    w.cfg.Period.DueDate().Format(core.DateLayout),
		Overdue:    w.cfg.Overdue,
		Business:   business,
		Filer:      w.cfg.Filer,
		Recipients: recipients,
		Tax:        core.CalculateTax(earners, w.cfg.Overdue),
	}
}

func (w *Wizard) String() string {
	return fmt.Sprintf("wizard(%s)", w.key)
}
