package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"wonchon/internal/amqp"
	"wonchon/internal/core"
	"wonchon/internal/draft"
	applog "wonchon/internal/log"
	"wonchon/internal/wizard"
)

// Publisher announces completed filings to the document worker.
type Publisher interface {
	PublishFilingCompleted(ctx context.Context, msg *amqp.FilingCompletedMessage) error
}

// FilingRecorder keeps the local history of completed filings.
type FilingRecorder interface {
	RecordFiling(ctx context.Context, f core.Filing) error
}

var _ Publisher = (*amqp.Client)(nil)

type DeclarationConfig struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
	Now          func() time.Time

	// OnFiled runs after a filing is recorded, e.g. to drop cached statuses.
	OnFiled func(businessID int64)
}

// OpenRequest describes the declaration to start.
type OpenRequest struct {
	Business core.Company
	Filer    core.Member
	Period   core.Period
	Overdue  bool
	// Discard drops a saved draft instead of resuming it.
	Discard bool
}

// DeclarationService owns one wizard per business and period. Wizards live
// until closed or until the service shuts down, whichever comes first.
type DeclarationService struct {
	ctx    context.Context
	cancel context.CancelFunc

	drafts    *draft.Store
	filer     wizard.Filer
	recorder  FilingRecorder
	publisher Publisher
	cfg       DeclarationConfig
	log       *applog.StructuredLogger

	mu       sync.Mutex
	sessions map[draft.Key]*wizard.Wizard
}

// NewDeclarationService creates the service. recorder and publisher may be
// nil; completed filings are then only logged.
func NewDeclarationService(drafts *draft.Store, filer wizard.Filer, recorder FilingRecorder, publisher Publisher, cfg DeclarationConfig) *DeclarationService {
	ctx, cancel := context.WithCancel(context.Background())
	logger := applog.NewStructuredLogger(applog.New(applog.Config{
		Handler:   slog.Default().Handler(),
		Component: applog.ComponentFiling,
	}))
	return &DeclarationService{
		ctx:       ctx,
		cancel:    cancel,
		drafts:    drafts,
		filer:     filer,
		recorder:  recorder,
		publisher: publisher,
		cfg:       cfg,
		log:       logger,
		sessions:  make(map[draft.Key]*wizard.Wizard),
	}
}

// HasDraft reports whether a saved draft exists for key, which decides
// whether the continue or discard prompt is shown.
func (s *DeclarationService) HasDraft(ctx context.Context, key draft.Key) bool {
	return s.drafts.Exists(ctx, key)
}

// Open starts a wizard for req, replacing an idle one for the same key. A
// wizard with a submission in flight is returned as is.
func (s *DeclarationService) Open(ctx context.Context, req OpenRequest) (*wizard.Wizard, error) {
	if err := req.Period.Validate(); err != nil {
		return nil, err
	}
	key := draft.Key{BusinessID: req.Business.ID, Period: req.Period}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return nil, wizard.ErrClosed
	}

	if old, ok := s.sessions[key]; ok {
		if old.Phase() == wizard.Submitting {
			return old, nil
		}
		old.Close()
		delete(s.sessions, key)
	}

	if req.Discard {
		if err := s.drafts.Remove(ctx, key); err != nil {
			return nil, fmt.Errorf("discard draft: %w", err)
		}
	}

	w := wizard.New(s.ctx, wizard.Config{
		Business:     req.Business,
		Filer:        req.Filer,
		Period:       req.Period,
		Overdue:      req.Overdue,
		PollInterval: s.cfg.PollInterval,
		PollTimeout:  s.cfg.PollTimeout,
		OnComplete:   s.onComplete,
		Now:          s.cfg.Now,
	}, s.drafts, s.filer)
	s.sessions[key] = w

	slog.InfoContext(ctx, "Declaration opened",
		"draft_key", key.String(),
		"restored", w.Restored(),
		"overdue", req.Overdue)
	return w, nil
}

// Get returns the open wizard for key.
func (s *DeclarationService) Get(key draft.Key) (*wizard.Wizard, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.sessions[key]
	return w, ok
}

// Close stops the wizard for key. Its draft is kept.
func (s *DeclarationService) Close(key draft.Key) {
	s.mu.Lock()
	w, ok := s.sessions[key]
	delete(s.sessions, key)
	s.mu.Unlock()
	if ok {
		w.Close()
	}
}

// Shutdown closes every wizard and refuses new ones.
func (s *DeclarationService) Shutdown() {
	s.mu.Lock()
	s.cancel()
	open := make([]*wizard.Wizard, 0, len(s.sessions))
	for k, w := range s.sessions {
		open = append(open, w)
		delete(s.sessions, k)
	}
	s.mu.Unlock()

	for _, w := range open {
		w.Close()
	}
}

// onComplete runs on the wizard's poller. It must not close the wizard.
func (s *DeclarationService) onComplete(ctx context.Context, res wizard.Result) {
	msg := amqp.NewFilingCompletedMessage(res.JobID, res.Business, res.Period, res.Overdue, res.Earners, res.Tax, res.CompletedAt)
	s.log.LogFilingCompleted(ctx, res.Business.ID, res.Period.Year, res.Period.Month, res.JobID, len(res.Earners), res.Tax.TotalTax)

	if s.recorder != nil {
		if err := s.recorder.RecordFiling(ctx, msg.Filing()); err != nil {
			slog.ErrorContext(ctx, "Failed to record filing", "job_id", res.JobID, "error", err)
		}
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping filing completed message", "job_id", res.JobID)
	} else if err := s.publisher.PublishFilingCompleted(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish filing completed message", "job_id", res.JobID, "error", err)
	}

	if s.cfg.OnFiled != nil {
		s.cfg.OnFiled(res.Business.ID)
	}
}
