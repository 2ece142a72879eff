package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wonchon/internal/api"
	"wonchon/internal/core"
	"wonchon/internal/editor"
	applog "wonchon/internal/log"
	"wonchon/internal/metrics"
)

// Submit creates the filing job and starts polling its status. It is a no-op
// while a submission is already in flight. A failure to create the job
// leaves the wizard at review with every earner kept.
func (w *Wizard) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.phase == Submitting && !w.closed {
		w.mu.Unlock()
		return nil
	}
	if err := w.editable(); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.step != Review {
		w.mu.Unlock()
		return ErrNotAtReview
	}
	earners := w.editor.Earners()
	if len(earners) == 0 {
		w.mu.Unlock()
		return editor.ErrNoEarners
	}
	req := w.payload(earners)
	w.phase = Submitting
	w.status = core.FilingPending
	w.lastErr = nil
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "Submitting filing", applog.FieldEarners, len(earners), applog.FieldTotalTax, req.Tax.TotalTax)

	jobID, err := w.filer.CreateFiling(ctx, w.cfg.Business.ID, req)
	if err != nil {
		metrics.FilingSubmissions.WithLabelValues("error").Inc()
		w.logger.ErrorContext(ctx, "Failed to create filing job", applog.FieldError, err)
		failErr := fmt.Errorf("%w: %w", ErrFilingFailed, err)
		w.mu.Lock()
		w.phase = Editing
		w.status = ""
		w.lastErr = failErr
		w.mu.Unlock()
		return failErr
	}
	metrics.FilingSubmissions.WithLabelValues("accepted").Inc()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.jobID = jobID
	if w.closed {
		return ErrClosed
	}
	pollCtx, cancel := context.WithTimeout(w.ctx, w.cfg.PollTimeout)
	done := make(chan struct{})
	w.polling = done
	go func() {
		defer close(done)
		defer cancel()
		w.poll(pollCtx, jobID, earners, req.Tax)
	}()
	w.logger.InfoContext(ctx, "Filing job created", applog.FieldJobID, jobID)
	return nil
}

func (w *Wizard) poll(ctx context.Context, jobID string, earners []core.IncomeEarner, tax core.TaxCalculation) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				w.logger.Warn("Filing status poll timed out", applog.FieldJobID, jobID)
				w.fail(jobID, ErrPollTimeout, "timeout")
			}
			return
		case <-ticker.C:
		}

		status, err := w.filer.FilingStatus(ctx, w.cfg.Business.ID, jobID)
		if err != nil {
			if errors.Is(err, api.ErrUnauthorized) {
				w.fail(jobID, fmt.Errorf("%w: %w", ErrFilingFailed, err), "unauthorized")
				return
			}
			if ctx.Err() == nil {
				metrics.FilingPolls.WithLabelValues("error").Inc()
				w.logger.Warn("Filing status poll failed, retrying", applog.FieldJobID, jobID, applog.FieldError, err)
			}
			continue
		}
		metrics.FilingPolls.WithLabelValues(string(status)).Inc()

		if !status.Terminal() {
			w.mu.Lock()
			w.status = status
			w.mu.Unlock()
			continue
		}
		if status == core.FilingCompleted {
			w.complete(ctx, jobID, earners, tax)
		} else {
			w.fail(jobID, ErrFilingFailed, "failed")
		}
		return
	}
}

func (w *Wizard) fail(jobID string, err error, outcome string) {
	metrics.FilingOutcomes.WithLabelValues(outcome).Inc()
	w.logger.Warn("Filing did not complete", applog.FieldJobID, jobID, applog.FieldError, err)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.phase = Editing
	w.status = core.FilingFailed
	w.lastErr = err
}

func (w *Wizard) complete(ctx context.Context, jobID string, earners []core.IncomeEarner, tax core.TaxCalculation) {
	metrics.FilingOutcomes.WithLabelValues("completed").Inc()
	if err := w.drafts.Remove(ctx, w.key); err != nil {
		w.logger.Warn("Failed to remove draft after filing", applog.FieldDraftKey, w.key.String(), applog.FieldError, err)
	} else {
		metrics.DraftOperations.WithLabelValues("remove").Inc()
	}

	res := Result{
		JobID:       jobID,
		Business:    w.cfg.Business,
		Period:      w.cfg.Period,
		Overdue:     w.cfg.Overdue,
		Earners:     earners,
		Tax:         tax,
		CompletedAt: w.cfg.Now().UTC(),
	}

	w.mu.Lock()
	w.phase = Done
	w.status = core.FilingCompleted
	w.result = &res
	w.mu.Unlock()

	w.logger.Info("Filing completed", applog.FieldJobID, jobID)
	if w.cfg.OnComplete != nil {
		w.cfg.OnComplete(context.WithoutCancel(ctx), res)
	}
}

// Result returns the completed filing, if any.
func (w *Wizard) Result() (Result, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.result == nil {
		return Result{}, false
	}
	return *w.result, true
}
