package worker

import (
	"context"
	"fmt"
	"log/slog"

	"wonchon/internal/amqp"
	"wonchon/internal/core"
	"wonchon/internal/documents"
	"wonchon/internal/ledger"
	"wonchon/internal/metrics"
)

// Repository is the storage the worker writes to.
type Repository interface {
	SaveDocument(ctx context.Context, d core.Document) error
	RecordFiling(ctx context.Context, f core.Filing) error
}

// DocumentWorker turns completed filings into stored documents.
type DocumentWorker struct {
	repo   Repository
	ledger ledger.Writer
}

// NewDocumentWorker creates a worker. A nil ledger disables ledger rows.
func NewDocumentWorker(repo Repository, l ledger.Writer) *DocumentWorker {
	return &DocumentWorker{repo: repo, ledger: l}
}

// HandleFilingCompleted processes a single filing-completed message. It is
// safe to run twice for the same job: documents are replaced per category and
// the filing row keeps its first insert.
func (w *DocumentWorker) HandleFilingCompleted(ctx context.Context, msg *amqp.FilingCompletedMessage) error {
	slog.InfoContext(ctx, "Processing filing completed message",
		"job_id", msg.JobID,
		"business_id", msg.Business.ID,
		"period", msg.Period().Key(),
		"earners", len(msg.Earners))

	in := documents.Filing{
		JobID:       msg.JobID,
		Business:    msg.Business,
		Period:      msg.Period(),
		Overdue:     msg.Overdue,
		Earners:     msg.Earners,
		Tax:         msg.Tax,
		CompletedAt: msg.CompletedAt,
	}

	docs, err := documents.Generate(in)
	if err != nil {
		return fmt.Errorf("generate documents: %w", err)
	}
	docs = append(docs, documents.ReceiptReference(in))

	for _, d := range docs {
		if err := w.repo.SaveDocument(ctx, d); err != nil {
			return fmt.Errorf("save %s document: %w", d.Category, err)
		}
		metrics.DocumentsGenerated.WithLabelValues(string(d.Category)).Inc()
	}

	filing := msg.Filing()
	if err := w.repo.RecordFiling(ctx, filing); err != nil {
		return fmt.Errorf("record filing: %w", err)
	}

	if w.ledger != nil {
		ref, err := w.ledger.AppendFiling(ctx, filing)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to append ledger row",
				"job_id", msg.JobID,
				"error", err)
			return fmt.Errorf("append ledger row: %w", err)
		}
		slog.InfoContext(ctx, "Appended ledger row", "job_id", msg.JobID, "ledger_ref", ref)
	}

	slog.InfoContext(ctx, "Filing documents stored",
		"job_id", msg.JobID,
		"documents", len(docs))
	return nil
}
