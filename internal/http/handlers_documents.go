package http

import (
	"context"
	"errors"
	"net/http"

	"wonchon/internal/core"
	applog "wonchon/internal/log"
	"wonchon/internal/storage"
)

type documentsPage struct {
	pageMeta
	Documents  []core.Document
	Categories []core.DocumentCategory
	Category   core.DocumentCategory
	Month      string
}

// handleDocuments lists generated documents, optionally narrowed by category
// and by a "YYYY-MM" month.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := documentsPage{
		pageMeta:   pageMeta{Title: "서류함", Nav: "documents"},
		Categories: core.DocumentCategories(),
	}

	var filter storage.DocumentFilter
	if c := core.DocumentCategory(sanitizeInput(q.Get("category"))); c.IsValid() {
		filter.Category = c
		page.Category = c
	}
	if p, ok := ParseMonthFilter(q.Get("month")); ok {
		filter.Period = &p
		page.Month = sanitizeInput(q.Get("month"))
	}

	if s.deps.Documents != nil {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		docs, err := s.deps.Documents.ListDocuments(ctx, filter)
		if err != nil {
			s.fail(w, r, err, "서류 목록을 불러오지 못했어요.")
			return
		}
		page.Documents = docs
	}

	name := "documents_page"
	if isHTMX(r) && r.Header.Get("HX-Target") == "documents" {
		name = "document_list"
	}
	s.render(w, r, http.StatusOK, name, page)
}

// handleDocumentDownload serves a stored document. Receipt references are
// fetched from the filing API.
func (s *Server) handleDocumentDownload(w http.ResponseWriter, r *http.Request) {
	id := sanitizeInput(r.PathValue("id"))
	if s.deps.Documents == nil || id == "" {
		NotFoundError("서류를 찾을 수 없습니다.").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	doc, err := s.deps.Documents.GetDocument(ctx, id)
	if errors.Is(err, storage.ErrDocumentNotFound) {
		NotFoundError("서류를 찾을 수 없습니다.").Write(w)
		return
	}
	if err != nil {
		s.fail(w, r, err, "서류를 내려받지 못했어요.")
		return
	}

	s.logger.InfoContext(ctx, "Document downloaded",
		applog.FieldDocumentID, doc.ID,
		applog.FieldOperation, applog.OpRead)

	if doc.IsReference() {
		s.writeReceipt(w, r, doc.BusinessID, doc.JobID)
		return
	}
	attachment(w, doc.Filename, doc.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Content)
}
