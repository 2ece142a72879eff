package http

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"wonchon/internal/api"
	"wonchon/internal/core"
	"wonchon/internal/draft"
	"wonchon/internal/editor"
	applog "wonchon/internal/log"
	"wonchon/internal/services"
	"wonchon/internal/wizard"
)

// Start modes posted by the business page and the draft prompt.
const (
	startFresh  = ""
	startResume = "resume"
	startNew    = "new"
)

const (
	msgIncomplete   = "입력하지 않은 항목이 있어요."
	msgTooLarge     = "지급 금액 합계가 너무 커요."
	msgBusy         = "신고를 처리하는 중이에요. 잠시만 기다려주세요."
	msgNotAllowed   = "지금은 할 수 없는 동작이에요."
	msgSubmitFailed = "신고 요청에 실패했어요. 다시 시도해주세요."
)

type wizardOp int

const (
	actionNext wizardOp = iota
	actionBack
	actionEditEarners
	actionAddEarner
	actionUpdateEarner
	actionSaveAndAdd
	actionDeleteEarner
	actionEditEarner
)

// declarationView is what the wizard templates render.
type declarationView struct {
	pageMeta
	Wizard wizard.Snapshot
	// Base is the declaration URL without the period query.
	Base  string
	Query template.URL
}

func (s *Server) newDeclarationView(snap wizard.Snapshot) declarationView {
	return declarationView{
		pageMeta: pageMeta{Title: snap.Title, Nav: "home"},
		Wizard:   snap,
		Base:     "/business/" + strconv.FormatInt(snap.Business.ID, 10) + "/declaration",
		Query:    template.URL(periodQuery(snap.Period)),
	}
}

func (s *Server) handleStartDeclaration(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	id, ok := PathInt64(r, "id")
	if !ok {
		NotFoundError("사업장을 찾을 수 없습니다.").Write(w)
		return
	}
	period := ParsePeriodParams(r.Form, s.now())
	s.startDeclaration(w, r, id, period, r.Form.Get("mode"))
}

// handleFilerInfo stores the filer profile asked for before the first
// declaration, then carries on starting it.
func (s *Server) handleFilerInfo(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	id, ok := PathInt64(r, "id")
	if !ok {
		NotFoundError("사업장을 찾을 수 없습니다.").Write(w)
		return
	}
	period := ParsePeriodParams(r.Form, s.now())
	mode := r.Form.Get("mode")

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	in := ParseMemberForm(r.PostForm)
	if _, err := s.deps.Businesses.UpdateMember(ctx, in); err != nil {
		if msg, ok := memberError(err); ok {
			s.render(w, r, http.StatusUnprocessableEntity, "filer_form", memberForm{
				Member:     in,
				BusinessID: id,
				Period:     period,
				Mode:       mode,
				Error:      msg,
			})
			return
		}
		s.fail(w, r, err, "신고인 정보를 저장하지 못했어요.")
		return
	}
	s.logger.InfoContext(ctx, "Filer info updated", applog.FieldOperation, applog.OpUpdate, applog.FieldBusinessID, id)
	s.startDeclaration(w, r, id, period, mode)
}

// startDeclaration checks the period can be filed, asks for missing filer
// info or a draft decision, and finally opens the wizard.
func (s *Server) startDeclaration(w http.ResponseWriter, r *http.Request, id int64, period core.Period, mode string) {
	if mode != startResume && mode != startNew {
		mode = startFresh
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var (
		company core.Company
		sched   api.ScheduleResult
		member  core.Member
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		company, err = s.deps.Businesses.Company(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		sched, err = s.deps.Businesses.Schedule(gctx, id, period)
		return err
	})
	g.Go(func() (err error) {
		member, err = s.deps.Businesses.Member(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, services.ErrCompanyNotFound) {
			NotFoundError(services.ErrCompanyNotFound.Error()).Write(w)
			return
		}
		s.fail(w, r, err, "신고를 시작하지 못했어요.")
		return
	}

	if sched.Schedule == nil || !sched.Schedule.Status.Fileable() {
		ConflictError("이 달은 신고할 수 있는 상태가 아니에요.").Write(w)
		return
	}
	if !member.IsComplete() {
		s.render(w, r, http.StatusOK, "filer_form", memberForm{
			Member:     member,
			BusinessID: id,
			Period:     period,
			Mode:       mode,
		})
		return
	}

	key := draft.Key{BusinessID: id, Period: period}
	if mode == startFresh && s.deps.Declarations.HasDraft(ctx, key) {
		s.render(w, r, http.StatusOK, "draft_prompt", struct {
			BusinessID int64
			Period     core.Period
		}{id, period})
		return
	}

	if _, err := s.deps.Declarations.Open(ctx, services.OpenRequest{
		Business: company,
		Filer:    member,
		Period:   period,
		Overdue:  sched.Schedule.Status == core.TaxOverdue,
		Discard:  mode == startNew,
	}); err != nil {
		s.fail(w, r, err, "신고를 시작하지 못했어요.")
		return
	}
	redirect(w, r, declarationURL(id, period))
}

// session finds the open wizard addressed by the request. Without one the
// visitor is sent back to the business page and ok is false.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*wizard.Wizard, draft.Key, bool) {
	id, ok := PathInt64(r, "id")
	if !ok {
		NotFoundError("사업장을 찾을 수 없습니다.").Write(w)
		return nil, draft.Key{}, false
	}
	key := draft.Key{BusinessID: id, Period: ParsePeriodParams(r.URL.Query(), s.now())}
	wiz, ok := s.deps.Declarations.Get(key)
	if !ok {
		redirect(w, r, businessURL(id, key.Period))
		return nil, key, false
	}
	return wiz, key, true
}

func (s *Server) handleDeclaration(w http.ResponseWriter, r *http.Request) {
	wiz, key, ok := s.session(w, r)
	if !ok {
		return
	}
	snap := wiz.Snapshot()
	if snap.Phase == wizard.Done {
		s.finish(w, r, key, snap.JobID)
		return
	}
	s.render(w, r, http.StatusOK, "declaration_page", s.newDeclarationView(snap))
}

func (s *Server) wizardAction(op wizardOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resp := ParseFormOrFail(r); resp != nil {
			resp.Write(w)
			return
		}
		wiz, key, ok := s.session(w, r)
		if !ok {
			return
		}

		err := applyAction(r, wiz, op)
		if err == nil && wiz.Phase() == wizard.Exited {
			s.deps.Declarations.Close(key)
			redirect(w, r, businessURL(key.BusinessID, key.Period))
			return
		}
		if err != nil {
			s.wizardError(w, r, wiz, key, err)
			return
		}
		s.renderWizard(w, r, wiz, http.StatusOK, "")
	}
}

func applyAction(r *http.Request, wiz *wizard.Wizard, op wizardOp) error {
	switch op {
	case actionNext:
		if err := applyForm(r, wiz); err != nil {
			return err
		}
		return wiz.Next()
	case actionBack:
		return wiz.Back()
	case actionEditEarners:
		return wiz.EditEarners()
	case actionAddEarner:
		return wiz.AddEarner()
	case actionUpdateEarner:
		return applyForm(r, wiz)
	case actionSaveAndAdd:
		if err := applyForm(r, wiz); err != nil {
			return err
		}
		return wiz.SaveAndAddEarner()
	case actionDeleteEarner:
		return wiz.DeleteEarner()
	case actionEditEarner:
		i, err := strconv.Atoi(r.PathValue("index"))
		if err != nil {
			return editor.ErrIndexInvalid
		}
		return wiz.EditEarner(i)
	}
	return nil
}

// applyForm copies posted earner fields into the open form. Requests without
// earner fields leave the form alone.
func applyForm(r *http.Request, wiz *wizard.Wizard) error {
	snap := wiz.Snapshot()
	if snap.Step != wizard.Earners || !snap.FormOpen || !hasEarnerFields(r.PostForm) {
		return nil
	}
	return wiz.UpdateEarner(ParseEarnerForm(r.PostForm, snap.Form))
}

func hasEarnerFields(form url.Values) bool {
	for _, k := range []string{"name", "residentNumber", "incomeType", "amount"} {
		if _, ok := form[k]; ok {
			return true
		}
	}
	return false
}

// wizardError re-renders the wizard with a toast explaining why the action
// was refused.
func (s *Server) wizardError(w http.ResponseWriter, r *http.Request, wiz *wizard.Wizard, key draft.Key, err error) {
	switch {
	case errors.Is(err, wizard.ErrClosed):
		s.deps.Declarations.Close(key)
		redirect(w, r, businessURL(key.BusinessID, key.Period))
	case errors.Is(err, editor.ErrInvalidForm), errors.Is(err, editor.ErrNoEarners):
		s.renderWizard(w, r, wiz, http.StatusUnprocessableEntity, msgIncomplete)
	case errors.Is(err, editor.ErrTotalTooLarge):
		s.renderWizard(w, r, wiz, http.StatusUnprocessableEntity, msgTooLarge)
	case errors.Is(err, wizard.ErrBusy):
		s.renderWizard(w, r, wiz, http.StatusConflict, msgBusy)
	default:
		s.logger.WarnContext(r.Context(), "Wizard action refused",
			applog.FieldDraftKey, key.String(),
			applog.FieldError, err)
		s.renderWizard(w, r, wiz, http.StatusConflict, msgNotAllowed)
	}
}

// renderWizard swaps in the wizard fragment. A non-empty toast is shown as an
// error notification.
func (s *Server) renderWizard(w http.ResponseWriter, r *http.Request, wiz *wizard.Wizard, status int, toast string) {
	snap := wiz.Snapshot()
	if s.templates == nil {
		InternalServerError("화면을 그리지 못했어요.").Write(w)
		return
	}
	var buf strings.Builder
	if err := s.templates.ExecuteTemplate(&buf, "wizard", s.newDeclarationView(snap)); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			"template", "wizard",
			applog.FieldOperation, applog.OpRender)
		InternalServerError("화면을 그리지 못했어요.").Write(w)
		return
	}

	resp := NewHTMXResponse().
		Status(status).
		TriggerWizardUpdated(snap.Step.String()).
		Retarget("#wizard").
		BodyHTML(buf.String())
	if toast != "" {
		resp.TriggerErrorNotification(toast)
	}
	resp.Write(w)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	wiz, key, ok := s.session(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	err := wiz.Submit(ctx)
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "Declaration submitted",
			applog.FieldDraftKey, key.String(),
			applog.FieldOperation, applog.OpSubmit)
		s.renderWizard(w, r, wiz, http.StatusOK, "")
	case errors.Is(err, api.ErrUnauthorized):
		s.fail(w, r, err, msgSubmitFailed)
	case errors.Is(err, wizard.ErrFilingFailed):
		s.renderWizard(w, r, wiz, http.StatusBadGateway, msgSubmitFailed)
	default:
		s.wizardError(w, r, wiz, key, err)
	}
}

// handleDeclarationStatus is polled by the status overlay while a filing is
// in flight.
func (s *Server) handleDeclarationStatus(w http.ResponseWriter, r *http.Request) {
	wiz, key, ok := s.session(w, r)
	if !ok {
		return
	}
	snap := wiz.Snapshot()
	switch {
	case snap.Phase == wizard.Done:
		s.finish(w, r, key, snap.JobID)
	case snap.Phase == wizard.Submitting:
		s.render(w, r, http.StatusOK, "status_overlay", s.newDeclarationView(snap))
	case snap.Status == core.FilingFailed:
		msg := snap.StatusMessage
		if errors.Is(snap.Err, wizard.ErrPollTimeout) {
			msg = "신고 결과를 확인하지 못했어요. 잠시 후 다시 시도해주세요."
		}
		s.renderWizard(w, r, wiz, http.StatusOK, msg)
	default:
		s.renderWizard(w, r, wiz, http.StatusOK, "")
	}
}

// finish closes a completed session and shows the business page with the
// receipt link.
func (s *Server) finish(w http.ResponseWriter, r *http.Request, key draft.Key, jobID string) {
	s.deps.Declarations.Close(key)
	target := businessURL(key.BusinessID, key.Period)
	if jobID != "" {
		target += "&jobId=" + url.QueryEscape(jobID)
	}
	redirect(w, r, target)
}
