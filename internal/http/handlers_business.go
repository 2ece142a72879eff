package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"wonchon/internal/api"
	"wonchon/internal/core"
	"wonchon/internal/draft"
	applog "wonchon/internal/log"
	"wonchon/internal/services"
)

// monthStripSize is how many months the business page shows.
const monthStripSize = 12

type monthCell struct {
	Period   core.Period
	Status   core.MonthStatus
	Selected bool
}

type businessPage struct {
	pageMeta
	Business core.Company
	Period   core.Period
	Months   []monthCell
	Schedule *core.Schedule
	DueDate  string
	Fileable bool
	Overdue  bool
	HasDraft bool
	JobID    string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	companies, err := s.deps.Businesses.Companies(ctx)
	if err != nil {
		s.fail(w, r, err, "사업장 목록을 불러오지 못했어요.")
		return
	}
	s.render(w, r, http.StatusOK, "home_page", struct {
		pageMeta
		Businesses []core.Company
		CanAdd     bool
		Period     core.Period
	}{
		pageMeta:   pageMeta{Title: "홈", Nav: "home"},
		Businesses: companies,
		CanAdd:     len(companies) < core.MaxCompanies,
		Period:     core.PeriodOf(s.now()),
	})
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register_page", pageMeta{Title: "사업장 등록", Nav: "home"})
}

// handleLookup renders the lookup result under the number field.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	bizNumber := sanitizeInput(r.URL.Query().Get("bizNumber"))
	res, err := s.deps.Businesses.Lookup(ctx, bizNumber)
	switch {
	case errors.Is(err, services.ErrInvalidBizNumber):
		UnprocessableEntityError(err.Error()).Write(w)
		return
	case errors.Is(err, api.ErrNotFound):
		NotFoundError("존재하지 않는 사업자등록번호입니다.").Write(w)
		return
	case err != nil:
		s.fail(w, r, err, "사업장 조회에 실패했어요.")
		return
	}
	s.render(w, r, http.StatusOK, "lookup_result", res)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	company, err := s.deps.Businesses.Register(ctx, sanitizeInput(r.PostForm.Get("bizNumber")))
	switch {
	case errors.Is(err, services.ErrInvalidBizNumber),
		errors.Is(err, services.ErrDuplicateCompany),
		errors.Is(err, services.ErrTooManyCompanies):
		UnprocessableEntityError(err.Error()).Write(w)
		return
	case errors.Is(err, api.ErrNotFound):
		NotFoundError("존재하지 않는 사업자등록번호입니다.").Write(w)
		return
	case err != nil:
		s.fail(w, r, err, "사업장 등록에 실패했어요.")
		return
	}

	s.logger.InfoContext(ctx, "Business registered",
		applog.FieldBusinessID, company.ID,
		applog.FieldOperation, applog.OpCreate)
	NewHTMXResponse().
		TriggerSuccessNotification("사업장이 등록되었어요.").
		Redirect("/home").
		Write(w)
}

// handleBusiness renders the month strip, the period's schedule and the
// entry point to the declaration.
func (s *Server) handleBusiness(w http.ResponseWriter, r *http.Request) {
	id, ok := PathInt64(r, "id")
	if !ok {
		NotFoundError("사업장을 찾을 수 없습니다.").Write(w)
		return
	}
	period := ParsePeriodParams(r.URL.Query(), s.now())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var (
		company  core.Company
		sched    api.ScheduleResult
		statuses map[string]core.MonthStatus
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
		statuses, err = s.deps.Businesses.MonthStatuses(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, services.ErrCompanyNotFound) {
			NotFoundError(services.ErrCompanyNotFound.Error()).Write(w)
			return
		}
		s.fail(w, r, err, "사업장 정보를 불러오지 못했어요.")
		return
	}

	page := businessPage{
		pageMeta: pageMeta{Title: company.Name, Nav: "home"},
		Business: company,
		Period:   period,
		Months:   monthStrip(core.PeriodOf(s.now()), period, statuses),
		Schedule: sched.Schedule,
		DueDate:  period.DueDate().Format(core.DateLayout),
		HasDraft: s.deps.Declarations.HasDraft(ctx, draft.Key{BusinessID: id, Period: period}),
		JobID:    sanitizeInput(r.URL.Query().Get("jobId")),
	}
	if sched.Schedule != nil {
		page.Fileable = sched.Schedule.Status.Fileable()
		page.Overdue = sched.Schedule.Status == core.TaxOverdue
	}
	s.render(w, r, http.StatusOK, "business_page", page)
}

// monthStrip lists the months ending at the current period, or at selected
// when it lies outside that range.
func monthStrip(current, selected core.Period, statuses map[string]core.MonthStatus) []monthCell {
	end := current
	if current.Before(selected) || !inWindow(current.Window(monthStripSize), selected) {
		end = selected
	}
	periods := end.Window(monthStripSize)
	cells := make([]monthCell, len(periods))
	for i, p := range periods {
		st, ok := statuses[p.Key()]
		if !ok {
			st = core.MonthDefault
		}
		cells[i] = monthCell{Period: p, Status: st, Selected: p == selected}
	}
	return cells
}

func inWindow(window []core.Period, p core.Period) bool {
	for _, w := range window {
		if w == p {
			return true
		}
	}
	return false
}

// handleReceipt proxies the receipt PDF from the filing API.
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := PathInt64(r, "id")
	jobID := sanitizeInput(r.PathValue("jobId"))
	if !ok || jobID == "" || strings.ContainsAny(jobID, "/\\") {
		NotFoundError("접수증을 찾을 수 없습니다.").Write(w)
		return
	}
	s.writeReceipt(w, r, id, jobID)
}

func (s *Server) writeReceipt(w http.ResponseWriter, r *http.Request, businessID int64, jobID string) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	pdf, err := s.deps.Receipts.Receipt(ctx, businessID, jobID)
	if err != nil {
		s.fail(w, r, err, "접수증을 내려받지 못했어요.")
		return
	}
	attachment(w, receiptFilename(jobID), "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

type memberForm struct {
	pageMeta
	Member     core.Member
	BusinessID int64
	Period     core.Period
	Mode       string
	Error      string
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	m, err := s.deps.Businesses.Member(ctx)
	if err != nil {
		s.fail(w, r, err, "신고인 정보를 불러오지 못했어요.")
		return
	}
	s.render(w, r, http.StatusOK, "profile_page", memberForm{
		pageMeta: pageMeta{Title: "내 정보", Nav: "profile"},
		Member:   m,
	})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	in := ParseMemberForm(r.PostForm)
	m, err := s.deps.Businesses.UpdateMember(ctx, in)
	if msg, ok := memberError(err); ok {
		NewHTMXResponse().Status(http.StatusUnprocessableEntity).TriggerErrorNotification(msg).Write(w)
		return
	}
	if err != nil {
		s.fail(w, r, err, "신고인 정보를 저장하지 못했어요.")
		return
	}

	s.logger.InfoContext(ctx, "Filer info updated", applog.FieldOperation, applog.OpUpdate)
	if s.templates == nil {
		InternalServerError("화면을 그리지 못했어요.").Write(w)
		return
	}
	var buf strings.Builder
	if err := s.templates.ExecuteTemplate(&buf, "member_form", memberForm{Member: m}); err != nil {
		s.fail(w, r, err, "화면을 그리지 못했어요.")
		return
	}
	NewHTMXResponse().
		TriggerSuccessNotification("신고인 정보가 저장되었어요.").
		BodyHTML(buf.String()).
		Write(w)
}

// memberError maps validation failures to the message shown to the user.
func memberError(err error) (string, bool) {
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, services.ErrIncompleteProfile):
		return err.Error(), true
	case errors.Is(err, core.ErrInvalidPhone):
		return "올바른 휴대폰 번호를 입력해주세요.", true
	}
	var se *api.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusBadRequest && se.Message != "" {
		return se.Message, true
	}
	return "", false
}
