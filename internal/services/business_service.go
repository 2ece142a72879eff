package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"wonchon/internal/api"
	"wonchon/internal/cache"
	"wonchon/internal/core"
)

var (
	ErrDuplicateCompany  = errors.New("이미 등록된 사업장입니다.")
	ErrTooManyCompanies  = fmt.Errorf("사업장은 최대 %d개까지 등록할 수 있습니다.", core.MaxCompanies)
	ErrInvalidBizNumber  = errors.New("사업자등록번호 10자리를 입력해주세요.")
	ErrCompanyNotFound   = errors.New("사업장을 찾을 수 없습니다.")
	ErrIncompleteProfile = errors.New("신고인 정보를 모두 입력해주세요.")
)

// BusinessAPI is the part of the filing API the business pages read.
type BusinessAPI interface {
	Companies(ctx context.Context) ([]core.Company, error)
	LookupCompany(ctx context.Context, bizNumber string) (api.LookupResult, error)
	ReplaceCompanies(ctx context.Context, companies []core.Company) error
	Me(ctx context.Context) (core.Member, error)
	UpdateMe(ctx context.Context, m core.Member) error
	Schedule(ctx context.Context, businessID int64, p core.Period) (api.ScheduleResult, error)
	MonthStatuses(ctx context.Context, businessID int64) (map[string]core.MonthStatus, error)
}

var _ BusinessAPI = (*api.Client)(nil)

// BusinessService fronts the filing API with short-lived caches. Writes go
// straight through and invalidate what they touch.
type BusinessService struct {
	api       BusinessAPI
	companies *cache.LRUCache[[]core.Company]
	members   *cache.LRUCache[core.Member]
	statuses  *cache.LRUCache[map[string]core.MonthStatus]
	schedules *cache.LRUCache[api.ScheduleResult]
}

func NewBusinessService(a BusinessAPI, ttl time.Duration) *BusinessService {
	return &BusinessService{
		api:       a,
		companies: cache.NewLRUCache[[]core.Company]("companies", 1, ttl),
		members:   cache.NewLRUCache[core.Member]("member", 1, ttl),
		statuses:  cache.NewLRUCache[map[string]core.MonthStatus]("month_statuses", 50, ttl),
		schedules: cache.NewLRUCache[api.ScheduleResult]("schedules", 200, ttl),
	}
}

// Caches exposes the service caches for periodic cleanup.
func (s *BusinessService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.companies, s.members, s.statuses, s.schedules}
}

func (s *BusinessService) Companies(ctx context.Context) ([]core.Company, error) {
	return s.companies.GetOrLoad(ctx, "all", s.api.Companies)
}

// Company finds a registered business by id.
func (s *BusinessService) Company(ctx context.Context, id int64) (core.Company, error) {
	list, err := s.Companies(ctx)
	if err != nil {
		return core.Company{}, err
	}
	for _, c := range list {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Company{}, fmt.Errorf("%w: %d", ErrCompanyNotFound, id)
}

// Lookup resolves a registration number to its business name.
func (s *BusinessService) Lookup(ctx context.Context, bizNumber string) (api.LookupResult, error) {
	if !core.ValidBizNumber(bizNumber) {
		return api.LookupResult{}, ErrInvalidBizNumber
	}
	res, err := s.api.LookupCompany(ctx, bizNumber)
	if err != nil {
		return api.LookupResult{}, err
	}
	if res.BizNumber == "" {
		res.BizNumber = core.Digits(bizNumber)
	}
	return res, nil
}

// Register looks up bizNumber and appends it to the member's list. The list
// is replaced as a whole, so duplicates and the size limit are checked here.
func (s *BusinessService) Register(ctx context.Context, bizNumber string) (core.Company, error) {
	found, err := s.Lookup(ctx, bizNumber)
	if err != nil {
		return core.Company{}, err
	}

	s.companies.Delete("all")
	list, err := s.Companies(ctx)
	if err != nil {
		return core.Company{}, err
	}
	digits := core.Digits(found.BizNumber)
	for _, c := range list {
		if core.Digits(c.BizNumber) == digits {
			return core.Company{}, ErrDuplicateCompany
		}
	}
	if len(list) >= core.MaxCompanies {
		return core.Company{}, ErrTooManyCompanies
	}

	added := core.Company{Name: found.Name, BizNumber: digits}
	next := append(append([]core.Company(nil), list...), added)
	if err := s.api.ReplaceCompanies(ctx, next); err != nil {
		return core.Company{}, fmt.Errorf("register company: %w", err)
	}
	s.companies.Delete("all")

	slog.InfoContext(ctx, "Company registered", "biz_number", digits, "companies", len(next))
	return added, nil
}

func (s *BusinessService) Member(ctx context.Context) (core.Member, error) {
	return s.members.GetOrLoad(ctx, "me", s.api.Me)
}

// UpdateMember validates and stores the filer profile. The phone number is
// normalised to national digits.
func (s *BusinessService) UpdateMember(ctx context.Context, m core.Member) (core.Member, error) {
	m.Name = strings.TrimSpace(m.Name)
	m.HometaxUserID = strings.TrimSpace(m.HometaxUserID)
	m.BirthDate = strings.TrimSpace(m.BirthDate)
	m.RepresentName = strings.TrimSpace(m.RepresentName)
	if !m.IsComplete() {
		return core.Member{}, ErrIncompleteProfile
	}
	phone, err := core.ParsePhone(m.PhoneNumber)
	if err != nil {
		return core.Member{}, core.ErrInvalidPhone
	}
	m.PhoneNumber = phone

	if err := s.api.UpdateMe(ctx, m); err != nil {
		return core.Member{}, fmt.Errorf("update member: %w", err)
	}
	s.members.Set("me", m)
	return m, nil
}

func (s *BusinessService) Schedule(ctx context.Context, businessID int64, p core.Period) (api.ScheduleResult, error) {
	key := scheduleKey(businessID, p)
	return s.schedules.GetOrLoad(ctx, key, func(ctx context.Context) (api.ScheduleResult, error) {
		return s.api.Schedule(ctx, businessID, p)
	})
}

func (s *BusinessService) MonthStatuses(ctx context.Context, businessID int64) (map[string]core.MonthStatus, error) {
	return s.statuses.GetOrLoad(ctx, strconv.FormatInt(businessID, 10), func(ctx context.Context) (map[string]core.MonthStatus, error) {
		return s.api.MonthStatuses(ctx, businessID)
	})
}

// Invalidate drops the cached statuses and schedules of a business.
func (s *BusinessService) Invalidate(businessID int64) {
	id := strconv.FormatInt(businessID, 10)
	s.statuses.Delete(id)
	s.schedules.DeletePrefix(id + ":")
}

func scheduleKey(businessID int64, p core.Period) string {
	return strconv.FormatInt(businessID, 10) + ":" + p.Key()
}
