package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"wonchon/internal/core"
)

type (
	// ScheduleResult is the business header plus the period's schedule, which
	// is nil when nothing is due.
	ScheduleResult struct {
		Business core.Company   `json:"business"`
		Schedule *core.Schedule `json:"schedule"`
	}

	LookupResult struct {
		Name      string `json:"name"`
		BizNumber string `json:"bizNumber,omitempty"`
	}

	// FilingRequest is the body of a create-filing call.
	FilingRequest struct {
		Year       int                 `json:"year"`
		Month      int                 `json:"month"`
		DueDate    string              `json:"dueDate"`
		Overdue    bool                `json:"overdue"`
		Business   core.Company        `json:"business"`
		Filer      core.Member         `json:"filer"`
		Recipients []Recipient         `json:"recipients"`
		Tax        core.TaxCalculation `json:"tax"`
	}

	// Recipient is one earner as sent to the filing service.
	Recipient struct {
		Name           string          `json:"name"`
		ResidentNumber string          `json:"residentNumber"`
		Phone          string          `json:"phone"`
		IncomeType     core.IncomeType `json:"incomeType"`
		IncomeCode     string          `json:"incomeCode"`
		PaymentDate    string          `json:"paymentDate"`
		AmountType     core.AmountType `json:"amountType"`
		Amount         int64           `json:"amount"`
		NationalTax    int64           `json:"nationalTax"`
		LocalTax       int64           `json:"localTax"`
	}
)

// NewRecipient maps an earner to its recipient record.
func NewRecipient(e core.IncomeEarner) Recipient {
	tax := core.EarnerTax(e)
	return Recipient{
		Name:           e.Name,
		ResidentNumber: core.Digits(e.ResidentNumber),
		Phone:          core.Digits(e.Phone),
		IncomeType:     e.IncomeType,
		IncomeCode:     e.IncomeCode,
		PaymentDate:    e.PaymentDate,
		AmountType:     e.AmountType,
		Amount:         e.Amount,
		NationalTax:    tax.NationalTax,
		LocalTax:       tax.LocalTax,
	}
}

func (c *Client) Companies(ctx context.Context) ([]core.Company, error) {
	var out envelope[[]core.Company]
	if _, err := c.do(ctx, http.MethodGet, "/api/companies", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// LookupCompany resolves a 10-digit registration number. Concurrent lookups
// of the same number share one request.
func (c *Client) LookupCompany(ctx context.Context, bizNumber string) (LookupResult, error) {
	digits := core.Digits(bizNumber)
	v, err, _ := c.lookup.Do(digits, func() (any, error) {
		var out envelope[LookupResult]
		_, err := c.do(ctx, http.MethodGet, "/api/companies/lookup/"+url.PathEscape(digits), nil, &out)
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return LookupResult{}, ErrNotFound
		}
		if err != nil {
			return LookupResult{}, err
		}
		if out.Data.BizNumber == "" {
			out.Data.BizNumber = digits
		}
		return out.Data, nil
	})
	if err != nil {
		return LookupResult{}, err
	}
	return v.(LookupResult), nil
}

// ReplaceCompanies overwrites the member's whole business list.
func (c *Client) ReplaceCompanies(ctx context.Context, companies []core.Company) error {
	type entry struct {
		Name      string `json:"name"`
		BizNumber string `json:"bizNumber"`
	}
	body := struct {
		Businesses []entry `json:"businesses"`
	}{Businesses: make([]entry, 0, len(companies))}
	for _, co := range companies {
		body.Businesses = append(body.Businesses, entry{Name: co.Name, BizNumber: core.Digits(co.BizNumber)})
	}
	_, err := c.do(ctx, http.MethodPut, "/api/companies", body, nil)
	return err
}

func (c *Client) Me(ctx context.Context) (core.Member, error) {
	var out envelope[core.Member]
	if _, err := c.do(ctx, http.MethodGet, "/api/members/me", nil, &out); err != nil {
		return core.Member{}, err
	}
	return out.Data, nil
}

func (c *Client) UpdateMe(ctx context.Context, m core.Member) error {
	_, err := c.do(ctx, http.MethodPatch, "/api/members/me", m, nil)
	return err
}

func (c *Client) Schedule(ctx context.Context, businessID int64, p core.Period) (ScheduleResult, error) {
	q := url.Values{}
	q.Set("year", strconv.Itoa(p.Year))
	q.Set("month", strconv.Itoa(p.Month))
	path := fmt.Sprintf("/api/business/%d/schedules?%s", businessID, q.Encode())

	var out envelope[ScheduleResult]
	if _, err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return ScheduleResult{}, err
	}
	return out.Data, nil
}

// MonthStatuses is keyed by core.Period.Key.
func (c *Client) MonthStatuses(ctx context.Context, businessID int64) (map[string]core.MonthStatus, error) {
	var out envelope[map[string]core.MonthStatus]
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/business/%d/month-statuses", businessID), nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		out.Data = map[string]core.MonthStatus{}
	}
	return out.Data, nil
}

// CreateFiling starts a filing job and returns its id.
func (c *Client) CreateFiling(ctx context.Context, businessID int64, req FilingRequest) (string, error) {
	var out envelope[struct {
		JobID string `json:"jobId"`
	}]
	path := fmt.Sprintf("/api/companies/%d/withholding-tax/filing", businessID)
	if _, err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return "", err
	}
	if out.Data.JobID == "" {
		return "", fmt.Errorf("POST %s: response has no job id", path)
	}
	return out.Data.JobID, nil
}

func (c *Client) FilingStatus(ctx context.Context, businessID int64, jobID string) (core.FilingStatus, error) {
	var out envelope[struct {
		Status core.FilingStatus `json:"status"`
	}]
	path := fmt.Sprintf("/api/companies/%d/withholding-tax/filing/%s/status", businessID, url.PathEscape(jobID))
	if _, err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	return out.Data.Status, nil
}

// Receipt downloads the filing receipt PDF.
func (c *Client) Receipt(ctx context.Context, businessID int64, jobID string) ([]byte, error) {
	path := fmt.Sprintf("/api/companies/%d/withholding-tax/filing/%s/receipt", businessID, url.PathEscape(jobID))
	resp, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// SocialLoginURL returns the provider's authorization page. This endpoint
// answers without the data envelope.
func (c *Client) SocialLoginURL(ctx context.Context, provider string) (string, error) {
	var out struct {
		URL string `json:"socialLoginUrl"`
	}
	path := "/api/auth/social-login-url?socialLoginType=" + url.QueryEscape(provider)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("GET %s: response has no login url", path)
	}
	return out.URL, nil
}
