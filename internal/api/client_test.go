package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wonchon/internal/core"
)

type fakeTokens struct {
	mu      sync.Mutex
	token   string
	cleared int
}

func (f *fakeTokens) Token(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.token == "" {
		return "", errors.New("no token")
	}
	return f.token, nil
}

func (f *fakeTokens) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.cleared++
	return nil
}

func newTestClient(t *testing.T, h http.Handler) (*Client, *fakeTokens) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	tokens := &fakeTokens{token: "tok"}
	return NewClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second, RetryCount: 2}, tokens), tokens
}

func writeData(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": v})
}

func TestCompaniesSendsBearerToken(t *testing.T) {
	var auth string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.Equal(t, "/api/companies", r.URL.Path)
		writeData(w, []core.Company{{ID: 7, Name: "해보자 컴퍼니", BizNumber: "1234567890"}})
	}))

	got, err := c.Companies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", auth)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].ID)
	assert.Equal(t, "해보자 컴퍼니", got[0].Name)
}

func TestUnauthorizedClearsToken(t *testing.T) {
	c, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.Me(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, tokens.cleared)
	assert.Empty(t, tokens.token)
}

func TestLookupCompany(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/companies/lookup/0000000000" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"존재하지 않는 사업자등록번호입니다."}`)
			return
		}
		writeData(w, map[string]string{"name": "해보자 컴퍼니"})
	}))

	got, err := c.LookupCompany(context.Background(), "123 45 67890")
	require.NoError(t, err)
	assert.Equal(t, LookupResult{Name: "해보자 컴퍼니", BizNumber: "1234567890"}, got)

	_, err = c.LookupCompany(context.Background(), "0000000000")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLookupCompanyCollapsesConcurrentCalls(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		writeData(w, map[string]string{"name": "A"})
	}))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.LookupCompany(context.Background(), "1234567890")
			assert.NoError(t, err)
		}()
	}
	// Give the goroutines time to join the in-flight call.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestReplaceCompaniesBody(t *testing.T) {
	var body map[string][]map[string]string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusNoContent)
	}))

	err := c.ReplaceCompanies(context.Background(), []core.Company{{Name: "A", BizNumber: "123 45 67890"}})
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{{"name": "A", "bizNumber": "1234567890"}}, body["businesses"])
}

func TestScheduleAndMonthStatuses(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/business/3/schedules":
			assert.Equal(t, "2025", r.URL.Query().Get("year"))
			assert.Equal(t, "12", r.URL.Query().Get("month"))
			writeData(w, map[string]any{
				"business": map[string]any{"id": 3, "name": "B", "bizNumber": "1112233333"},
				"schedule": nil,
			})
		case "/api/business/3/month-statuses":
			writeData(w, map[string]string{"2025-12": "completed"})
		default:
			http.NotFound(w, r)
		}
	}))

	res, err := c.Schedule(context.Background(), 3, core.Period{Year: 2025, Month: 12})
	require.NoError(t, err)
	assert.Equal(t, "B", res.Business.Name)
	assert.Nil(t, res.Schedule)

	statuses, err := c.MonthStatuses(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, core.MonthCompleted, statuses["2025-12"])
}

func TestCreateFilingIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.CreateFiling(context.Background(), 1, FilingRequest{Year: 2025, Month: 12})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetIsRetriedOnServerError(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeData(w, map[string]string{"status": "FILING"})
	}))

	status, err := c.FilingStatus(context.Background(), 1, "job-1")
	require.NoError(t, err)
	assert.Equal(t, core.FilingInProgress, status)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCreateFilingAndReceipt(t *testing.T) {
	var got FilingRequest
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/companies/9/withholding-tax/filing":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			writeData(w, map[string]string{"jobId": "job-42"})
		case "/api/companies/9/withholding-tax/filing/job-42/receipt":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4"))
		default:
			http.NotFound(w, r)
		}
	}))

	e := core.IncomeEarner{Name: "김철수", ResidentNumber: "900101-1234567", Phone: "010-1234-5678", Amount: 1_000_000}
	jobID, err := c.CreateFiling(context.Background(), 9, FilingRequest{
		Year: 2025, Month: 12, DueDate: "2026-01-10",
		Recipients: []Recipient{NewRecipient(e)},
	})
	require.NoError(t, err)
	assert.Equal(t, "job-42", jobID)
	require.Len(t, got.Recipients, 1)
	assert.Equal(t, "9001011234567", got.Recipients[0].ResidentNumber)
	assert.Equal(t, int64(30000), got.Recipients[0].NationalTax)
	assert.Equal(t, int64(3000), got.Recipients[0].LocalTax)

	pdf, err := c.Receipt(context.Background(), 9, "job-42")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(pdf))
}

func TestSocialLoginURL(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/social-login-url", r.URL.Path)
		require.Equal(t, "KAKAO", r.URL.Query().Get("socialLoginType"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"socialLoginUrl":"https://kauth.example/authorize?x=1"}`)
	}))

	got, err := c.SocialLoginURL(context.Background(), "KAKAO")
	require.NoError(t, err)
	assert.Equal(t, "https://kauth.example/authorize?x=1", got)
}
