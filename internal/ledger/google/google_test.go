package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"wonchon/internal/core"
)

type fakeSheets struct {
	mu      sync.Mutex
	header  bool
	appends [][]any
	updates int
	options []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet:
		if f.header {
			_, _ = w.Write([]byte(`{"values":[["접수번호"]]}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPut:
		f.updates++
		f.header = true
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		var body struct {
			Values [][]any `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.appends = append(f.appends, body.Values[0])
		f.options = append(f.options, r.URL.Query().Get("valueInputOption"))
		_, _ = w.Write([]byte(`{"updates":{"updatedRange":"원천세!A2:K2"}}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return New(svc, "sheet-id", "원천세")
}

func testFiling() core.Filing {
	return core.Filing{
		JobID:        "job-1",
		BusinessName: "테스트상사",
		BizNumber:    "1234567890",
		Period:       core.Period{Year: 2025, Month: 12},
		EarnerCount:  1,
		TotalAmount:  1000000,
		Tax:          core.TaxCalculation{NationalTax: 30000, LocalTax: 3000, TotalTax: 33000},
		CompletedAt:  time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC),
	}
}

func TestClient_AppendFiling(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	ref, err := c.AppendFiling(context.Background(), testFiling())
	require.NoError(t, err)
	assert.Equal(t, "원천세!A2:K2", ref)

	_, err = c.AppendFiling(context.Background(), testFiling())
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 1, fake.updates, "header is written once")
	require.Len(t, fake.appends, 2)
	assert.Equal(t, "job-1", fake.appends[0][0])
	assert.Equal(t, "2025-12", fake.appends[0][3])
	assert.Equal(t, []string{"USER_ENTERED", "USER_ENTERED"}, fake.options)
}

func TestClient_AppendFilingKeepsExistingHeader(t *testing.T) {
	fake := &fakeSheets{header: true}
	c := newTestClient(t, fake)

	_, err := c.AppendFiling(context.Background(), testFiling())
	require.NoError(t, err)
	assert.Zero(t, fake.updates)
}

func TestClient_AppendFilingValidates(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	_, err := c.AppendFiling(context.Background(), core.Filing{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")

	_, err = c.AppendFiling(context.Background(), testFiling())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	_, err := NewFromEnv(context.Background(), " ", "")
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background(), "sheet-id", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")
}

func TestNewFromEnv_UnreadableCredentialsFile(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", t.TempDir()+"/missing.json")

	_, err := NewFromEnv(context.Background(), "sheet-id", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read service account file")
}
