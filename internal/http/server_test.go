package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receitas/internal/core"
	"receitas/internal/services"
	"receitas/internal/storage/memory"
)

func newTestServer(t *testing.T, cfg ServerConfig) *Server {
	t.Helper()
	svc := services.NewEntryService(memory.New(), nil, core.MonthOfYear)
	srv, err := NewServer(cfg, svc)
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.RemoteAddr = "192.0.2.10:5000"
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const salaryJan = `{"description":"Salary","amount":"1000.00","date":"2024-01-15"}`

func TestCreateAndGetEntry(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	rec := do(t, srv, http.MethodPost, "/receitas", salaryJan)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[entryJSON](t, rec)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "1000.00", created.Amount)
	assert.Equal(t, "2024-01-15", created.Date)
	assert.Equal(t, "/receitas/1", rec.Header().Get("Location"))

	rec = do(t, srv, http.MethodGet, "/receitas/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decode[entryJSON](t, rec))
}

func TestCreateIgnoresBodyID(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	rec := do(t, srv, http.MethodPost, "/receitas", `{"id":42,"description":"Salary","amount":1000,"date":"2024-01-15"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, int64(1), decode[entryJSON](t, rec).ID)

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/receitas/42", "").Code)
}

func TestCreateDuplicateInMonthConflicts(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/receitas", salaryJan).Code)

	rec := do(t, srv, http.MethodPost, "/receitas", `{"description":"SALARY","amount":"500.00","date":"2024-01-28"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode[ErrorBody](t, rec).Error, "already exists")

	rec = do(t, srv, http.MethodPost, "/receitas", `{"description":"Salary","amount":"500.00","date":"2025-02-01"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{"description":`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
		{"wrong type", `{"description":12}`, http.StatusBadRequest},
		{"missing amount", `{"description":"Salary","date":"2024-01-15"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"description":"Salary","amount":"-5","date":"2024-01-15"}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"description":"Salary","amount":0,"date":"2024-01-15"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"description":"Salary","amount":"10","date":"15/01/2024"}`, http.StatusUnprocessableEntity},
		{"missing date", `{"description":"Salary","amount":"10"}`, http.StatusUnprocessableEntity},
		{"blank description", `{"description":"  ","amount":"10","date":"2024-01-15"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, ServerConfig{})
			rec := do(t, srv, http.MethodPost, "/receitas", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorBody](t, rec).Error)
		})
	}
}

func TestGetEntryErrors(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/receitas/7", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/receitas/0", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/receitas/abc", "").Code)
}

func TestListEntries(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	for _, body := range []string{
		salaryJan,
		`{"description":"Freelance","amount":"250.5","date":"2024-01-20"}`,
	} {
		require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/receitas", body).Code)
	}

	rec := do(t, srv, http.MethodGet, "/receitas", "")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]entryJSON](t, rec)
	require.Len(t, all, 2)
	assert.Equal(t, "250.50", all[1].Amount)

	rec = do(t, srv, http.MethodGet, "/receitas?description=salary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	matched := decode[[]entryJSON](t, rec)
	require.Len(t, matched, 1)
	assert.Equal(t, "Salary", matched[0].Description)

	rec = do(t, srv, http.MethodGet, "/receitas?description=nothing", "")
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestListMonthUsesCache(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/receitas", salaryJan).Code)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/receitas",
		`{"description":"Bonus","amount":"10","date":"2025-01-02"}`).Code)

	rec := do(t, srv, http.MethodGet, "/receitas/2024/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get(CacheHeader))
	jan := decode[[]entryJSON](t, rec)
	require.Len(t, jan, 1)
	assert.Equal(t, "Salary", jan[0].Description)

	rec = do(t, srv, http.MethodGet, "/receitas/2024/1", "")
	assert.Equal(t, "HIT", rec.Header().Get(CacheHeader))

	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/receitas",
		`{"description":"Rent","amount":"300","date":"2024-01-03"}`).Code)

	rec = do(t, srv, http.MethodGet, "/receitas/2024/1", "")
	assert.Equal(t, "MISS", rec.Header().Get(CacheHeader))
	assert.Len(t, decode[[]entryJSON](t, rec), 2)
}

func TestListMonthBadInput(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/receitas/2024/jan", "").Code)

	rec := do(t, srv, http.MethodGet, "/receitas/2024/13", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestUpdateEntry(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/receitas", salaryJan).Code)

	rec := do(t, srv, http.MethodPut, "/receitas/1", `{"id":99,"description":"Salary","amount":"1100","date":"2024-01-30"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[entryJSON](t, rec)
	assert.Equal(t, int64(1), updated.ID)
	assert.Equal(t, "1100.00", updated.Amount)

	assert.Equal(t, http.StatusNotFound,
		do(t, srv, http.MethodPut, "/receitas/5", salaryJan).Code)
	assert.Equal(t, http.StatusUnprocessableEntity,
		do(t, srv, http.MethodPut, "/receitas/1", `{"description":"Salary","amount":"x","date":"2024-01-30"}`).Code)
}

func TestUpdateIntoOccupiedMonthConflicts(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/receitas", salaryJan).Code)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/receitas",
		`{"description":"Salary","amount":"1000","date":"2024-02-15"}`).Code)

	rec := do(t, srv, http.MethodPut, "/receitas/2", `{"description":"Salary","amount":"1000","date":"2024-01-02"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteEntry(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/receitas", salaryJan).Code)

	rec := do(t, srv, http.MethodDelete, "/receitas/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/receitas/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/receitas/1", "").Code)
}

func TestHealthEndpointsAndMetrics(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	do(t, srv, http.MethodGet, "/receitas/1", "")
	rec := do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `receitas_http_requests_total{method="GET",route="/receitas/{id}",status="404"} 1`)
}

func TestResponsesCarryHeaders(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	rec := do(t, srv, http.MethodGet, "/receitas", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestWritesAreRateLimited(t *testing.T) {
	srv := newTestServer(t, ServerConfig{RateLimitPerMinute: 1})

	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/receitas", salaryJan).Code)

	rec := do(t, srv, http.MethodPost, "/receitas", `{"description":"Other","amount":"1","date":"2024-03-01"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// reads are never limited
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/receitas", "").Code)
}

type failingService struct {
	EntryService
	err error
}

func (f failingService) FindAll(context.Context) ([]core.Entry, error) {
	return nil, f.err
}

func TestStoreFailuresAreHidden(t *testing.T) {
	srv, err := NewServer(ServerConfig{}, failingService{err: errors.New("disk on fire")})
	require.NoError(t, err)

	rec := do(t, srv, http.MethodGet, "/receitas", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode[ErrorBody](t, rec).Error)

	assert.Equal(t, http.StatusServiceUnavailable, do(t, srv, http.MethodGet, "/readyz", "").Code)
}

func TestShutdownIsIdempotent(t *testing.T) {
	srv := newTestServer(t, ServerConfig{Addr: "127.0.0.1:0"})

	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, srv.Shutdown(context.Background()))
}

func TestRunMaintenanceStopsWithContext(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, srv.RunMaintenance(ctx))
}
