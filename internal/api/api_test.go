package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/forecast"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/pipeline"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/pipeline/replenishment"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/repository/memory"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/service"
)

type mapReportCache struct {
	mu      sync.Mutex
	reports map[string]*domain.RunReport
}

func (m *mapReportCache) GetReport(_ context.Context, month time.Time) (*domain.RunReport, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[domain.MonthKey(month)]
	return r, ok, nil
}

func (m *mapReportCache) SetReport(_ context.Context, r *domain.RunReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[domain.MonthKey(r.TargetMonth)] = r
	return nil
}

func (m *mapReportCache) InvalidateReport(_ context.Context, month time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reports, domain.MonthKey(month))
	return nil
}

func (m *mapReportCache) InvalidateAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = map[string]*domain.RunReport{}
	return nil
}

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func newTestRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New()
	store.AddProduct(domain.Product{ID: 1, Name: "Alpha", Model: domain.ModelMean})
	store.AddProduct(domain.Product{ID: 2, Name: "Beta", Model: domain.ModelARIMA, Order: &domain.ARIMAOrder{P: 1, D: 0, Q: 0}})
	store.AddProduct(domain.Product{ID: 3, Name: "Charlie", Model: "PROPHET"})
	for i := 0; i < 12; i++ {
		store.AddSale(1, month(2024, time.Month(i+1)).AddDate(0, 0, 4), 10)
	}
	store.AddSale(2, month(2024, 11).AddDate(0, 0, 2), 5)

	repos := store.Repositories()
	forecasts := service.NewForecastService(repos, forecast.DefaultOptions())
	recommendations := service.NewRecommendationService(repos, replenishment.DefaultTrustPolicy(), service.DefaultLeadTimes())
	orchestrator := pipeline.NewOrchestrator(repos.Products, forecasts, recommendations, nil, pipeline.DefaultConfig())
	reports := service.NewReportService(nil, &mapReportCache{reports: map[string]*domain.RunReport{}})

	router := NewRouter(&Services{
		Orchestrator:    orchestrator,
		Forecasts:       forecasts,
		Recommendations: recommendations,
		Reports:         reports,
		Now:             func() time.Time { return time.Date(2024, 12, 31, 18, 0, 0, 0, time.UTC) },
	}, []string{"*"})
	return router, store
}

func do(router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(router, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRunBatchAndLatestReport(t *testing.T) {
	router, store := newTestRouter(t)

	rec := do(router, http.MethodGet, "/api/v1/forecast/runs/latest", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(router, http.MethodPost, "/api/v1/forecast/runs", []byte(`{"as_of":"2024-12-31"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report domain.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, month(2025, 1), report.TargetMonth)
	assert.Equal(t, []string{"Alpha"}, report.ForecastSuccess)
	assert.Equal(t, []string{"Alpha"}, report.RecommendationSuccess)
	require.Len(t, report.ForecastFailed, 2)
	assert.Equal(t, "Beta", report.ForecastFailed[0].Name)
	assert.Equal(t, "Charlie", report.ForecastFailed[1].Name)
	assert.Empty(t, report.RecommendationFailed)

	rows := store.Forecasts()
	require.Len(t, rows, 1)
	assert.Equal(t, 10.0, rows[0].Quantity)

	rec = do(router, http.MethodGet, "/api/v1/forecast/runs/latest?month=2025-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"prediksi_success":["Alpha"]`)

	rec = do(router, http.MethodGet, "/api/v1/forecast/runs/latest", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRunBatchSelectedProducts(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(router, http.MethodPost, "/api/v1/forecast/runs", []byte(`{"as_of":"2024-12-31","product_ids":[1,99]}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var report domain.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, []string{"Alpha"}, report.ForecastSuccess)
	require.Len(t, report.ForecastFailed, 1)
	assert.Equal(t, "#99", report.ForecastFailed[0].Name)

	rec = do(router, http.MethodPost, "/api/v1/forecast/runs", []byte(`{"as_of":"31-12-2024"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredict(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(router, http.MethodPost, "/api/v1/forecast/products/1/predict?as_of=2024-12-31&horizon=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Product   domain.Product         `json:"product"`
		Forecasts []domain.ForecastPoint `json:"forecasts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Alpha", body.Product.Name)
	require.Len(t, body.Forecasts, 2)
	assert.Equal(t, month(2025, 1), body.Forecasts[0].Month)
	assert.Equal(t, 10.0, body.Forecasts[0].Quantity)

	cases := []struct {
		path   string
		status int
	}{
		{"/api/v1/forecast/products/99/predict?as_of=2024-12-31", http.StatusNotFound},
		{"/api/v1/forecast/products/2/predict?as_of=2024-12-31", http.StatusUnprocessableEntity},
		{"/api/v1/forecast/products/3/predict?as_of=2024-12-31", http.StatusUnprocessableEntity},
		{"/api/v1/forecast/products/abc/predict", http.StatusBadRequest},
		{"/api/v1/forecast/products/1/predict?horizon=0", http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := do(router, http.MethodPost, tc.path, nil)
		assert.Equal(t, tc.status, rec.Code, tc.path)
	}
}

func TestStoredForecastsAndSeries(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(router, http.MethodGet, "/api/v1/forecast/products/1/forecasts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"forecasts":[]}`, rec.Body.String())

	do(router, http.MethodPost, "/api/v1/forecast/products/1/predict?as_of=2024-12-31", nil)

	rec = do(router, http.MethodGet, "/api/v1/forecast/products/1/forecasts?from=2024-06&to=2025-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stored struct {
		Forecasts []domain.ForecastRow `json:"forecasts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	require.Len(t, stored.Forecasts, 1)

	rec = do(router, http.MethodGet, "/api/v1/forecast/products/1/forecasts?from=2025-02&to=2025-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/forecast/products/1/series?cutoff=2024-12-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view service.SeriesView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Len(t, view.History, 12)
	assert.Len(t, view.LastTwelve, 12)
}

func TestRecommendationsAfterRun(t *testing.T) {
	router, _ := newTestRouter(t)

	do(router, http.MethodPost, "/api/v1/forecast/runs", []byte(`{"as_of":"2024-12-31"}`))

	rec := do(router, http.MethodGet, "/api/v1/forecast/products/1/recommendations?month=2025-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Recommendations []domain.Recommendation `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Recommendations, 1)
	r := body.Recommendations[0]
	assert.Equal(t, 1.0, r.SafetyStock)
	assert.Equal(t, 3.33, r.ReorderPoint)
	assert.Equal(t, 13.33, r.SuggestedOrderQuantity)

	rec = do(router, http.MethodGet, "/api/v1/forecast/products/2/recommendations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"recommendations":[]}`, rec.Body.String())
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " "})
	assert.False(t, all)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, origins)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}
