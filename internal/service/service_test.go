package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/forecast"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/pipeline/replenishment"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/repository/memory"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/storage"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func seedYear(s *memory.Store, productID int64, qty float64) {
	for i := 0; i < 12; i++ {
		s.AddSale(productID, month(2024, time.Month(i+1)).AddDate(0, 0, 3), qty)
	}
}

func TestForecastService_Predict(t *testing.T) {
	ctx := context.Background()

	t.Run("stores one row per target month", func(t *testing.T) {
		store := memory.New()
		product := domain.Product{ID: 1, Name: "Alpha", Model: domain.ModelMean}
		store.AddProduct(product)
		seedYear(store, 1, 10.006)
		svc := NewForecastService(store.Repositories(), forecast.DefaultOptions())

		points, err := svc.Predict(ctx, product, []time.Time{month(2025, 1), month(2025, 2)})
		require.NoError(t, err)
		_, err = svc.Predict(ctx, product, []time.Time{month(2025, 1)})
		require.NoError(t, err)

		require.Len(t, points, 2)
		assert.Equal(t, 10.01, points[0].Quantity)
		rows := store.Forecasts()
		require.Len(t, rows, 2)
		assert.Equal(t, month(2025, 1), rows[0].Month)
		assert.Equal(t, 10.01, rows[0].Quantity)
	})

	t.Run("nothing is written on failure", func(t *testing.T) {
		store := memory.New()
		product := domain.Product{ID: 1, Name: "Beta", Model: domain.ModelARIMA, Order: &domain.ARIMAOrder{P: 1, D: 0, Q: 0}}
		store.AddProduct(product)
		store.AddSale(1, month(2024, 12), 3)
		svc := NewForecastService(store.Repositories(), forecast.DefaultOptions())

		_, err := svc.Predict(ctx, product, []time.Time{month(2025, 1)})

		assert.True(t, domain.IsInsufficientData(err))
		assert.Empty(t, store.Forecasts())
	})

	t.Run("unknown product", func(t *testing.T) {
		svc := NewForecastService(memory.New().Repositories(), forecast.DefaultOptions())

		_, _, err := svc.PredictByID(ctx, 42, month(2024, 12), 3)

		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})

	t.Run("horizon from as-of", func(t *testing.T) {
		store := memory.New()
		store.AddProduct(domain.Product{ID: 1, Name: "Alpha", Model: domain.ModelMean})
		seedYear(store, 1, 6)
		svc := NewForecastService(store.Repositories(), forecast.DefaultOptions())

		product, points, err := svc.PredictByID(ctx, 1, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), 3)

		require.NoError(t, err)
		assert.Equal(t, "Alpha", product.Name)
		require.Len(t, points, 3)
		assert.Equal(t, month(2025, 3), points[2].Month)
	})
}

func TestRecommendationService_Recommend(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	target := month(2025, 1)
	product := domain.Product{ID: 1, Name: "Alpha", Model: domain.ModelMean}

	newService := func(store *memory.Store) *RecommendationService {
		return NewRecommendationService(store.Repositories(), replenishment.DefaultTrustPolicy(), DefaultLeadTimes())
	}

	t.Run("defaults when lead time and stock are unknown", func(t *testing.T) {
		store := memory.New()
		seedYear(store, 1, 10)

		rec, err := newService(store).Recommend(ctx, product, target, asOf, 10)

		require.NoError(t, err)
		assert.Equal(t, 1.0, rec.SafetyStock)
		assert.Equal(t, 3.33, rec.ReorderPoint)
		assert.Equal(t, 13.33, rec.SuggestedOrderQuantity)
		assert.Equal(t, target, rec.Month)
		assert.NotZero(t, rec.ID)
	})

	t.Run("uses stored lead time and latest snapshot", func(t *testing.T) {
		store := memory.New()
		seedYear(store, 1, 30)
		store.SetLeadTime(domain.LeadTimeStats{ProductID: 1, MaxLeadTime: 20, AvgLeadTime: 10})
		store.AddStockSnapshot(domain.StockSnapshot{ProductID: 1, AsOf: time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC), Quantity: 4})
		store.AddStockSnapshot(domain.StockSnapshot{ProductID: 1, AsOf: time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC), Quantity: 6})
		store.AddStockSnapshot(domain.StockSnapshot{ProductID: 1, AsOf: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), Quantity: 500})

		rec, err := newService(store).Recommend(ctx, product, target, asOf, 30)

		require.NoError(t, err)
		// daily usage 1: safety 20 - 10 = 10, reorder 10 + 10 = 20, order 20 + 30 - 10
		assert.Equal(t, 10.0, rec.ActualStock)
		assert.Equal(t, 10.0, rec.SafetyStock)
		assert.Equal(t, 20.0, rec.ReorderPoint)
		assert.Equal(t, 40.0, rec.SuggestedOrderQuantity)
	})

	t.Run("product that never sold", func(t *testing.T) {
		store := memory.New()

		_, err := newService(store).Recommend(ctx, product, target, asOf, 0)

		var inputErr *domain.RecommendationInputError
		assert.True(t, errors.As(err, &inputErr))
		assert.Empty(t, store.Recommendations())
	})

	t.Run("rows are appended", func(t *testing.T) {
		store := memory.New()
		seedYear(store, 1, 10)
		svc := newService(store)

		_, err := svc.Recommend(ctx, product, target, asOf, 10)
		require.NoError(t, err)
		_, err = svc.Recommend(ctx, product, target, asOf, 12)
		require.NoError(t, err)

		recs, err := svc.List(ctx, 1, target)
		require.NoError(t, err)
		assert.Len(t, recs, 2)
	})
}

type fakeReportStore struct {
	report *domain.RunReport
	calls  int
}

func (f *fakeReportStore) LatestReport(context.Context, time.Time) (*domain.RunReport, bool, error) {
	f.calls++
	return f.report, f.report != nil, nil
}

func TestReportService_Latest(t *testing.T) {
	ctx := context.Background()
	report := domain.NewRunReport(month(2025, 1))
	store := &fakeReportStore{report: report}
	svc := NewReportService(store, nil)

	got, ok, err := svc.Latest(ctx, month(2025, 1))

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, report, got)
	assert.Equal(t, 1, store.calls)

	empty := NewReportService(&fakeReportStore{}, nil)
	_, ok, err = empty.Latest(ctx, month(2025, 1))
	require.NoError(t, err)
	assert.False(t, ok)
}

type uploadRecorder struct {
	uploads map[string][]byte
}

func (u *uploadRecorder) ListObjects(context.Context, string) ([]storage.ObjectInfo, error) {
	return nil, nil
}

func (u *uploadRecorder) DownloadObject(context.Context, string, string) error { return nil }

func (u *uploadRecorder) UploadObject(_ context.Context, key string, data []byte) error {
	u.uploads[key] = data
	return nil
}

func TestReportService_Archive(t *testing.T) {
	report := domain.NewRunReport(month(2025, 1))
	report.RunID = 7
	report.ForecastSuccess = []string{"Alpha"}
	store := &uploadRecorder{uploads: map[string][]byte{}}

	key, err := NewReportService(nil, nil).Archive(context.Background(), store, report)

	require.NoError(t, err)
	assert.Equal(t, "reports/2025-01/run-7.json", key)
	var decoded domain.RunReport
	require.NoError(t, json.Unmarshal(store.uploads[key], &decoded))
	assert.Equal(t, []string{"Alpha"}, decoded.ForecastSuccess)

	report.RunID = 0
	assert.Equal(t, "reports/2025-01/latest.json", ArchiveKey(report))
}
