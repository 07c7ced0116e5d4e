package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/repository/memory"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// seedMonthlySales records one sale on the 15th of each consecutive month.
func seedMonthlySales(s *memory.Store, productID int64, start time.Time, values ...float64) {
	for i, v := range values {
		s.AddSale(productID, domain.AddMonths(start, i).AddDate(0, 0, 14), v)
	}
}

func TestBuildMonthlySeries(t *testing.T) {
	t.Run("no transactions yields an empty series", func(t *testing.T) {
		series := BuildMonthlySeries(nil, month(2024, 1), month(2024, 12))
		assert.Empty(t, series)
	})

	t.Run("fills gaps with zero", func(t *testing.T) {
		points := []domain.MonthlySalesPoint{
			{Month: month(2024, 1), Quantity: 5},
			{Month: month(2024, 3), Quantity: 7},
		}

		series := BuildMonthlySeries(points, month(2024, 1), month(2024, 4))

		require.Len(t, series, 4)
		assert.Equal(t, []float64{5, 0, 7, 0}, series.Values())
		assert.Equal(t, domain.ProvenanceSales, series[0].Provenance)
		assert.Equal(t, domain.ProvenanceMissing, series[1].Provenance)
		assert.Equal(t, month(2024, 2), series[1].Month)
	})

	t.Run("sums points falling in the same month", func(t *testing.T) {
		points := []domain.MonthlySalesPoint{
			{Month: month(2024, 2), Quantity: 3},
			{Month: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC), Quantity: 4},
		}

		series := BuildMonthlySeries(points, month(2024, 2), month(2024, 2))

		require.Len(t, series, 1)
		assert.Equal(t, 7.0, series[0].Quantity)
	})
}

func TestSeriesBuilder_FullHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("product without sales", func(t *testing.T) {
		store := memory.New()
		builder := NewSeriesBuilder(store, store)

		series, err := builder.FullHistory(ctx, 1, month(2024, 12))

		require.NoError(t, err)
		assert.Empty(t, series)
	})

	t.Run("runs from first sale to cutoff", func(t *testing.T) {
		store := memory.New()
		store.AddSale(1, time.Date(2023, 3, 9, 0, 0, 0, 0, time.UTC), 4)
		store.AddSale(1, time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC), 6)
		store.AddSale(1, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 100)
		builder := NewSeriesBuilder(store, store)

		series, err := builder.FullHistory(ctx, 1, month(2023, 12))

		require.NoError(t, err)
		require.Len(t, series, 10)
		assert.Equal(t, month(2023, 3), series[0].Month)
		assert.Equal(t, month(2023, 12), series[9].Month)
		assert.Equal(t, 4.0, series[0].Quantity)
		assert.Equal(t, 6.0, series[4].Quantity)
	})
}

func TestSeriesBuilder_Build(t *testing.T) {
	ctx := context.Background()

	t.Run("range without sales for a product with history", func(t *testing.T) {
		store := memory.New()
		store.AddSale(1, time.Date(2023, 3, 9, 0, 0, 0, 0, time.UTC), 4)
		builder := NewSeriesBuilder(store, store)

		series, err := builder.Build(ctx, 1, month(2024, 1), month(2024, 3))

		require.NoError(t, err)
		require.Len(t, series, 3)
		assert.Equal(t, []float64{0, 0, 0}, series.Values())
		assert.True(t, series.AllMissing())
		assert.Equal(t, month(2024, 3), series[2].Month)
	})

	t.Run("product that never sold", func(t *testing.T) {
		store := memory.New()
		builder := NewSeriesBuilder(store, store)

		series, err := builder.Build(ctx, 1, month(2024, 1), month(2024, 3))

		require.NoError(t, err)
		assert.Empty(t, series)
	})
}

func TestSeriesBuilder_LastTwelveMonths(t *testing.T) {
	ctx := context.Background()

	t.Run("back-fills from stored forecasts", func(t *testing.T) {
		store := memory.New()
		store.AddSale(1, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), 10)
		store.AddSale(1, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 8)
		require.NoError(t, store.UpsertForecast(ctx, 1, month(2024, 2), 4))
		require.NoError(t, store.UpsertForecast(ctx, 1, month(2024, 3), 99))
		builder := NewSeriesBuilder(store, store)

		series, err := builder.LastTwelveMonths(ctx, 1, month(2024, 12))

		require.NoError(t, err)
		require.Len(t, series, 12)
		assert.Equal(t, month(2024, 1), series[0].Month)
		assert.Equal(t, domain.MonthlyPoint{Month: month(2024, 1), Quantity: 10, Provenance: domain.ProvenanceSales}, series[0])
		assert.Equal(t, domain.MonthlyPoint{Month: month(2024, 2), Quantity: 4, Provenance: domain.ProvenanceForecast}, series[1])
		assert.Equal(t, domain.MonthlyPoint{Month: month(2024, 3), Quantity: 8, Provenance: domain.ProvenanceSales}, series[2])
		assert.Equal(t, domain.MonthlyPoint{Month: month(2024, 4), Quantity: 0, Provenance: domain.ProvenanceMissing}, series[3])
	})

	t.Run("negative net sales are kept over stored forecasts", func(t *testing.T) {
		store := memory.New()
		store.AddSale(1, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), 2)
		store.AddSale(1, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), -5)
		require.NoError(t, store.UpsertForecast(ctx, 1, month(2024, 5), 7))
		builder := NewSeriesBuilder(store, store)

		series, err := builder.LastTwelveMonths(ctx, 1, month(2024, 12))

		require.NoError(t, err)
		assert.Equal(t, domain.MonthlyPoint{Month: month(2024, 5), Quantity: -3, Provenance: domain.ProvenanceSales}, series[4])
	})

	t.Run("always has twelve points", func(t *testing.T) {
		store := memory.New()
		builder := NewSeriesBuilder(store, store)

		series, err := builder.LastTwelveMonths(ctx, 7, time.Date(2024, 6, 17, 8, 0, 0, 0, time.UTC))

		require.NoError(t, err)
		require.Len(t, series, 12)
		assert.True(t, series.AllMissing())
		assert.Equal(t, month(2023, 7), series[0].Month)
		assert.Equal(t, month(2024, 6), series[11].Month)
	})
}
