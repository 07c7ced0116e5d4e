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

func TestForecaster_Forecast(t *testing.T) {
	ctx := context.Background()
	target := []time.Time{month(2024, 7)}

	newForecaster := func(fallback bool) (*Forecaster, *memory.Store) {
		store := memory.New()
		seedMonthlySales(store, 1, month(2024, 1), 6, 6, 6, 6, 6, 6)
		opts := DefaultOptions()
		opts.FallbackToMean = fallback
		return NewForecaster(NewSeriesBuilder(store, store), opts), store
	}

	t.Run("unknown model label", func(t *testing.T) {
		f, _ := newForecaster(true)

		_, err := f.Forecast(ctx, domain.Product{ID: 1, Model: "PROPHET"}, target)

		assert.True(t, domain.IsConfiguration(err))
	})

	t.Run("ARIMA without order", func(t *testing.T) {
		f, _ := newForecaster(true)

		_, err := f.Forecast(ctx, domain.Product{ID: 1, Model: domain.ModelARIMA}, target)

		assert.True(t, domain.IsConfiguration(err))
	})

	t.Run("lower-case label dispatches", func(t *testing.T) {
		f, _ := newForecaster(false)

		points, err := f.Forecast(ctx, domain.Product{ID: 1, Model: "mean"}, target)

		require.NoError(t, err)
		assert.InDelta(t, 3.0, points[0].Quantity, 1e-9)
	})

	t.Run("short history without fallback", func(t *testing.T) {
		f, _ := newForecaster(false)
		product := domain.Product{ID: 1, Model: domain.ModelARIMA, Order: &domain.ARIMAOrder{P: 1, D: 1, Q: 0}}

		_, err := f.Forecast(ctx, product, target)

		assert.True(t, domain.IsInsufficientData(err))
	})

	t.Run("short history falls back to mean", func(t *testing.T) {
		f, _ := newForecaster(true)
		product := domain.Product{ID: 1, Model: domain.ModelARIMA, Order: &domain.ARIMAOrder{P: 1, D: 1, Q: 0}}

		points, err := f.Forecast(ctx, product, target)

		require.NoError(t, err)
		require.Len(t, points, 1)
		assert.InDelta(t, 3.0, points[0].Quantity, 1e-9)
	})
}

func TestNextMonths(t *testing.T) {
	months := NextMonths(time.Date(2024, 11, 30, 23, 0, 0, 0, time.UTC), 3)
	assert.Equal(t, []time.Time{month(2024, 12), month(2025, 1), month(2025, 2)}, months)
}
