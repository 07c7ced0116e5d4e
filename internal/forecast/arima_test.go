package forecast

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/repository/memory"
)

var testFitOptions = FitOptions{MaxIterations: 2000, Timeout: 30 * time.Second}

func TestFitARIMA(t *testing.T) {
	t.Run("random walk forecasts the last value", func(t *testing.T) {
		y := make([]float64, 14)
		for i := range y {
			y[i] = 5 + 2*float64(i)
		}

		fit, err := FitARIMA(y, ARIMAOrder{P: 0, D: 1, Q: 0}, testFitOptions)

		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{31, 31}, fit.Forecast(2), 1e-9)
	})

	t.Run("second differences extrapolate the last slope", func(t *testing.T) {
		y := make([]float64, 14)
		for i := range y {
			y[i] = float64(i * i)
		}

		fit, err := FitARIMA(y, ARIMAOrder{P: 0, D: 2, Q: 0}, testFitOptions)

		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{194, 219}, fit.Forecast(2), 1e-9)
	})

	t.Run("white noise forecasts the mean", func(t *testing.T) {
		y := []float64{4, 6, 5, 5, 4, 6, 5, 5, 4, 6, 5, 5}

		fit, err := FitARIMA(y, ARIMAOrder{}, testFitOptions)

		require.NoError(t, err)
		assert.InDelta(t, 5.0, fit.Mu, 1e-9)
		assert.InDeltaSlice(t, []float64{5, 5, 5}, fit.Forecast(3), 1e-9)
	})

	t.Run("autoregressive fit stays stationary", func(t *testing.T) {
		y := []float64{12, 14, 13, 15, 17, 16, 14, 13, 15, 18, 19, 17, 15, 14, 16, 18, 20, 19, 17, 16}

		fit, err := FitARIMA(y, ARIMAOrder{P: 1, D: 0, Q: 1}, testFitOptions)

		require.NoError(t, err)
		require.Len(t, fit.Phi, 1)
		require.Len(t, fit.Theta, 1)
		assert.Less(t, math.Abs(fit.Phi[0]), 1.0)
		assert.Less(t, math.Abs(fit.Theta[0]), 1.0)
		for _, v := range fit.Forecast(6) {
			assert.False(t, math.IsNaN(v))
		}
	})

	t.Run("too few observations after differencing", func(t *testing.T) {
		_, err := FitARIMA([]float64{1, 2, 3, 4, 5}, ARIMAOrder{P: 2, D: 1, Q: 1}, testFitOptions)

		assert.True(t, domain.IsInsufficientData(err))
	})
}

func TestConstrainStationary(t *testing.T) {
	assert.Empty(t, constrainStationary(nil))
	assert.InDeltaSlice(t, []float64{math.Tanh(0.7)}, constrainStationary([]float64{0.7}), 1e-12)

	r1, r2 := math.Tanh(0.5), math.Tanh(-0.3)
	assert.InDeltaSlice(t, []float64{r1 - r2*r1, r2}, constrainStationary([]float64{0.5, -0.3}), 1e-12)
}

func TestARIMAModel_Forecast(t *testing.T) {
	ctx := context.Background()
	order := &domain.ARIMAOrder{P: 0, D: 1, Q: 0}

	t.Run("eleven months of history is not enough", func(t *testing.T) {
		store := memory.New()
		seedMonthlySales(store, 1, month(2024, 1), 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15)
		model := NewARIMAModel(NewSeriesBuilder(store, store), 12, testFitOptions)

		_, err := model.Forecast(ctx, domain.Product{ID: 1, Model: domain.ModelARIMA, Order: order}, []time.Time{month(2024, 12)})

		var insufficient *domain.InsufficientDataError
		require.True(t, errors.As(err, &insufficient))
		assert.Equal(t, int64(1), insufficient.ProductID)
		assert.Equal(t, 12, insufficient.Required)
		assert.Equal(t, 11, insufficient.Got)
	})

	t.Run("linear trend", func(t *testing.T) {
		store := memory.New()
		values := make([]float64, 24)
		for i := range values {
			values[i] = 10 + float64(i)
		}
		seedMonthlySales(store, 1, month(2023, 1), values...)
		model := NewARIMAModel(NewSeriesBuilder(store, store), 12, testFitOptions)

		points, err := model.Forecast(ctx, domain.Product{ID: 1, Model: domain.ModelARIMA, Order: order}, []time.Time{month(2025, 1)})

		require.NoError(t, err)
		require.Len(t, points, 1)
		assert.Equal(t, month(2025, 1), points[0].Month)
		assert.InDelta(t, 33.0, points[0].Quantity, 1e-6)
	})

	t.Run("negative predictions are clamped", func(t *testing.T) {
		store := memory.New()
		values := make([]float64, 12)
		for i := range values {
			values[i] = 120 - 10*float64(i)
		}
		seedMonthlySales(store, 1, month(2024, 1), values...)
		model := NewARIMAModel(NewSeriesBuilder(store, store), 12, testFitOptions)
		product := domain.Product{ID: 1, Model: domain.ModelARIMA, Order: &domain.ARIMAOrder{P: 0, D: 2, Q: 0}}

		points, err := model.Forecast(ctx, product, []time.Time{month(2025, 2), month(2025, 1)})

		require.NoError(t, err)
		require.Len(t, points, 2)
		assert.Equal(t, month(2025, 1), points[0].Month)
		for _, p := range points {
			assert.GreaterOrEqual(t, p.Quantity, 0.0)
			assert.InDelta(t, 0.0, p.Quantity, 1e-6)
		}
	})
}
