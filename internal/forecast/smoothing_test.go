package forecast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
)

func TestSavitzkyGolay(t *testing.T) {
	t.Run("preserves a quadratic including edges", func(t *testing.T) {
		values := make([]float64, 9)
		for i := range values {
			x := float64(i)
			values[i] = x*x + 3*x + 1
		}

		smoothed, err := SavitzkyGolay(values, SmoothingWindow, SmoothingOrder)

		require.NoError(t, err)
		assert.InDeltaSlice(t, values, smoothed, 1e-9)
	})

	t.Run("centre weights of a five point window", func(t *testing.T) {
		smoothed, err := SavitzkyGolay([]float64{0, 0, 10, 0, 0}, 5, 2)

		require.NoError(t, err)
		assert.InDelta(t, 170.0/35.0, smoothed[2], 1e-9)
	})

	t.Run("series shorter than the window", func(t *testing.T) {
		_, err := SavitzkyGolay([]float64{1, 2, 3, 4}, 5, 2)

		var insufficient *domain.InsufficientDataError
		require.True(t, errors.As(err, &insufficient))
		assert.Equal(t, 5, insufficient.Required)
		assert.Equal(t, 4, insufficient.Got)
	})

	t.Run("rejects an even window", func(t *testing.T) {
		_, err := SavitzkyGolay([]float64{1, 2, 3, 4, 5, 6}, 4, 2)
		assert.Error(t, err)
	})
}
