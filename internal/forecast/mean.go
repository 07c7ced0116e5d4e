package forecast

import (
	"context"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
)

const meanWindow = 12

// MeanModel predicts each month as the mean of the trailing 12 months of the
// back-filled view, feeding every prediction back in as an observation.
type MeanModel struct {
	builder *SeriesBuilder
}

func NewMeanModel(builder *SeriesBuilder) *MeanModel {
	return &MeanModel{builder: builder}
}

func (m *MeanModel) Forecast(ctx context.Context, product domain.Product, targets []time.Time) ([]domain.ForecastPoint, error) {
	targets, err := normalizeTargets(targets)
	if err != nil {
		return nil, err
	}

	cutoff := domain.AddMonths(targets[0], -1)
	history, err := m.builder.LastTwelveMonths(ctx, product.ID, cutoff)
	if err != nil {
		return nil, err
	}

	wanted := targetSet(targets)
	points := make([]domain.ForecastPoint, 0, len(targets))
	window := append(Series(nil), history...)
	var previous float64

	for _, month := range domain.MonthRange(targets[0], targets[len(targets)-1]) {
		trailing := window
		if len(trailing) > meanWindow {
			trailing = trailing[len(trailing)-meanWindow:]
		}

		prediction := previous
		if len(trailing) > 0 && !trailing.AllMissing() {
			prediction = clamp(windowMean(trailing.Values()))
		}

		window = append(window, domain.MonthlyPoint{
			Month:      month,
			Quantity:   prediction,
			Provenance: domain.ProvenancePredicted,
		})
		previous = prediction

		if wanted[month] {
			points = append(points, domain.ForecastPoint{Month: month, Quantity: prediction})
		}
	}

	return points, nil
}

// windowMean returns the value itself for a constant window so a flat history
// forecasts exactly that value.
func windowMean(values []float64) float64 {
	if floats.Min(values) == floats.Max(values) {
		return values[0]
	}
	return stat.Mean(values, nil)
}
