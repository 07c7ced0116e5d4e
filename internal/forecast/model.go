// Package forecast builds monthly demand series and produces forecasts with
// the Mean and ARIMA models.
package forecast

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
)

// Model produces forecasts for a product. Target months may be in any order;
// results are returned in month order with quantities >= 0.
type Model interface {
	Forecast(ctx context.Context, product domain.Product, targets []time.Time) ([]domain.ForecastPoint, error)
}

// Options configures model dispatch.
type Options struct {
	// FallbackToMean re-runs an ARIMA product with the Mean model when its
	// history is too short. Other ARIMA errors are never retried.
	FallbackToMean  bool
	MinARIMAHistory int
	Fit             FitOptions
}

func DefaultOptions() Options {
	return Options{
		MinARIMAHistory: 12,
		Fit: FitOptions{
			MaxIterations: 2000,
			Timeout:       30 * time.Second,
		},
	}
}

// Forecaster selects a model from the product's configuration.
type Forecaster struct {
	mean     Model
	arima    Model
	fallback bool
}

func NewForecaster(builder *SeriesBuilder, opts Options) *Forecaster {
	return &Forecaster{
		mean:     NewMeanModel(builder),
		arima:    NewARIMAModel(builder, opts.MinARIMAHistory, opts.Fit),
		fallback: opts.FallbackToMean,
	}
}

func (f *Forecaster) Forecast(ctx context.Context, product domain.Product, targets []time.Time) ([]domain.ForecastPoint, error) {
	if err := product.Validate(); err != nil {
		return nil, err
	}
	model, _ := domain.ParseForecastModel(string(product.Model))

	switch model {
	case domain.ModelMean:
		return f.mean.Forecast(ctx, product, targets)
	case domain.ModelARIMA:
		points, err := f.arima.Forecast(ctx, product, targets)
		if err != nil && f.fallback && domain.IsInsufficientData(err) {
			log.Warn().
				Int64("product_id", product.ID).
				Str("product", product.Name).
				Err(err).
				Msg("ARIMA history too short, falling back to mean model")
			return f.mean.Forecast(ctx, product, targets)
		}
		return points, err
	default:
		return nil, &domain.ConfigurationError{ProductID: product.ID, Reason: "unrecognized forecast model " + string(product.Model)}
	}
}

var errNoTargets = errors.New("no target months requested")

// normalizeTargets maps targets to month starts, sorted and deduplicated.
func normalizeTargets(targets []time.Time) ([]time.Time, error) {
	if len(targets) == 0 {
		return nil, errNoTargets
	}

	seen := make(map[time.Time]bool, len(targets))
	months := make([]time.Time, 0, len(targets))
	for _, t := range targets {
		m := domain.MonthStart(t)
		if seen[m] {
			continue
		}
		seen[m] = true
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months, nil
}

func targetSet(targets []time.Time) map[time.Time]bool {
	set := make(map[time.Time]bool, len(targets))
	for _, t := range targets {
		set[t] = true
	}
	return set
}

// NextMonths lists the n months following asOf's month.
func NextMonths(asOf time.Time, n int) []time.Time {
	months := make([]time.Time, 0, n)
	for i := 1; i <= n; i++ {
		months = append(months, domain.AddMonths(asOf, i))
	}
	return months
}
