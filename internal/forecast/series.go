package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/repository"
)

// Series is a contiguous run of monthly points ordered by month.
type Series []domain.MonthlyPoint

// Values returns the quantities of the series.
func (s Series) Values() []float64 {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = p.Quantity
	}
	return values
}

// AllMissing reports whether no point carries an observed or stored value.
func (s Series) AllMissing() bool {
	for _, p := range s {
		if p.Provenance != domain.ProvenanceMissing {
			return false
		}
	}
	return true
}

// BuildMonthlySeries turns aggregated monthly sales into a contiguous series
// over [start, end]. Months without sales are zero-filled and tagged missing.
// An empty input yields an empty series.
func BuildMonthlySeries(points []domain.MonthlySalesPoint, start, end time.Time) Series {
	if len(points) == 0 {
		return Series{}
	}

	totals := make(map[time.Time]float64, len(points))
	for _, p := range points {
		q := p.Quantity
		if math.IsNaN(q) || math.IsInf(q, 0) {
			q = 0
		}
		totals[domain.MonthStart(p.Month)] += q
	}

	months := domain.MonthRange(start, end)
	series := make(Series, 0, len(months))
	for _, m := range months {
		point := domain.MonthlyPoint{Month: m, Provenance: domain.ProvenanceMissing}
		if q, ok := totals[m]; ok {
			point.Quantity = q
			point.Provenance = domain.ProvenanceSales
		}
		series = append(series, point)
	}
	return series
}

// SeriesBuilder reads sales and stored forecasts to produce monthly series.
type SeriesBuilder struct {
	sales     repository.SalesRepository
	forecasts repository.ForecastRepository
}

func NewSeriesBuilder(sales repository.SalesRepository, forecasts repository.ForecastRepository) *SeriesBuilder {
	return &SeriesBuilder{sales: sales, forecasts: forecasts}
}

// Build returns the zero-filled raw series for [start, end]. The series is
// empty only for a product that has never sold.
func (b *SeriesBuilder) Build(ctx context.Context, productID int64, start, end time.Time) (Series, error) {
	start, end = domain.MonthStart(start), domain.MonthStart(end)
	points, err := b.sales.GetMonthlySales(ctx, productID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly sales for product %d: %w", productID, err)
	}
	if len(points) > 0 {
		return BuildMonthlySeries(points, start, end), nil
	}

	_, found, err := b.sales.GetFirstSaleDate(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get first sale date for product %d: %w", productID, err)
	}
	if !found {
		return Series{}, nil
	}
	return missingSeries(start, end), nil
}

func missingSeries(start, end time.Time) Series {
	months := domain.MonthRange(start, end)
	series := make(Series, 0, len(months))
	for _, m := range months {
		series = append(series, domain.MonthlyPoint{Month: m, Provenance: domain.ProvenanceMissing})
	}
	return series
}

// FullHistory returns the raw series from the first recorded sale up to cutoff.
func (b *SeriesBuilder) FullHistory(ctx context.Context, productID int64, cutoff time.Time) (Series, error) {
	first, found, err := b.sales.GetFirstSaleDate(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get first sale date for product %d: %w", productID, err)
	}
	if !found || domain.MonthStart(first).After(domain.MonthStart(cutoff)) {
		return Series{}, nil
	}
	return b.Build(ctx, productID, first, cutoff)
}

// LastTwelveMonths returns exactly 12 points ending at cutoff's month. A month
// keeps its sales when non-zero, otherwise takes the stored forecast for that
// month, otherwise is 0 and tagged missing.
func (b *SeriesBuilder) LastTwelveMonths(ctx context.Context, productID int64, cutoff time.Time) (Series, error) {
	end := domain.MonthStart(cutoff)
	start := domain.AddMonths(end, -11)

	points, err := b.sales.GetMonthlySales(ctx, productID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly sales for product %d: %w", productID, err)
	}
	stored, err := b.forecasts.GetStoredForecasts(ctx, productID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get stored forecasts for product %d: %w", productID, err)
	}

	sales := make(map[time.Time]float64, len(points))
	for _, p := range points {
		if !math.IsNaN(p.Quantity) {
			sales[domain.MonthStart(p.Month)] += p.Quantity
		}
	}
	forecasts := make(map[time.Time]float64, len(stored))
	for _, row := range stored {
		forecasts[domain.MonthStart(row.Month)] = row.Quantity
	}

	series := make(Series, 0, 12)
	for _, m := range domain.MonthRange(start, end) {
		switch {
		case sales[m] != 0:
			series = append(series, domain.MonthlyPoint{Month: m, Quantity: sales[m], Provenance: domain.ProvenanceSales})
		case hasKey(forecasts, m):
			series = append(series, domain.MonthlyPoint{Month: m, Quantity: forecasts[m], Provenance: domain.ProvenanceForecast})
		default:
			series = append(series, domain.MonthlyPoint{Month: m, Provenance: domain.ProvenanceMissing})
		}
	}
	return series, nil
}

func hasKey(m map[time.Time]float64, k time.Time) bool {
	_, ok := m[k]
	return ok
}
