package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/forecast"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/repository"
)

// ForecastService runs a product's model and reconciles the results into the
// forecast table.
type ForecastService struct {
	products  repository.ProductRepository
	forecasts repository.ForecastRepository
	builder   *forecast.SeriesBuilder
	model     forecast.Model
}

func NewForecastService(store repository.Store, opts forecast.Options) *ForecastService {
	builder := forecast.NewSeriesBuilder(store.Sales, store.Forecasts)
	return &ForecastService{
		products:  store.Products,
		forecasts: store.Forecasts,
		builder:   builder,
		model:     forecast.NewForecaster(builder, opts),
	}
}

// Predict forecasts the target months and upserts one row per month.
// Nothing is written when the model fails.
func (s *ForecastService) Predict(ctx context.Context, product domain.Product, targets []time.Time) ([]domain.ForecastPoint, error) {
	points, err := s.model.Forecast(ctx, product, targets)
	if err != nil {
		return nil, err
	}

	for i, p := range points {
		if err := s.forecasts.UpsertForecast(ctx, product.ID, p.Month, p.Quantity); err != nil {
			return nil, fmt.Errorf("failed to store forecast for %s: %w", domain.MonthKey(p.Month), err)
		}
		points[i].Quantity = domain.Round2(p.Quantity)
	}

	log.Debug().
		Int64("product_id", product.ID).
		Str("product", product.Name).
		Str("model", string(product.Model)).
		Int("months", len(points)).
		Msg("forecast stored")

	return points, nil
}

// PredictByID forecasts the horizon months following asOf's month.
func (s *ForecastService) PredictByID(ctx context.Context, productID int64, asOf time.Time, horizon int) (domain.Product, []domain.ForecastPoint, error) {
	if horizon <= 0 {
		horizon = 1
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, nil, err
	}

	points, err := s.Predict(ctx, product, forecast.NextMonths(asOf, horizon))
	return product, points, err
}

func (s *ForecastService) StoredForecasts(ctx context.Context, productID int64, start, end time.Time) ([]domain.ForecastRow, error) {
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.forecasts.GetStoredForecasts(ctx, productID, start, end)
}

// SeriesView is the raw history and the back-filled last-12 view of a product.
type SeriesView struct {
	History    forecast.Series `json:"history"`
	LastTwelve forecast.Series `json:"last_twelve"`
}

func (s *ForecastService) Series(ctx context.Context, productID int64, cutoff time.Time) (*SeriesView, error) {
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	history, err := s.builder.FullHistory(ctx, productID, cutoff)
	if err != nil {
		return nil, err
	}
	lastTwelve, err := s.builder.LastTwelveMonths(ctx, productID, cutoff)
	if err != nil {
		return nil, err
	}

	return &SeriesView{History: history, LastTwelve: lastTwelve}, nil
}
