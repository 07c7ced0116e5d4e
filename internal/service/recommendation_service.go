package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/forecast"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/pipeline/replenishment"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/repository"
)

// LeadTimeDefaults apply when a product has no lead time record.
type LeadTimeDefaults struct {
	MaxLeadTime float64
	AvgLeadTime float64
}

func DefaultLeadTimes() LeadTimeDefaults {
	return LeadTimeDefaults{MaxLeadTime: 10, AvgLeadTime: 7}
}

type RecommendationService struct {
	sales           repository.SalesRepository
	inventory       repository.InventoryRepository
	recommendations repository.RecommendationRepository
	builder         *forecast.SeriesBuilder
	calc            *replenishment.Calculator
	defaults        LeadTimeDefaults
}

func NewRecommendationService(store repository.Store, policy replenishment.TrustPolicy, defaults LeadTimeDefaults) *RecommendationService {
	return &RecommendationService{
		sales:           store.Sales,
		inventory:       store.Inventory,
		recommendations: store.Recommendations,
		builder:         forecast.NewSeriesBuilder(store.Sales, store.Forecasts),
		calc:            replenishment.NewCalculator(policy),
		defaults:        defaults,
	}
}

// Recommend computes and appends a recommendation for the target month using
// usage up to asOf's month, the stock on hand at asOf and the forecast quantity.
func (s *RecommendationService) Recommend(ctx context.Context, product domain.Product, target, asOf time.Time, forecastQty float64) (*domain.Recommendation, error) {
	_, found, err := s.sales.GetFirstSaleDate(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &domain.RecommendationInputError{ProductID: product.ID, Reason: "product has no sales history"}
	}

	usage, err := s.builder.LastTwelveMonths(ctx, product.ID, asOf)
	if err != nil {
		return nil, err
	}

	leadTime, found, err := s.inventory.GetLeadTimeStats(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	if !found {
		leadTime = domain.LeadTimeStats{
			ProductID:   product.ID,
			MaxLeadTime: s.defaults.MaxLeadTime,
			AvgLeadTime: s.defaults.AvgLeadTime,
		}
	}

	stock, found, err := s.inventory.GetLatestStockSnapshot(ctx, product.ID, asOf)
	if err != nil {
		return nil, err
	}
	if !found {
		log.Debug().Int64("product_id", product.ID).Msg("no stock snapshot, assuming zero on hand")
	}

	metrics, err := s.calc.Calculate(replenishment.Input{
		ProductID:        product.ID,
		MonthlySales:     usage,
		MaxLeadTime:      leadTime.MaxLeadTime,
		AvgLeadTime:      leadTime.AvgLeadTime,
		ActualStock:      stock.Quantity,
		ForecastQuantity: forecastQty,
	})
	if err != nil {
		return nil, err
	}

	rec := &domain.Recommendation{
		ProductID:              product.ID,
		Month:                  domain.MonthStart(target),
		MaxLeadTime:            leadTime.MaxLeadTime,
		AvgLeadTime:            leadTime.AvgLeadTime,
		SafetyStock:            metrics.SafetyStock,
		ReorderPoint:           metrics.ReorderPoint,
		ActualStock:            stock.Quantity,
		ForecastQuantity:       domain.Round2(forecastQty),
		SuggestedOrderQuantity: metrics.SuggestedOrderQuantity,
	}
	if err := s.recommendations.InsertRecommendation(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to store recommendation: %w", err)
	}

	return rec, nil
}

func (s *RecommendationService) List(ctx context.Context, productID int64, month time.Time) ([]domain.Recommendation, error) {
	return s.recommendations.ListRecommendations(ctx, productID, month)
}
