// backend-go/internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
)

// ProductRepository reads products. Rows are returned as stored; model
// configuration is validated when a forecast is dispatched.
type ProductRepository interface {
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	GetProductByName(ctx context.Context, name string) (domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	// ListProductsByIDs returns the products that exist among ids; unknown ids are skipped.
	ListProductsByIDs(ctx context.Context, ids []int64) ([]domain.Product, error)
}

// SalesRepository reads and imports sales. Month bounds are inclusive and
// refer to the first day of the month.
type SalesRepository interface {
	GetMonthlySales(ctx context.Context, productID int64, start, end time.Time) ([]domain.MonthlySalesPoint, error)
	GetFirstSaleDate(ctx context.Context, productID int64) (time.Time, bool, error)
	InsertSales(ctx context.Context, rows []domain.SalesTransaction) (int, error)
}

type ForecastRepository interface {
	GetStoredForecasts(ctx context.Context, productID int64, start, end time.Time) ([]domain.ForecastRow, error)
	// UpsertForecast inserts or replaces the row for (productID, month) in a
	// single atomic statement. The quantity is stored rounded to 2 decimals.
	UpsertForecast(ctx context.Context, productID int64, month time.Time, quantity float64) error
}

type InventoryRepository interface {
	GetLeadTimeStats(ctx context.Context, productID int64) (domain.LeadTimeStats, bool, error)
	// GetLatestStockSnapshot returns the most recent snapshot dated on or
	// before asOf, with quantities summed over that date.
	GetLatestStockSnapshot(ctx context.Context, productID int64, asOf time.Time) (domain.StockSnapshot, bool, error)
}

// RecommendationRepository appends recommendation rows; existing rows are never updated.
type RecommendationRepository interface {
	InsertRecommendation(ctx context.Context, rec *domain.Recommendation) error
	ListRecommendations(ctx context.Context, productID int64, month time.Time) ([]domain.Recommendation, error)
}

// Store groups the handles the forecasting engine reads and writes.
type Store struct {
	Products        ProductRepository
	Sales           SalesRepository
	Forecasts       ForecastRepository
	Inventory       InventoryRepository
	Recommendations RecommendationRepository
}
