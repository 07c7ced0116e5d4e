package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
)

type forecastRepository struct {
	db *DB
}

func NewForecastRepository(db *DB) *forecastRepository {
	return &forecastRepository{db: db}
}

func (r *forecastRepository) GetStoredForecasts(ctx context.Context, productID int64, start, end time.Time) ([]domain.ForecastRow, error) {
	query := `
		SELECT id, product_id, month, quantity, updated_at
		FROM forecasts
		WHERE product_id = $1 AND month BETWEEN $2 AND $3
		ORDER BY month
	`

	var rows []domain.ForecastRow
	if err := r.db.SelectContext(ctx, &rows, query, productID, domain.MonthStart(start), domain.MonthStart(end)); err != nil {
		return nil, fmt.Errorf("failed to get stored forecasts: %w", err)
	}

	return rows, nil
}

// UpsertForecast relies on the (product_id, month) unique constraint so
// concurrent runs for the same month cannot create duplicates.
func (r *forecastRepository) UpsertForecast(ctx context.Context, productID int64, month time.Time, quantity float64) error {
	query := `
		INSERT INTO forecasts (product_id, month, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (product_id, month)
		DO UPDATE SET
			quantity = EXCLUDED.quantity,
			updated_at = NOW()
	`

	qty := decimal.NewFromFloat(quantity).Round(2)
	if _, err := r.db.ExecContext(ctx, query, productID, domain.MonthStart(month), qty); err != nil {
		return fmt.Errorf("failed to upsert forecast: %w", err)
	}

	return nil
}
