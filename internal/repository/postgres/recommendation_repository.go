package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
)

type recommendationRepository struct {
	db *DB
}

func NewRecommendationRepository(db *DB) *recommendationRepository {
	return &recommendationRepository{db: db}
}

// InsertRecommendation always appends; rows for the same product and month
// accumulate as an audit trail.
func (r *recommendationRepository) InsertRecommendation(ctx context.Context, rec *domain.Recommendation) error {
	query := `
		INSERT INTO stock_recommendations (
			product_id, month, max_lead_time, avg_lead_time, safety_stock,
			reorder_point, actual_stock, forecast_quantity, suggested_order_quantity
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		rec.ProductID, domain.MonthStart(rec.Month), rec.MaxLeadTime, rec.AvgLeadTime,
		rec.SafetyStock, rec.ReorderPoint, rec.ActualStock, rec.ForecastQuantity,
		rec.SuggestedOrderQuantity,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert recommendation: %w", err)
	}

	return nil
}

func (r *recommendationRepository) ListRecommendations(ctx context.Context, productID int64, month time.Time) ([]domain.Recommendation, error) {
	query := `
		SELECT id, product_id, month, max_lead_time, avg_lead_time, safety_stock,
		       reorder_point, actual_stock, forecast_quantity, suggested_order_quantity, created_at
		FROM stock_recommendations
		WHERE product_id = $1 AND month = $2
		ORDER BY created_at, id
	`

	var recs []domain.Recommendation
	if err := r.db.SelectContext(ctx, &recs, query, productID, domain.MonthStart(month)); err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}

	return recs, nil
}
