package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
)

type inventoryRepository struct {
	db *DB
}

func NewInventoryRepository(db *DB) *inventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) GetLeadTimeStats(ctx context.Context, productID int64) (domain.LeadTimeStats, bool, error) {
	query := `
		SELECT product_id, avg_lead_time, max_lead_time
		FROM lead_times
		WHERE product_id = $1
	`

	var stats domain.LeadTimeStats
	if err := r.db.GetContext(ctx, &stats, query, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LeadTimeStats{}, false, nil
		}
		return domain.LeadTimeStats{}, false, fmt.Errorf("failed to get lead time stats: %w", err)
	}

	return stats, true, nil
}

func (r *inventoryRepository) GetLatestStockSnapshot(ctx context.Context, productID int64, asOf time.Time) (domain.StockSnapshot, bool, error) {
	query := `
		SELECT product_id, as_of_date, SUM(quantity) AS quantity
		FROM stock_snapshots
		WHERE product_id = $1
		  AND as_of_date = (
			SELECT MAX(as_of_date)
			FROM stock_snapshots
			WHERE product_id = $1 AND as_of_date <= $2
		  )
		GROUP BY product_id, as_of_date
	`

	var snap domain.StockSnapshot
	if err := r.db.GetContext(ctx, &snap, query, productID, asOf); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StockSnapshot{}, false, nil
		}
		return domain.StockSnapshot{}, false, fmt.Errorf("failed to get stock snapshot: %w", err)
	}

	return snap, true, nil
}
