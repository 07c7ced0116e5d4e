package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
)

type salesRepository struct {
	db *DB
}

func NewSalesRepository(db *DB) *salesRepository {
	return &salesRepository{db: db}
}

func (r *salesRepository) GetMonthlySales(ctx context.Context, productID int64, start, end time.Time) ([]domain.MonthlySalesPoint, error) {
	// Buckets are UTC months regardless of the session TimeZone.
	query := `
		SELECT product_id,
		       date_trunc('month', sold_at AT TIME ZONE 'UTC')::date AS month,
		       SUM(quantity) AS quantity
		FROM sales_transactions
		WHERE product_id = $1 AND sold_at >= $2 AND sold_at < $3
		GROUP BY product_id, date_trunc('month', sold_at AT TIME ZONE 'UTC')
		ORDER BY month
	`

	var points []domain.MonthlySalesPoint
	err := r.db.SelectContext(ctx, &points, query,
		productID, domain.MonthStart(start), domain.AddMonths(end, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly sales: %w", err)
	}

	return points, nil
}

func (r *salesRepository) GetFirstSaleDate(ctx context.Context, productID int64) (time.Time, bool, error) {
	var first sql.NullTime
	err := r.db.GetContext(ctx, &first, `SELECT MIN(sold_at) FROM sales_transactions WHERE product_id = $1`, productID)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get first sale date: %w", err)
	}
	return first.Time, first.Valid, nil
}

func (r *salesRepository) InsertSales(ctx context.Context, rows []domain.SalesTransaction) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	inserted := 0
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO sales_transactions (product_id, sold_at, quantity)
			VALUES ($1, $2, $3)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, row.ProductID, row.SoldAt, row.Quantity); err != nil {
				return fmt.Errorf("failed to insert sale for product %d: %w", row.ProductID, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}
