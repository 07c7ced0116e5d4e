package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
)

type productRow struct {
	ID    int64         `db:"id"`
	Name  string        `db:"name"`
	Model string        `db:"model_prediksi"`
	P     sql.NullInt64 `db:"arima_p"`
	D     sql.NullInt64 `db:"arima_d"`
	Q     sql.NullInt64 `db:"arima_q"`
}

func (r productRow) toDomain() domain.Product {
	product := domain.Product{
		ID:    r.ID,
		Name:  r.Name,
		Model: domain.ForecastModel(r.Model),
	}
	if r.P.Valid && r.D.Valid && r.Q.Valid {
		product.Order = &domain.ARIMAOrder{P: int(r.P.Int64), D: int(r.D.Int64), Q: int(r.Q.Int64)}
	}
	return product
}

const productColumns = `id, name, model_prediksi, arima_p, arima_d, arima_q`

type productRepository struct {
	db *DB
}

func NewProductRepository(db *DB) *productRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

func (r *productRepository) GetProductByName(ctx context.Context, name string) (domain.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE name = $1`, name)
}

func (r *productRepository) getOne(ctx context.Context, query string, arg interface{}) (domain.Product, error) {
	var row productRow
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	return row.toDomain(), nil
}

func (r *productRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+productColumns+` FROM products ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return toProducts(rows), nil
}

func (r *productRepository) ListProductsByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id`
	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to list products by id: %w", err)
	}
	return toProducts(rows), nil
}

func toProducts(rows []productRow) []domain.Product {
	products := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.toDomain())
	}
	return products
}
