package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
)

// Repository handles database operations for run tracking
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new run tracking repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// StartRun creates a new run record
func (r *Repository) StartRun(ctx context.Context, run *ForecastRun) error {
	query := `
		INSERT INTO forecast_runs (
			target_month, as_of, status, total_products, started_at
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx, query,
		run.TargetMonth, run.AsOf, run.Status, run.TotalProducts, run.StartedAt,
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("failed to create forecast run: %w", err)
	}

	return nil
}

// RecordItem stores the outcome of one product
func (r *Repository) RecordItem(ctx context.Context, item *RunItem) error {
	query := `
		INSERT INTO forecast_run_items (
			run_id, product_id, stage, status, message
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx, query,
		item.RunID, item.ProductID, item.Stage, item.Status, item.Message,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to create run item: %w", err)
	}

	return nil
}

// FinishRun updates counts and stores the report
func (r *Repository) FinishRun(ctx context.Context, run *ForecastRun, report *domain.RunReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}

	query := `
		UPDATE forecast_runs
		SET status = $1, forecast_succeeded = $2, forecast_failed = $3,
		    recommendation_succeeded = $4, recommendation_failed = $5,
		    completed_at = $6, error_message = $7, report = $8
		WHERE id = $9
	`

	_, err = r.db.ExecContext(
		ctx, query,
		run.Status, run.ForecastSucceeded, run.ForecastFailed,
		run.RecommendationSucceeded, run.RecommendationFailed,
		run.CompletedAt, run.ErrorMessage, payload, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update forecast run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID
func (r *Repository) GetRun(ctx context.Context, id int64) (*ForecastRun, error) {
	query := `
		SELECT id, target_month, as_of, status, total_products,
		       forecast_succeeded, forecast_failed,
		       recommendation_succeeded, recommendation_failed,
		       started_at, completed_at, error_message
		FROM forecast_runs
		WHERE id = $1
	`

	run := &ForecastRun{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.TargetMonth, &run.AsOf, &run.Status, &run.TotalProducts,
		&run.ForecastSucceeded, &run.ForecastFailed,
		&run.RecommendationSucceeded, &run.RecommendationFailed,
		&run.StartedAt, &run.CompletedAt, &run.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	return run, nil
}

// LatestReport returns the report of the most recent completed run for a month
func (r *Repository) LatestReport(ctx context.Context, month time.Time) (*domain.RunReport, bool, error) {
	query := `
		SELECT report
		FROM forecast_runs
		WHERE target_month = $1 AND status = $2 AND report IS NOT NULL
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`

	var payload []byte
	err := r.db.QueryRowContext(ctx, query, domain.MonthStart(month), domain.RunStatusCompleted).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get latest report: %w", err)
	}

	var report domain.RunReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false, fmt.Errorf("failed to decode run report: %w", err)
	}

	return &report, true, nil
}
