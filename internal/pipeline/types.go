package pipeline

import (
	"context"
	"time"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
)

// Forecaster forecasts and stores the target months of a product.
type Forecaster interface {
	Predict(ctx context.Context, product domain.Product, targets []time.Time) ([]domain.ForecastPoint, error)
}

// Recommender computes and stores a recommendation for the target month.
type Recommender interface {
	Recommend(ctx context.Context, product domain.Product, target, asOf time.Time, forecastQty float64) (*domain.Recommendation, error)
}

// RunRecorder persists run tracking. Recording failures never fail a run.
type RunRecorder interface {
	StartRun(ctx context.Context, run *ForecastRun) error
	RecordItem(ctx context.Context, item *RunItem) error
	FinishRun(ctx context.Context, run *ForecastRun, report *domain.RunReport) error
}

// Config holds configuration for an orchestrator instance
type Config struct {
	Workers int // Number of products processed concurrently

	// OnProductDone is called once per product after its outcome is recorded.
	// It may be called from several goroutines when Workers > 1.
	OnProductDone func(Outcome)
}

// DefaultConfig returns sequential processing
func DefaultConfig() Config {
	return Config{Workers: 1}
}

// Outcome is the terminal state of one product in a run.
type Outcome struct {
	Product        domain.Product
	FailedStage    domain.Stage // Empty on success
	Err            error
	Forecast       *domain.ForecastPoint
	Recommendation *domain.Recommendation
}

func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// ItemStatus is the status of one product within a run
type ItemStatus string

const (
	ItemSucceeded ItemStatus = "success"
	ItemFailed    ItemStatus = "failed"
)

// ForecastRun tracks a single execution of the end-of-month batch
type ForecastRun struct {
	ID                      int64
	TargetMonth             time.Time
	AsOf                    time.Time
	Status                  domain.RunStatus
	TotalProducts           int
	ForecastSucceeded       int
	ForecastFailed          int
	RecommendationSucceeded int
	RecommendationFailed    int
	StartedAt               time.Time
	CompletedAt             *time.Time
	ErrorMessage            string
}

// RunItem tracks the outcome of a single product
type RunItem struct {
	ID        int64
	RunID     int64
	ProductID int64
	Stage     domain.Stage
	Status    ItemStatus
	Message   string
}

type noopRecorder struct{}

func (noopRecorder) StartRun(context.Context, *ForecastRun) error                     { return nil }
func (noopRecorder) RecordItem(context.Context, *RunItem) error                        { return nil }
func (noopRecorder) FinishRun(context.Context, *ForecastRun, *domain.RunReport) error { return nil }
