package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
)

// Worker takes one product through forecast and recommendation
type Worker struct {
	forecaster  Forecaster
	recommender Recommender
}

// NewWorker creates a new product worker
func NewWorker(forecaster Forecaster, recommender Recommender) *Worker {
	return &Worker{forecaster: forecaster, recommender: recommender}
}

// Process never returns an error; failures are reported in the outcome.
func (w *Worker) Process(ctx context.Context, product domain.Product, target, asOf time.Time) (out Outcome) {
	out.Product = product

	defer func() {
		if r := recover(); r != nil {
			if out.FailedStage == "" {
				out.FailedStage = domain.StageForecast
				if out.Forecast != nil {
					out.FailedStage = domain.StageRecommendation
				}
			}
			out.Err = fmt.Errorf("panic: %v", r)
			log.Error().Int64("product_id", product.ID).Interface("panic", r).Msg("product processing panicked")
		}
	}()

	points, err := w.forecaster.Predict(ctx, product, []time.Time{target})
	if err == nil && len(points) == 0 {
		err = fmt.Errorf("model returned no forecast for %s", domain.MonthKey(target))
	}
	if err != nil {
		out.FailedStage = domain.StageForecast
		out.Err = err
		return out
	}
	out.Forecast = &points[0]

	rec, err := w.recommender.Recommend(ctx, product, target, asOf, points[0].Quantity)
	if err != nil {
		out.FailedStage = domain.StageRecommendation
		out.Err = err
		return out
	}
	out.Recommendation = rec

	return out
}
