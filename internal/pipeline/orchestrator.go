package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/repository"
)

// Orchestrator runs the end-of-month batch: every product is forecast for the
// month after asOf and then given a stock recommendation.
type Orchestrator struct {
	products repository.ProductRepository
	worker   *Worker
	recorder RunRecorder
	cfg      Config
	now      func() time.Time
}

// NewOrchestrator creates a new Orchestrator. A nil recorder disables run tracking.
func NewOrchestrator(products repository.ProductRepository, forecaster Forecaster, recommender Recommender, recorder RunRecorder, cfg Config) *Orchestrator {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Orchestrator{
		products: products,
		worker:   NewWorker(forecaster, recommender),
		recorder: recorder,
		cfg:      cfg,
		now:      time.Now,
	}
}

// TargetMonth is the calendar month after asOf's month.
func TargetMonth(asOf time.Time) time.Time {
	return domain.AddMonths(asOf, 1)
}

// Run processes every product. Only a failure to list products is returned
// as an error; product failures are collected in the report.
func (o *Orchestrator) Run(ctx context.Context, asOf time.Time) (*domain.RunReport, error) {
	products, err := o.products.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return o.run(ctx, asOf, products, nil), nil
}

// RunProducts processes only the given products. Unknown ids are reported as
// forecast failures.
func (o *Orchestrator) RunProducts(ctx context.Context, asOf time.Time, ids []int64) (*domain.RunReport, error) {
	products, err := o.products.ListProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	known := make(map[int64]bool, len(products))
	for _, p := range products {
		known[p.ID] = true
	}
	var missing []domain.Failure
	for _, id := range ids {
		if !known[id] {
			known[id] = true
			missing = append(missing, domain.Failure{
				ProductID: id,
				Name:      fmt.Sprintf("#%d", id),
				Message:   domain.ErrProductNotFound.Error(),
			})
		}
	}

	return o.run(ctx, asOf, products, missing), nil
}

func (o *Orchestrator) run(ctx context.Context, asOf time.Time, products []domain.Product, missing []domain.Failure) *domain.RunReport {
	target := TargetMonth(asOf)
	report := domain.NewRunReport(target)
	report.StartedAt = o.now()
	report.ForecastFailed = append(report.ForecastFailed, missing...)

	run := &ForecastRun{
		TargetMonth:   target,
		AsOf:          asOf,
		Status:        domain.RunStatusProcessing,
		TotalProducts: len(products) + len(missing),
		StartedAt:     report.StartedAt,
	}
	if err := o.recorder.StartRun(ctx, run); err != nil {
		log.Warn().Err(err).Msg("failed to record run start")
	}
	report.RunID = run.ID

	log.Info().
		Str("target_month", domain.MonthKey(target)).
		Int("products", len(products)).
		Int("workers", o.cfg.Workers).
		Msg("forecast run started")

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(o.cfg.Workers)

	for _, product := range products {
		product := product
		g.Go(func() error {
			out := o.worker.Process(ctx, product, target, asOf)

			mu.Lock()
			tally(report, out)
			mu.Unlock()

			o.recordItem(ctx, run.ID, out)
			if o.cfg.OnProductDone != nil {
				o.cfg.OnProductDone(out)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Sort()
	report.CompletedAt = o.now()

	completed := report.CompletedAt
	run.Status = domain.RunStatusCompleted
	run.CompletedAt = &completed
	run.ForecastSucceeded = len(report.ForecastSuccess)
	run.ForecastFailed = len(report.ForecastFailed)
	run.RecommendationSucceeded = len(report.RecommendationSuccess)
	run.RecommendationFailed = len(report.RecommendationFailed)
	if err := o.recorder.FinishRun(ctx, run, report); err != nil {
		log.Warn().Err(err).Msg("failed to record run completion")
	}

	log.Info().
		Str("target_month", domain.MonthKey(target)).
		Int("forecast_ok", run.ForecastSucceeded).
		Int("forecast_failed", run.ForecastFailed).
		Int("recommendation_ok", run.RecommendationSucceeded).
		Int("recommendation_failed", run.RecommendationFailed).
		Dur("elapsed", report.CompletedAt.Sub(report.StartedAt)).
		Msg("forecast run completed")

	return report
}

func tally(report *domain.RunReport, out Outcome) {
	name := out.Product.DisplayName()
	failure := func() domain.Failure {
		return domain.Failure{ProductID: out.Product.ID, Name: name, Message: out.Err.Error()}
	}

	switch out.FailedStage {
	case domain.StageForecast:
		report.ForecastFailed = append(report.ForecastFailed, failure())
		log.Warn().Int64("product_id", out.Product.ID).Str("product", name).Err(out.Err).Msg("forecast failed")
	case domain.StageRecommendation:
		report.ForecastSuccess = append(report.ForecastSuccess, name)
		report.RecommendationFailed = append(report.RecommendationFailed, failure())
		log.Warn().Int64("product_id", out.Product.ID).Str("product", name).Err(out.Err).Msg("recommendation failed")
	default:
		report.ForecastSuccess = append(report.ForecastSuccess, name)
		report.RecommendationSuccess = append(report.RecommendationSuccess, name)
	}
}

func (o *Orchestrator) recordItem(ctx context.Context, runID int64, out Outcome) {
	item := &RunItem{
		RunID:     runID,
		ProductID: out.Product.ID,
		Stage:     domain.StageRecommendation,
		Status:    ItemSucceeded,
	}
	if out.Err != nil {
		item.Stage = out.FailedStage
		item.Status = ItemFailed
		item.Message = out.Err.Error()
	}
	if err := o.recorder.RecordItem(ctx, item); err != nil {
		log.Warn().Err(err).Int64("product_id", out.Product.ID).Msg("failed to record run item")
	}
}

// SortedNames lists failure names alphabetically.
func SortedNames(failures []domain.Failure) []string {
	names := make([]string, len(failures))
	for i, f := range failures {
		names[i] = f.Name
	}
	sort.Strings(names)
	return names
}
