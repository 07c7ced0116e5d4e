// Package app assembles the forecasting services from configuration.
package app

import (
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/cache"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/config"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/forecast"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/ingest"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/pipeline"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/pipeline/replenishment"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/repository"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/service"
)

// Components are the wired services shared by the server and the CLI.
type Components struct {
	Store           repository.Store
	Forecasts       *service.ForecastService
	Recommendations *service.RecommendationService
	Reports         *service.ReportService
	Orchestrator    *pipeline.Orchestrator
	Importer        *ingest.Importer
}

// Deps are the optional collaborators of Build. Nil values disable run
// tracking, persisted reports and the report cache.
type Deps struct {
	Recorder    pipeline.RunRecorder
	ReportStore service.ReportStore
	ReportCache cache.ReportCache
	OnProduct   func(pipeline.Outcome)
}

func Build(cfg *config.Config, store repository.Store, deps Deps) *Components {
	forecasts := service.NewForecastService(store, ForecastOptions(cfg.Forecast))
	recommendations := service.NewRecommendationService(store, TrustPolicy(cfg.Recommendation), LeadTimes(cfg.Recommendation))

	return &Components{
		Store:           store,
		Forecasts:       forecasts,
		Recommendations: recommendations,
		Reports:         service.NewReportService(deps.ReportStore, deps.ReportCache),
		Orchestrator: pipeline.NewOrchestrator(store.Products, forecasts, recommendations, deps.Recorder, pipeline.Config{
			Workers:       cfg.Forecast.Workers,
			OnProductDone: deps.OnProduct,
		}),
		Importer: ingest.NewImporter(store.Products, store.Sales),
	}
}

func ForecastOptions(cfg config.ForecastConfig) forecast.Options {
	opts := forecast.DefaultOptions()
	opts.FallbackToMean = cfg.FallbackToMean
	if cfg.MinARIMAHistory > 0 {
		opts.MinARIMAHistory = cfg.MinARIMAHistory
	}
	if cfg.ARIMAMaxIteration > 0 {
		opts.Fit.MaxIterations = cfg.ARIMAMaxIteration
	}
	if cfg.ARIMAFitTimeout > 0 {
		opts.Fit.Timeout = cfg.ARIMAFitTimeout
	}
	return opts
}

func TrustPolicy(cfg config.RecommendationConfig) replenishment.TrustPolicy {
	return replenishment.TrustPolicy{UseBackfilledForecasts: cfg.UseBackfill}
}

// LeadTimes falls back to the package defaults for unset values.
func LeadTimes(cfg config.RecommendationConfig) service.LeadTimeDefaults {
	defaults := service.DefaultLeadTimes()
	if cfg.DefaultMaxLeadTime > 0 {
		defaults.MaxLeadTime = cfg.DefaultMaxLeadTime
	}
	if cfg.DefaultAvgLeadTime > 0 {
		defaults.AvgLeadTime = cfg.DefaultAvgLeadTime
	}
	return defaults
}
