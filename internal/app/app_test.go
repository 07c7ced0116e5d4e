package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/config"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/pipeline"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/repository/memory"
)

func TestForecastOptions(t *testing.T) {
	opts := ForecastOptions(config.ForecastConfig{
		FallbackToMean:    true,
		MinARIMAHistory:   18,
		ARIMAFitTimeout:   5 * time.Second,
		ARIMAMaxIteration: 500,
	})
	assert.True(t, opts.FallbackToMean)
	assert.Equal(t, 18, opts.MinARIMAHistory)
	assert.Equal(t, 5*time.Second, opts.Fit.Timeout)
	assert.Equal(t, 500, opts.Fit.MaxIterations)

	defaults := ForecastOptions(config.ForecastConfig{})
	assert.False(t, defaults.FallbackToMean)
	assert.Equal(t, 12, defaults.MinARIMAHistory)
}

func TestLeadTimes(t *testing.T) {
	lt := LeadTimes(config.RecommendationConfig{DefaultMaxLeadTime: 14})
	assert.Equal(t, 14.0, lt.MaxLeadTime)
	assert.Equal(t, 7.0, lt.AvgLeadTime)
}

func TestBuildRunsEndToEnd(t *testing.T) {
	store := memory.New()
	store.AddProduct(domain.Product{ID: 1, Name: "Alpha", Model: domain.ModelMean})
	for m := 1; m <= 12; m++ {
		store.AddSale(1, time.Date(2024, time.Month(m), 10, 0, 0, 0, 0, time.UTC), 10)
	}

	var done []pipeline.Outcome
	cfg := &config.Config{
		Forecast:       config.ForecastConfig{Workers: 1},
		Recommendation: config.RecommendationConfig{UseBackfill: true},
	}
	c := Build(cfg, store.Repositories(), Deps{OnProduct: func(o pipeline.Outcome) { done = append(done, o) }})

	report, err := c.Orchestrator.Run(context.Background(), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha"}, report.ForecastSuccess)
	assert.Equal(t, []string{"Alpha"}, report.RecommendationSuccess)
	require.Len(t, done, 1)
	assert.True(t, done[0].Succeeded())
	assert.Len(t, store.Recommendations(), 1)
}
