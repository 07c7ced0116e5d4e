package domain

import (
	"fmt"
	"strings"
)

// ForecastModel is the value stored in a product's model_prediksi column.
type ForecastModel string

const (
	ModelMean  ForecastModel = "MEAN"
	ModelARIMA ForecastModel = "ARIMA"
)

var forecastModels = map[string]ForecastModel{
	"mean":  ModelMean,
	"arima": ModelARIMA,
}

// ParseForecastModel returns the model for a stored label (case-insensitive).
// Unknown labels are an error, never a silent default.
func ParseForecastModel(label string) (ForecastModel, error) {
	model, ok := forecastModels[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return "", fmt.Errorf("unrecognized forecast model %q", label)
	}

	return model, nil
}

// Provenance tells where the quantity of a monthly point came from.
type Provenance string

const (
	// ProvenanceSales is a month with recorded sales.
	ProvenanceSales Provenance = "sales"
	// ProvenanceForecast is a month back-filled from a stored forecast.
	ProvenanceForecast Provenance = "forecast"
	// ProvenanceMissing is a month with neither sales nor a stored forecast.
	ProvenanceMissing Provenance = "missing"
	// ProvenancePredicted is a value the Mean model appended while iterating.
	ProvenancePredicted Provenance = "predicted"
)

// RunStatus represents the current state of a forecast run
type RunStatus string

const (
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// Stage names a step of the per-product pipeline.
type Stage string

const (
	StageLoad           Stage = "load"
	StageForecast       Stage = "forecast"
	StageRecommendation Stage = "recommendation"
)

func productLabel(id int64) string {
	return fmt.Sprintf("product #%d", id)
}
