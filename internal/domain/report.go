package domain

import (
	"sort"
	"time"
)

// Failure names a product that failed a stage and why.
type Failure struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Message   string `json:"message"`
}

// RunReport is the summary of one end-of-month batch.
type RunReport struct {
	RunID                 int64     `json:"run_id,omitempty"`
	TargetMonth           time.Time `json:"target_month"`
	ForecastSuccess       []string  `json:"prediksi_success"`
	ForecastFailed        []Failure `json:"prediksi_failed"`
	RecommendationSuccess []string  `json:"rekomendasi_success"`
	RecommendationFailed  []Failure `json:"rekomendasi_failed"`
	StartedAt             time.Time `json:"started_at"`
	CompletedAt           time.Time `json:"completed_at"`
}

// NewRunReport returns a report with empty, non-nil lists so it encodes as [].
func NewRunReport(target time.Time) *RunReport {
	return &RunReport{
		TargetMonth:           target,
		ForecastSuccess:       []string{},
		ForecastFailed:        []Failure{},
		RecommendationSuccess: []string{},
		RecommendationFailed:  []Failure{},
	}
}

// Sort orders every list by product name, then by product id for failures.
func (r *RunReport) Sort() {
	sort.Strings(r.ForecastSuccess)
	sort.Strings(r.RecommendationSuccess)
	sortFailures(r.ForecastFailed)
	sortFailures(r.RecommendationFailed)
}

// Total is the number of distinct outcomes recorded at the forecast stage.
func (r *RunReport) Total() int {
	return len(r.ForecastSuccess) + len(r.ForecastFailed)
}

func sortFailures(f []Failure) {
	sort.SliceStable(f, func(i, j int) bool {
		if f[i].Name != f[j].Name {
			return f[i].Name < f[j].Name
		}
		return f[i].ProductID < f[j].ProductID
	})
}
