package replenishment

import (
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
)

// Input is everything the calculator needs for one product and month
type Input struct {
	ProductID        int64
	MonthlySales     []domain.MonthlyPoint // Back-filled last twelve months
	MaxLeadTime      float64               // Maximum lead time in days
	AvgLeadTime      float64               // Average lead time in days
	ActualStock      float64               // Stock on hand
	ForecastQuantity float64               // Forecast for the target month
}

// Metrics holds calculated inventory metrics
type Metrics struct {
	AvgDailyUsage          float64 // Mean monthly usage / 30
	MaxDailyUsage          float64 // Peak monthly usage / 30
	SafetyStock            float64 // Safety stock level
	ReorderPoint           float64 // Reorder point
	SuggestedOrderQuantity float64 // Quantity to order this month
	UsedMonths             int     // Points that passed the trust policy
}

// TrustPolicy decides which provenance tags count as observed usage.
type TrustPolicy struct {
	// UseBackfilledForecasts counts months filled from a stored forecast as usage.
	UseBackfilledForecasts bool
}

// DefaultTrustPolicy counts back-filled forecasts, matching how the series is built.
func DefaultTrustPolicy() TrustPolicy {
	return TrustPolicy{UseBackfilledForecasts: true}
}

func (p TrustPolicy) trusts(point domain.MonthlyPoint) bool {
	switch point.Provenance {
	case domain.ProvenanceForecast:
		return p.UseBackfilledForecasts
	case domain.ProvenancePredicted:
		return false
	default:
		return true
	}
}
