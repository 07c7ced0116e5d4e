package replenishment

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
)

// Calculator derives safety stock, reorder point and suggested order quantity
type Calculator struct {
	policy TrustPolicy
}

// NewCalculator creates a new calculator with the given trust policy
func NewCalculator(policy TrustPolicy) *Calculator {
	return &Calculator{policy: policy}
}

// Calculate computes all replenishment metrics for a product
func (c *Calculator) Calculate(in Input) (Metrics, error) {
	usage := make([]float64, 0, len(in.MonthlySales))
	for _, point := range in.MonthlySales {
		if c.policy.trusts(point) {
			usage = append(usage, point.Quantity)
		}
	}
	if len(usage) == 0 {
		return Metrics{}, &domain.RecommendationInputError{
			ProductID: in.ProductID,
			Reason:    fmt.Sprintf("no usable monthly sales among %d months", len(in.MonthlySales)),
		}
	}

	metrics := Metrics{UsedMonths: len(usage)}

	// 1. Daily usage from monthly totals
	metrics.AvgDailyUsage = stat.Mean(usage, nil) / daysPerMonth
	metrics.MaxDailyUsage = floats.Max(usage) / daysPerMonth

	// 2. Safety stock = (Max Daily Usage × Max Lead Time) - (Avg Daily Usage × Avg Lead Time)
	safetyStock := metrics.MaxDailyUsage*in.MaxLeadTime - metrics.AvgDailyUsage*in.AvgLeadTime
	metrics.SafetyStock = nonNegative(roundFloat(safetyStock))

	// 3. Reorder point = (Avg Daily Usage × Avg Lead Time) + Safety Stock
	metrics.ReorderPoint = roundFloat(metrics.AvgDailyUsage*in.AvgLeadTime + metrics.SafetyStock)

	// 4. Suggested order = Reorder point + Forecast - Stock on hand
	suggested := metrics.ReorderPoint + in.ForecastQuantity - in.ActualStock
	metrics.SuggestedOrderQuantity = nonNegative(roundFloat(suggested))

	return metrics, nil
}
