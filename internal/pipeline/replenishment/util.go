package replenishment

import (
	"math"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
)

const daysPerMonth = 30

// roundFloat rounds v half away from zero to two decimal places.
func roundFloat(v float64) float64 {
	return domain.Round2(v)
}

func nonNegative(v float64) float64 {
	return math.Max(0, v)
}
