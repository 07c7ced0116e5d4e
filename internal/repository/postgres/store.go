package postgres

import (
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/repository"
)

// NewStore wires every postgres repository onto one connection pool.
func NewStore(db *DB) repository.Store {
	return repository.Store{
		Products:        NewProductRepository(db),
		Sales:           NewSalesRepository(db),
		Forecasts:       NewForecastRepository(db),
		Inventory:       NewInventoryRepository(db),
		Recommendations: NewRecommendationRepository(db),
	}
}
