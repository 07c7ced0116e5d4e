// backend-go/internal/domain/models.go
package domain

import (
	"time"
)

// ARIMAOrder is the (p, d, q) order of an ARIMA model.
type ARIMAOrder struct {
	P int `json:"p" db:"p"`
	D int `json:"d" db:"d"`
	Q int `json:"q" db:"q"`
}

// Product represents a tracked item (barang) together with its forecasting setup
type Product struct {
	ID    int64         `json:"id" db:"id"`
	Name  string        `json:"name" db:"name"`
	Model ForecastModel `json:"model_prediksi" db:"model_prediksi"`
	Order *ARIMAOrder   `json:"order,omitempty" db:"-"`
}

// NewProduct builds a Product and validates its model configuration.
// p, d and q may be nil when the model does not need them.
func NewProduct(id int64, name, model string, p, d, q *int) (Product, error) {
	product := Product{
		ID:    id,
		Name:  name,
		Model: ForecastModel(model),
	}
	if p != nil && d != nil && q != nil {
		product.Order = &ARIMAOrder{P: *p, D: *d, Q: *q}
	} else if p != nil || d != nil || q != nil {
		return product, &ConfigurationError{
			ProductID: id,
			Reason:    "ARIMA order must have p, d and q all set",
		}
	}

	if err := product.Validate(); err != nil {
		return product, err
	}
	return product, nil
}

// Validate checks that the model is recognised and that ARIMA products carry a
// complete, non-negative order.
func (p Product) Validate() error {
	model, err := ParseForecastModel(string(p.Model))
	if err != nil {
		return &ConfigurationError{ProductID: p.ID, Reason: err.Error()}
	}

	if model != ModelARIMA {
		return nil
	}
	if p.Order == nil {
		return &ConfigurationError{ProductID: p.ID, Reason: "ARIMA selected without p/d/q"}
	}
	if p.Order.P < 0 || p.Order.D < 0 || p.Order.Q < 0 {
		return &ConfigurationError{ProductID: p.ID, Reason: "ARIMA order must be non-negative"}
	}
	return nil
}

// DisplayName is used in run reports.
func (p Product) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return productLabel(p.ID)
}

// SalesTransaction is a single raw sale as imported from a sales file.
type SalesTransaction struct {
	ID        int64     `json:"id" db:"id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	SoldAt    time.Time `json:"sold_at" db:"sold_at"`
	Quantity  float64   `json:"quantity" db:"quantity"`
}

// MonthlySalesPoint is an aggregated monthly quantity read from the store.
type MonthlySalesPoint struct {
	ProductID int64     `json:"product_id" db:"product_id"`
	Month     time.Time `json:"month" db:"month"`
	Quantity  float64   `json:"quantity" db:"quantity"`
}

// ForecastRow is one stored forecast value, unique per product and month.
type ForecastRow struct {
	ID        int64     `json:"id" db:"id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	Month     time.Time `json:"month" db:"month"`
	Quantity  float64   `json:"quantity" db:"quantity"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ForecastPoint is a model output for one target month.
type ForecastPoint struct {
	Month    time.Time `json:"month"`
	Quantity float64   `json:"quantity"`
}

// LeadTimeStats holds lead time statistics in days
type LeadTimeStats struct {
	ProductID   int64   `json:"product_id" db:"product_id"`
	AvgLeadTime float64 `json:"avg_lead_time" db:"avg_lead_time"`
	MaxLeadTime float64 `json:"max_lead_time" db:"max_lead_time"`
}

// StockSnapshot is the total quantity on hand at a date.
type StockSnapshot struct {
	ProductID int64     `json:"product_id" db:"product_id"`
	AsOf      time.Time `json:"as_of" db:"as_of_date"`
	Quantity  float64   `json:"quantity" db:"quantity"`
}

// Recommendation is a stock recommendation row. Rows are append-only.
type Recommendation struct {
	ID                     int64     `json:"id" db:"id"`
	ProductID              int64     `json:"product_id" db:"product_id"`
	Month                  time.Time `json:"month" db:"month"`
	MaxLeadTime            float64   `json:"max_lead_time" db:"max_lead_time"`
	AvgLeadTime            float64   `json:"avg_lead_time" db:"avg_lead_time"`
	SafetyStock            float64   `json:"safety_stock" db:"safety_stock"`
	ReorderPoint           float64   `json:"reorder_point" db:"reorder_point"`
	ActualStock            float64   `json:"actual_stock" db:"actual_stock"`
	ForecastQuantity       float64   `json:"forecast_quantity" db:"forecast_quantity"`
	SuggestedOrderQuantity float64   `json:"suggested_order_quantity" db:"suggested_order_quantity"`
	CreatedAt              time.Time `json:"created_at" db:"created_at"`
}

// MonthlyPoint is one month of a contiguous series, tagged with where its
// quantity came from.
type MonthlyPoint struct {
	Month      time.Time  `json:"month"`
	Quantity   float64    `json:"quantity"`
	Provenance Provenance `json:"provenance"`
}
