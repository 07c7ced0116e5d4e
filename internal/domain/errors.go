package domain

import (
	"errors"
	"fmt"
)

// ErrProductNotFound is returned when a product lookup finds nothing.
var ErrProductNotFound = errors.New("product not found")

// ConfigurationError marks an unrecognized or incomplete model configuration.
type ConfigurationError struct {
	ProductID int64
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for product %d: %s", e.ProductID, e.Reason)
}

// InsufficientDataError is returned when the history is shorter than a model needs.
type InsufficientDataError struct {
	ProductID int64
	Required  int
	Got       int
	Reason    string
}

func (e *InsufficientDataError) Error() string {
	msg := fmt.Sprintf("insufficient data for product %d: need at least %d months, got %d", e.ProductID, e.Required, e.Got)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// FittingError wraps a failure of the model fitting procedure.
type FittingError struct {
	ProductID int64
	Model     ForecastModel
	Err       error
}

func (e *FittingError) Error() string {
	return fmt.Sprintf("%s fit failed for product %d: %v", e.Model, e.ProductID, e.Err)
}

func (e *FittingError) Unwrap() error {
	return e.Err
}

// RecommendationInputError is returned when a product has no sales history to
// derive daily usage from.
type RecommendationInputError struct {
	ProductID int64
	Reason    string
}

func (e *RecommendationInputError) Error() string {
	return fmt.Sprintf("cannot compute recommendation for product %d: %s", e.ProductID, e.Reason)
}

// IsInsufficientData reports whether err is, or wraps, an InsufficientDataError.
func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}

// IsConfiguration reports whether err is, or wraps, a ConfigurationError.
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsFitting reports whether err is, or wraps, a FittingError.
func IsFitting(err error) bool {
	var target *FittingError
	return errors.As(err, &target)
}

// IsRecommendationInput reports whether err is, or wraps, a RecommendationInputError.
func IsRecommendationInput(err error) bool {
	var target *RecommendationInputError
	return errors.As(err, &target)
}
