package forecast

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
)

const (
	SmoothingWindow = 5
	SmoothingOrder  = 2
)

// SavitzkyGolay smooths values with a local least-squares polynomial of the
// given order over an odd window. Interior points take the value of the fit
// centred on them; the first and last window/2 points are evaluated on the
// polynomial fitted to the first and last window.
func SavitzkyGolay(values []float64, window, order int) ([]float64, error) {
	if window <= 0 || window%2 == 0 {
		return nil, fmt.Errorf("smoothing window must be a positive odd number, got %d", window)
	}
	if order < 0 || order >= window {
		return nil, fmt.Errorf("smoothing order must be in [0, %d), got %d", window, order)
	}
	if len(values) < window {
		return nil, &domain.InsufficientDataError{
			Required: window,
			Got:      len(values),
			Reason:   "series shorter than smoothing window",
		}
	}

	half := window / 2
	design := vandermonde(window, order, half)
	out := make([]float64, len(values))

	for centre := half; centre < len(values)-half; centre++ {
		coef, err := fitWindow(design, values[centre-half:centre+half+1])
		if err != nil {
			return nil, err
		}
		out[centre] = coef.AtVec(0)
	}

	head, err := fitWindow(design, values[:window])
	if err != nil {
		return nil, err
	}
	for i := 0; i < half; i++ {
		out[i] = polyval(head, float64(i-half))
	}

	n := len(values)
	tail, err := fitWindow(design, values[n-window:])
	if err != nil {
		return nil, err
	}
	for i := n - half; i < n; i++ {
		out[i] = polyval(tail, float64(i-(n-window)-half))
	}

	return out, nil
}

// vandermonde builds the window x (order+1) design matrix on x = -half..half.
func vandermonde(window, order, half int) *mat.Dense {
	design := mat.NewDense(window, order+1, nil)
	for r := 0; r < window; r++ {
		x := float64(r - half)
		v := 1.0
		for c := 0; c <= order; c++ {
			design.Set(r, c, v)
			v *= x
		}
	}
	return design
}

func fitWindow(design *mat.Dense, y []float64) (*mat.VecDense, error) {
	var coef mat.VecDense
	if err := coef.SolveVec(design, mat.NewVecDense(len(y), append([]float64(nil), y...))); err != nil {
		return nil, fmt.Errorf("failed to fit smoothing window: %w", err)
	}
	return &coef, nil
}

func polyval(coef *mat.VecDense, x float64) float64 {
	var v float64
	for i := coef.Len() - 1; i >= 0; i-- {
		v = v*x + coef.AtVec(i)
	}
	return v
}
