package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
)

var errFitTimeout = errors.New("optimizer runtime limit reached")

// FitOptions bounds the ARIMA optimizer.
type FitOptions struct {
	MaxIterations int
	Timeout       time.Duration
}

// ARIMAFit is a fitted ARIMA(p,d,q) model, estimated by conditional sum of
// squares on the differenced series.
type ARIMAFit struct {
	Order ARIMAOrder
	Phi   []float64
	Theta []float64
	Mu    float64

	levels    [][]float64
	residuals []float64
}

type ARIMAOrder = domain.ARIMAOrder

// FitARIMA fits the model to y. A constant is estimated only when d == 0.
// Stationarity of the AR part and invertibility of the MA part are enforced by
// mapping unconstrained parameters through partial autocorrelations.
func FitARIMA(y []float64, order ARIMAOrder, opts FitOptions) (*ARIMAFit, error) {
	if order.P < 0 || order.D < 0 || order.Q < 0 {
		return nil, fmt.Errorf("invalid ARIMA order (%d,%d,%d)", order.P, order.D, order.Q)
	}

	levels := make([][]float64, order.D+1)
	levels[0] = y
	for k := 1; k <= order.D; k++ {
		levels[k] = difference(levels[k-1])
	}
	w := levels[order.D]

	minObs := 2*order.P + order.Q + 2
	if len(w) < minObs {
		return nil, &domain.InsufficientDataError{
			Required: minObs + order.D,
			Got:      len(y),
			Reason:   "too few observations after differencing",
		}
	}

	fit := &ARIMAFit{Order: order, levels: levels}
	withMean := order.D == 0
	nParams := order.P + order.Q
	if withMean {
		nParams++
	}

	if order.P == 0 && order.Q == 0 {
		if withMean {
			fit.Mu = stat.Mean(w, nil)
		}
		fit.residuals = fit.css(w)
		return fit, nil
	}

	x0 := make([]float64, nParams)
	if withMean {
		x0[0] = stat.Mean(w, nil)
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			fit.setParams(x, withMean)
			var sse float64
			for _, e := range fit.css(w) {
				sse += e * e
			}
			if math.IsNaN(sse) || math.IsInf(sse, 0) {
				return math.MaxFloat64
			}
			return sse
		},
	}
	settings := &optimize.Settings{
		MajorIterations: opts.MaxIterations,
		Runtime:         opts.Timeout,
	}

	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil {
		return nil, err
	}
	if result.Status == optimize.RuntimeLimit {
		return nil, errFitTimeout
	}
	if !floats.HasNaN(result.X) && result.F < math.MaxFloat64 {
		fit.setParams(result.X, withMean)
	} else {
		return nil, fmt.Errorf("optimizer did not reach a finite objective (status %v)", result.Status)
	}

	fit.residuals = fit.css(w)
	return fit, nil
}

func (f *ARIMAFit) setParams(x []float64, withMean bool) {
	i := 0
	f.Mu = 0
	if withMean {
		f.Mu = x[0]
		i = 1
	}
	f.Phi = constrainStationary(x[i : i+f.Order.P])
	ma := constrainStationary(x[i+f.Order.P : i+f.Order.P+f.Order.Q])
	for j := range ma {
		ma[j] = -ma[j]
	}
	f.Theta = ma
}

// css returns the conditional residuals of w, with pre-sample errors set to zero.
func (f *ARIMAFit) css(w []float64) []float64 {
	p := f.Order.P
	e := make([]float64, len(w))
	for t := p; t < len(w); t++ {
		v := w[t] - f.Mu
		for i, phi := range f.Phi {
			v -= phi * (w[t-1-i] - f.Mu)
		}
		for j, theta := range f.Theta {
			if t-1-j >= p {
				v -= theta * e[t-1-j]
			}
		}
		e[t] = v
	}
	return e
}

// Forecast returns the next steps values on the original scale.
func (f *ARIMAFit) Forecast(steps int) []float64 {
	w := append([]float64(nil), f.levels[f.Order.D]...)
	e := append([]float64(nil), f.residuals...)
	n := len(w)

	for h := 0; h < steps; h++ {
		t := n + h
		v := f.Mu
		for i, phi := range f.Phi {
			v += phi * (w[t-1-i] - f.Mu)
		}
		for j, theta := range f.Theta {
			v += theta * e[t-1-j]
		}
		w = append(w, v)
		e = append(e, 0)
	}

	out := w[n:]
	for k := f.Order.D - 1; k >= 0; k-- {
		level := f.levels[k]
		prev := level[len(level)-1]
		for i := range out {
			prev += out[i]
			out[i] = prev
		}
	}
	return out
}

// constrainStationary maps unconstrained values to the coefficients of a
// stationary AR polynomial via tanh partial autocorrelations and the
// Durbin-Levinson recursion.
func constrainStationary(u []float64) []float64 {
	prev := make([]float64, 0, len(u))
	for k := range u {
		r := math.Tanh(u[k])
		cur := make([]float64, k+1)
		for j := 0; j < k; j++ {
			cur[j] = prev[j] - r*prev[k-1-j]
		}
		cur[k] = r
		prev = cur
	}
	return prev
}

func difference(x []float64) []float64 {
	if len(x) < 2 {
		return []float64{}
	}
	out := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		out[i-1] = x[i] - x[i-1]
	}
	return out
}

// ARIMAModel forecasts from the full history after Savitzky-Golay smoothing,
// then adds back the mean smoothing residual.
type ARIMAModel struct {
	builder    *SeriesBuilder
	minHistory int
	fitOpts    FitOptions
}

func NewARIMAModel(builder *SeriesBuilder, minHistory int, opts FitOptions) *ARIMAModel {
	if minHistory < SmoothingWindow {
		minHistory = SmoothingWindow
	}
	return &ARIMAModel{builder: builder, minHistory: minHistory, fitOpts: opts}
}

func (m *ARIMAModel) Forecast(ctx context.Context, product domain.Product, targets []time.Time) ([]domain.ForecastPoint, error) {
	targets, err := normalizeTargets(targets)
	if err != nil {
		return nil, err
	}
	if product.Order == nil {
		return nil, &domain.ConfigurationError{ProductID: product.ID, Reason: "ARIMA selected without p/d/q"}
	}

	cutoff := domain.AddMonths(targets[0], -1)
	history, err := m.builder.FullHistory(ctx, product.ID, cutoff)
	if err != nil {
		return nil, err
	}
	if len(history) < m.minHistory {
		return nil, &domain.InsufficientDataError{ProductID: product.ID, Required: m.minHistory, Got: len(history)}
	}

	actual := history.Values()
	smoothed, err := SavitzkyGolay(actual, SmoothingWindow, SmoothingOrder)
	if err != nil {
		return nil, withProduct(err, product.ID)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	fit, err := FitARIMA(smoothed, *product.Order, m.fitOpts)
	if err != nil {
		if domain.IsInsufficientData(err) {
			return nil, withProduct(err, product.ID)
		}
		return nil, &domain.FittingError{ProductID: product.ID, Model: domain.ModelARIMA, Err: err}
	}
	log.Debug().
		Int64("product_id", product.ID).
		Int("history", len(actual)).
		Floats64("phi", fit.Phi).
		Floats64("theta", fit.Theta).
		Dur("elapsed", time.Since(started)).
		Msg("ARIMA fitted")

	residual := make([]float64, len(actual))
	floats.SubTo(residual, actual, smoothed)
	bias := stat.Mean(residual, nil)

	last := targets[len(targets)-1]
	steps := domain.MonthsBetween(cutoff, last)
	predictions := fit.Forecast(steps)

	wanted := targetSet(targets)
	points := make([]domain.ForecastPoint, 0, len(targets))
	for i, v := range predictions {
		month := domain.AddMonths(cutoff, i+1)
		if !wanted[month] {
			continue
		}
		points = append(points, domain.ForecastPoint{Month: month, Quantity: clamp(v + bias)})
	}
	return points, nil
}

func withProduct(err error, productID int64) error {
	var insufficient *domain.InsufficientDataError
	if errors.As(err, &insufficient) {
		copied := *insufficient
		copied.ProductID = productID
		return &copied
	}
	return err
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
