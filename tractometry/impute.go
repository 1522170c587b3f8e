package tractometry

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Strategy selects the per-column statistic an Imputer fills with.
type Strategy string

const (
	StrategyMean   Strategy = "mean"
	StrategyMedian Strategy = "median"
)

// ParseStrategy maps a flag or config value to a Strategy. The empty string
// selects the mean.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyMean:
		return StrategyMean, nil
	case StrategyMedian:
		return StrategyMedian, nil
	}
	return "", fmt.Errorf("unknown imputation strategy %q", s)
}

// Imputer fills NaN cells with a statistic learned per column from that
// column's observed values. The zero value is a mean imputer that treats a
// fully missing column as an error.
type Imputer struct {
	Strategy Strategy

	// Fallback fills columns with zero observed values. When nil, such a
	// column fails the fit with ErrEmptyColumn.
	Fallback *float64

	// Statistics holds the learned fill value per column after Fit.
	Statistics []float64
}

// Fit learns the fill value of every column of x.
func (im *Imputer) Fit(x mat.Matrix) error {
	rows, cols := x.Dims()
	im.Statistics = make([]float64, cols)

	obs := make([]float64, 0, rows)
	for j := 0; j < cols; j++ {
		obs = obs[:0]
		for i := 0; i < rows; i++ {
			if v := x.At(i, j); !math.IsNaN(v) {
				obs = append(obs, v)
			}
		}
		if len(obs) == 0 {
			if im.Fallback == nil {
				return fmt.Errorf("%w: column %d", ErrEmptyColumn, j)
			}
			im.Statistics[j] = *im.Fallback
			continue
		}
		switch im.Strategy {
		case "", StrategyMean:
			im.Statistics[j] = stat.Mean(obs, nil)
		case StrategyMedian:
			im.Statistics[j] = median(obs)
		default:
			return fmt.Errorf("unknown imputation strategy %q", im.Strategy)
		}
	}
	return nil
}

// Transform replaces every NaN cell of x with its column's learned value.
func (im *Imputer) Transform(x *mat.Dense) error {
	rows, cols := x.Dims()
	if len(im.Statistics) != cols {
		return fmt.Errorf("imputer fitted for %d columns, matrix has %d", len(im.Statistics), cols)
	}
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			if math.IsNaN(x.At(i, j)) {
				x.Set(i, j, im.Statistics[j])
			}
		}
	}
	return nil
}

// FitTransform fits on x and fills it in place.
func (im *Imputer) FitTransform(x *mat.Dense) error {
	if err := im.Fit(x); err != nil {
		return err
	}
	return im.Transform(x)
}

// median averages the two middle values for even counts. stat.Quantile's
// interpolation modes don't pin that down, so it is computed directly.
// The input slice is reordered.
func median(xs []float64) float64 {
	sort.Float64s(xs)
	mid := len(xs) / 2
	if len(xs)%2 == 1 {
		return xs[mid]
	}
	return (xs[mid-1] + xs[mid]) / 2
}
