package tractometry

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func nan() float64 { return math.NaN() }

func TestImputerMean(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{
		1, 10,
		nan(), 20,
		3, nan(),
	})
	imputer := Imputer{Strategy: StrategyMean}
	if err := imputer.FitTransform(x); err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	if got := x.At(1, 0); got != 2 {
		t.Errorf("imputed [1][0] = %v, want 2", got)
	}
	if got := x.At(2, 1); got != 15 {
		t.Errorf("imputed [2][1] = %v, want 15", got)
	}
	// Observed cells are untouched.
	if got := x.At(0, 0); got != 1 {
		t.Errorf("observed [0][0] = %v, want 1", got)
	}
}

func TestImputerMedian(t *testing.T) {
	x := mat.NewDense(5, 1, []float64{5, 1, 9, nan(), 3})
	imputer := Imputer{Strategy: StrategyMedian}
	if err := imputer.FitTransform(x); err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	// Median of {1, 3, 5, 9} averages the middle pair.
	if got := x.At(3, 0); got != 4 {
		t.Errorf("imputed [3][0] = %v, want 4", got)
	}
}

func TestImputerEmptyColumn(t *testing.T) {
	x := mat.NewDense(2, 2, []float64{
		1, nan(),
		2, nan(),
	})
	imputer := Imputer{}
	if err := imputer.Fit(x); !errors.Is(err, ErrEmptyColumn) {
		t.Fatalf("got %v, want ErrEmptyColumn", err)
	}

	fill := 0.0
	imputer = Imputer{Fallback: &fill}
	if err := imputer.FitTransform(x); err != nil {
		t.Fatalf("FitTransform with fallback failed: %v", err)
	}
	if got := x.At(0, 1); got != 0 {
		t.Errorf("fallback fill = %v, want 0", got)
	}
}

func TestImputerTransformWidthMismatch(t *testing.T) {
	imputer := Imputer{}
	if err := imputer.Fit(mat.NewDense(1, 2, []float64{1, 2})); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if err := imputer.Transform(mat.NewDense(1, 3, []float64{1, 2, 3})); err == nil {
		t.Error("expected width mismatch error")
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		want float64
	}{
		{"single", []float64{7}, 7},
		{"odd", []float64{3, 1, 2}, 2},
		{"even", []float64{4, 1, 3, 2}, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := median(tt.xs); got != tt.want {
				t.Errorf("median(%v) = %v, want %v", tt.xs, got, tt.want)
			}
		})
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyMean, false},
		{"mean", StrategyMean, false},
		{"median", StrategyMedian, false},
		{"mode", "", true},
	}

	for _, tt := range tests {
		t.Run("in="+tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStrategy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseStrategy(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
