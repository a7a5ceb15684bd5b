package linreg

import (
	"fmt"

	"github.com/ahmedtd/linreg/toolbox"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Solve returns the least-squares weights and bias for ds in closed form.
// It is the point gradient descent converges to.
func Solve(ds *Dataset) (weights [NumFeatures]float32, bias float32, err error) {
	if err := ds.check(); err != nil {
		return weights, 0, err
	}

	n := ds.Len()
	a := mat.NewDense(n, NumFeatures+1, nil)
	b := mat.NewDense(n, 1, nil)
	for k := 0; k < n; k++ {
		for j := 0; j < NumFeatures; j++ {
			a.Set(k, j, float64(ds.X.At2(k, j)))
		}
		a.Set(k, NumFeatures, 1)
		b.Set(k, 0, float64(ds.Y.At2(k, 0)))
	}

	var beta mat.Dense
	if err := beta.Solve(a, b); err != nil {
		return weights, 0, fmt.Errorf("while solving normal equations: %w", err)
	}

	for j := 0; j < NumFeatures; j++ {
		weights[j] = float32(beta.At(j, 0))
	}
	return weights, float32(beta.At(NumFeatures, 0)), nil
}

// Metrics scores a set of predictions.
type Metrics struct {
	// Loss is the training objective, sum(r^2) / (2n).
	Loss float64

	RSquared float64
}

// Evaluate scores predictions of shape (n, 1) against the targets of ds.
func Evaluate(ds *Dataset, predictions *toolbox.AF32) (Metrics, error) {
	if err := ds.check(); err != nil {
		return Metrics{}, err
	}
	if len(predictions.Shape) != 2 || predictions.Shape[0] != ds.Len() || predictions.Shape[1] != 1 {
		return Metrics{}, fmt.Errorf("%w: predictions have shape %v, want (%d, 1)", ErrShape, predictions.Shape, ds.Len())
	}

	estimates := float64s(predictions.V)
	values := float64s(ds.Y.V)

	var sum float64
	for k := range values {
		d := estimates[k] - values[k]
		sum += d * d
	}

	return Metrics{
		Loss:     sum / float64(2*len(values)),
		RSquared: stat.RSquaredFrom(estimates, values, nil),
	}, nil
}

// float64s widens v for the gonum APIs.
func float64s(v []float32) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = float64(v[i])
	}
	return out
}
