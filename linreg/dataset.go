// Package linreg fits y = w1*x1 + w2*x2 + b to synthetic data by gradient
// descent.
//
// Generate draws a sample set from a known ground truth, SaveArchive and
// LoadArchive move it through a NumPy .npz file, and Fit recovers the
// parameters.  Solve gives the closed-form least-squares answer for
// comparison.
package linreg

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/ahmedtd/linreg/toolbox"
)

// NumFeatures is the number of input columns of every sample set.
const NumFeatures = 2

// ErrShape is wrapped by errors about arrays that are not (n, 2) inputs with
// (n, 1) targets.
var ErrShape = errors.New("bad sample set shape")

// Interval is a range values are drawn uniformly from.
type Interval struct {
	Min float32 `yaml:"min"`
	Max float32 `yaml:"max"`
}

func (iv Interval) draw(r *rand.Rand) float32 {
	return iv.Min + (iv.Max-iv.Min)*r.Float32()
}

// Truth is the linear function targets are generated from.
type Truth struct {
	W1   float32 `yaml:"w1"`
	W2   float32 `yaml:"w2"`
	Bias float32 `yaml:"bias"`
}

// GenerateOptions describes the sample set Generate draws.
type GenerateOptions struct {
	Samples int
	X1      Interval
	X2      Interval
	Noise   Interval
	Truth   Truth
}

// DefaultGenerateOptions is 1000 samples of 2*x1 - 3*x2 + 5 with x1, x2 in
// [-10, 10] and noise in [-1, 1].
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Samples: 1000,
		X1:      Interval{Min: -10, Max: 10},
		X2:      Interval{Min: -10, Max: 10},
		Noise:   Interval{Min: -1, Max: 1},
		Truth:   Truth{W1: 2, W2: -3, Bias: 5},
	}
}

func (o GenerateOptions) Validate() error {
	if o.Samples <= 0 {
		return fmt.Errorf("samples must be > 0 (got %d)", o.Samples)
	}
	for _, iv := range []struct {
		name string
		iv   Interval
	}{
		{"x1", o.X1},
		{"x2", o.X2},
		{"noise", o.Noise},
	} {
		if iv.iv.Min > iv.iv.Max {
			return fmt.Errorf("%s range is empty: min %v > max %v", iv.name, iv.iv.Min, iv.iv.Max)
		}
	}
	return nil
}

// Dataset is an immutable sample set.
type Dataset struct {
	X *toolbox.AF32 // Shape (n, 2)
	Y *toolbox.AF32 // Shape (n, 1)
}

// Len is the number of samples.
func (ds *Dataset) Len() int {
	return ds.X.Shape[0]
}

func (ds *Dataset) check() error {
	if ds == nil || ds.X == nil || ds.Y == nil {
		return fmt.Errorf("%w: missing inputs or targets", ErrShape)
	}
	if len(ds.X.Shape) != 2 || ds.X.Shape[1] != NumFeatures {
		return fmt.Errorf("%w: inputs have shape %v, want (n, %d)", ErrShape, ds.X.Shape, NumFeatures)
	}
	if len(ds.Y.Shape) != 2 || ds.Y.Shape[1] != 1 {
		return fmt.Errorf("%w: targets have shape %v, want (n, 1)", ErrShape, ds.Y.Shape)
	}
	if ds.X.Shape[0] < 1 {
		return fmt.Errorf("%w: no samples", ErrShape)
	}
	if ds.X.Shape[0] != ds.Y.Shape[0] {
		return fmt.Errorf("%w: %d input rows but %d target rows", ErrShape, ds.X.Shape[0], ds.Y.Shape[0])
	}
	return nil
}

// Generate draws opts.Samples samples.  For each sample x1, x2 and the noise
// are drawn from r in that order.
func Generate(opts GenerateOptions, r *rand.Rand) (*Dataset, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("while validating generate options: %w", err)
	}

	x := toolbox.MakeAF32(opts.Samples, NumFeatures)
	y := toolbox.MakeAF32(opts.Samples, 1)

	for k := 0; k < opts.Samples; k++ {
		x1 := opts.X1.draw(r)
		x2 := opts.X2.draw(r)
		noise := opts.Noise.draw(r)

		x.Set2(k, 0, x1)
		x.Set2(k, 1, x2)
		y.Set2(k, 0, opts.Truth.W1*x1+opts.Truth.W2*x2+opts.Truth.Bias+noise)
	}

	return &Dataset{X: x, Y: y}, nil
}
