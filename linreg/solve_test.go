package linreg

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/ahmedtd/linreg/toolbox"
	"github.com/chewxy/math32"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestSolveNoiselessData(t *testing.T) {
	opts := DefaultGenerateOptions()
	opts.Noise = Interval{}
	ds, err := Generate(opts, rand.New(rand.NewSource(12345)))
	if err != nil {
		t.Fatalf("Unexpected error generating: %v", err)
	}

	weights, bias, err := Solve(ds)
	if err != nil {
		t.Fatalf("Unexpected error solving: %v", err)
	}

	if math32.Abs(weights[0]-2) > 1e-3 || math32.Abs(weights[1]+3) > 1e-3 || math32.Abs(bias-5) > 1e-3 {
		t.Fatalf("Solve = %v, %v; want [2 -3], 5", weights, bias)
	}
}

func TestEvaluate(t *testing.T) {
	ds := &Dataset{
		X: &toolbox.AF32{V: []float32{0, 0, 1, 0, 0, 1, 1, 1}, Shape: []int{4, 2}},
		Y: &toolbox.AF32{V: []float32{1, 2, 3, 4}, Shape: []int{4, 1}},
	}

	perfect, err := Evaluate(ds, &toolbox.AF32{V: []float32{1, 2, 3, 4}, Shape: []int{4, 1}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if diff := cmp.Diff(perfect, Metrics{Loss: 0, RSquared: 1}, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Wrong metrics for perfect predictions; diff (-got +want)\n%s", diff)
	}

	// Residuals of 1 everywhere: loss 4/(2*4), and the targets have a total
	// sum of squares of 5.
	off, err := Evaluate(ds, &toolbox.AF32{V: []float32{2, 3, 4, 5}, Shape: []int{4, 1}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if diff := cmp.Diff(off, Metrics{Loss: 0.5, RSquared: 1 - 4.0/5.0}, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Wrong metrics for shifted predictions; diff (-got +want)\n%s", diff)
	}

	if _, err := Evaluate(ds, toolbox.MakeAF32(3, 1)); !errors.Is(err, ErrShape) {
		t.Errorf("Got error %v, want ErrShape", err)
	}
}
