package linreg

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/ahmedtd/linreg/toolbox"
	"github.com/chewxy/math32"
	"github.com/google/go-cmp/cmp"
)

func TestGenerateShapes(t *testing.T) {
	ds, err := Generate(DefaultGenerateOptions(), rand.New(rand.NewSource(12345)))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if diff := cmp.Diff(ds.X.Shape, []int{1000, 2}); diff != "" {
		t.Errorf("Wrong input shape; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(ds.Y.Shape, []int{1000, 1}); diff != "" {
		t.Errorf("Wrong target shape; diff (-got +want)\n%s", diff)
	}
	if ds.Len() != 1000 {
		t.Errorf("Wrong length; got %d, want 1000", ds.Len())
	}
}

func TestGenerateFollowsGroundTruth(t *testing.T) {
	opts := DefaultGenerateOptions()
	ds, err := Generate(opts, rand.New(rand.NewSource(12345)))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for k := 0; k < ds.Len(); k++ {
		x1 := ds.X.At2(k, 0)
		x2 := ds.X.At2(k, 1)
		if x1 < -10 || x1 > 10 || x2 < -10 || x2 > 10 {
			t.Fatalf("sample %d input (%v, %v) outside [-10, 10]", k, x1, x2)
		}

		noise := ds.Y.At2(k, 0) - (2*x1 - 3*x2 + 5)
		// Allow for float32 rounding of targets up to ~55 in magnitude.
		if math32.Abs(noise) > 1+1e-4 {
			t.Fatalf("sample %d has noise %v outside [-1, 1]", k, noise)
		}
	}
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	a, err := Generate(DefaultGenerateOptions(), rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	b, err := Generate(DefaultGenerateOptions(), rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("Same seed produced different data; diff (-first +second)\n%s", diff)
	}
}

func TestGenerateRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*GenerateOptions)
	}{
		{"zero samples", func(o *GenerateOptions) { o.Samples = 0 }},
		{"negative samples", func(o *GenerateOptions) { o.Samples = -1 }},
		{"empty x1 range", func(o *GenerateOptions) { o.X1 = Interval{Min: 1, Max: -1} }},
		{"empty noise range", func(o *GenerateOptions) { o.Noise = Interval{Min: 0.5, Max: 0} }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultGenerateOptions()
			tc.modify(&opts)
			if _, err := Generate(opts, rand.New(rand.NewSource(1))); err == nil {
				t.Fatalf("Expected an error")
			}
		})
	}
}

func TestDegenerateIntervalIsConstant(t *testing.T) {
	opts := DefaultGenerateOptions()
	opts.Samples = 10
	opts.Noise = Interval{}
	opts.X2 = Interval{Min: 3, Max: 3}

	ds, err := Generate(opts, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for k := 0; k < ds.Len(); k++ {
		if got := ds.X.At2(k, 1); got != 3 {
			t.Errorf("sample %d x2 = %v, want 3", k, got)
		}
		want := 2*ds.X.At2(k, 0) - 3*3 + 5
		if got := ds.Y.At2(k, 0); math32.Abs(got-want) > 1e-4 {
			t.Errorf("sample %d y = %v, want %v", k, got, want)
		}
	}
}

func TestCheckRejectsMismatchedRows(t *testing.T) {
	ds, err := Generate(DefaultGenerateOptions(), rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	ds.Y.Shape = []int{999, 1}
	ds.Y.V = ds.Y.V[:999]

	if err := ds.check(); !errors.Is(err, ErrShape) {
		t.Fatalf("Got error %v, want ErrShape", err)
	}
}

func TestEmptyDatasetIsRejected(t *testing.T) {
	ds := &Dataset{
		X: &toolbox.AF32{Shape: []int{0, NumFeatures}},
		Y: &toolbox.AF32{Shape: []int{0, 1}},
	}

	if _, err := Fit(ds, DefaultFitOptions(), rand.New(rand.NewSource(1))); !errors.Is(err, ErrShape) {
		t.Errorf("Fit: got error %v, want ErrShape", err)
	}
	if _, _, err := Solve(ds); !errors.Is(err, ErrShape) {
		t.Errorf("Solve: got error %v, want ErrShape", err)
	}
}
