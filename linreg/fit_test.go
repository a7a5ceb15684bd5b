package linreg

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/ahmedtd/linreg/toolbox"
	"github.com/chewxy/math32"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func referenceFit(t *testing.T, seed int64) (*Dataset, *Result) {
	t.Helper()

	r := rand.New(rand.NewSource(seed))
	ds, err := Generate(DefaultGenerateOptions(), r)
	if err != nil {
		t.Fatalf("Unexpected error generating: %v", err)
	}

	opts := DefaultFitOptions()
	opts.LogEvery = 10
	opts.Logger = zaptest.NewLogger(t)

	res, err := Fit(ds, opts, r)
	if err != nil {
		t.Fatalf("Unexpected error fitting: %v", err)
	}
	return ds, res
}

func TestFitRecoversGroundTruth(t *testing.T) {
	_, res := referenceFit(t, 12345)

	t.Logf("w1=%v w2=%v b=%v loss=%v", res.Weights[0], res.Weights[1], res.Bias, res.FinalLoss())

	if len(res.Losses) != 100 {
		t.Fatalf("Wrong number of losses; got %d, want 100", len(res.Losses))
	}
	if math32.Abs(res.Weights[0]-2) > 0.05 {
		t.Errorf("w1 = %v, want 2 ± 0.05", res.Weights[0])
	}
	if math32.Abs(res.Weights[1]+3) > 0.05 {
		t.Errorf("w2 = %v, want -3 ± 0.05", res.Weights[1])
	}
	// The bias direction converges slowest, and the intercept of 1000 noisy
	// samples is itself a few hundredths off.
	if math32.Abs(res.Bias-5) > 0.1 {
		t.Errorf("b = %v, want 5 ± 0.1", res.Bias)
	}
	if res.FinalLoss() >= 0.2 {
		t.Errorf("final loss = %v, want < 0.2", res.FinalLoss())
	}
	// Uniform noise on [-1, 1] has variance 1/3, so the optimum sits near 1/6.
	if math32.Abs(res.FinalLoss()-0.1647) > 0.025 {
		t.Errorf("final loss = %v, want near 0.1647", res.FinalLoss())
	}
}

func TestFitLossIsNonIncreasing(t *testing.T) {
	_, res := referenceFit(t, 12345)

	for i := 1; i < len(res.Losses); i++ {
		// Slack for float32 rounding once the loss has flattened out.
		if res.Losses[i] > res.Losses[i-1]+1e-5 {
			t.Errorf("loss rose at step %d: %v -> %v", i, res.Losses[i-1], res.Losses[i])
		}
	}
}

func TestFitIsDeterministicForSeed(t *testing.T) {
	_, first := referenceFit(t, 99)
	_, second := referenceFit(t, 99)

	if diff := cmp.Diff(first.Losses, second.Losses); diff != "" {
		t.Fatalf("Same seed produced different losses; diff (-first +second)\n%s", diff)
	}
	if first.Weights != second.Weights || first.Bias != second.Bias {
		t.Fatalf("Same seed produced different parameters: %v %v vs %v %v", first.Weights, first.Bias, second.Weights, second.Bias)
	}
}

func TestFitApproachesClosedForm(t *testing.T) {
	ds, res := referenceFit(t, 12345)

	weights, bias, err := Solve(ds)
	if err != nil {
		t.Fatalf("Unexpected error solving: %v", err)
	}

	for j := range weights {
		if math32.Abs(res.Weights[j]-weights[j]) > 0.01 {
			t.Errorf("w%d = %v, closed form %v", j+1, res.Weights[j], weights[j])
		}
	}
	if math32.Abs(res.Bias-bias) > 0.05 {
		t.Errorf("b = %v, closed form %v", res.Bias, bias)
	}
}

func TestFitResultMatchesNetwork(t *testing.T) {
	ds, res := referenceFit(t, 12345)

	lay := res.Network.Layers[0]
	if res.Weights[0] != lay.W.V[0] || res.Weights[1] != lay.W.V[1] || res.Bias != lay.B.V[0] {
		t.Fatalf("Result %v %v disagrees with network W=%v B=%v", res.Weights, res.Bias, lay.W.V, lay.B.V)
	}

	pred, err := Predict(res.Network, ds)
	if err != nil {
		t.Fatalf("Unexpected error predicting: %v", err)
	}
	m, err := Evaluate(ds, pred)
	if err != nil {
		t.Fatalf("Unexpected error evaluating: %v", err)
	}
	if m.Loss >= 0.2 {
		t.Errorf("evaluated loss = %v, want < 0.2", m.Loss)
	}
	if m.RSquared < 0.99 {
		t.Errorf("R^2 = %v, want >= 0.99", m.RSquared)
	}
}

func TestFitDivergesWithLargeLearningRate(t *testing.T) {
	r := rand.New(rand.NewSource(12345))
	ds, err := Generate(DefaultGenerateOptions(), r)
	if err != nil {
		t.Fatalf("Unexpected error generating: %v", err)
	}

	opts := DefaultFitOptions()
	opts.LearningRate = 0.2
	opts.Iterations = 10

	res, err := Fit(ds, opts, r)
	if err != nil {
		t.Fatalf("Unexpected error fitting: %v", err)
	}
	if !(res.FinalLoss() > res.Losses[0]) {
		t.Fatalf("Expected the loss to grow; got %v", res.Losses)
	}
}

func TestFitWarnsOnceWhenLossOverflows(t *testing.T) {
	r := rand.New(rand.NewSource(12345))
	ds, err := Generate(DefaultGenerateOptions(), r)
	if err != nil {
		t.Fatalf("Unexpected error generating: %v", err)
	}

	core, logs := observer.New(zap.WarnLevel)
	opts := DefaultFitOptions()
	opts.LearningRate = 10
	opts.Iterations = 50
	opts.Logger = zap.New(core)

	res, err := Fit(ds, opts, r)
	if err != nil {
		t.Fatalf("Unexpected error fitting: %v", err)
	}
	if final := res.FinalLoss(); !math32.IsNaN(final) && !math32.IsInf(final, 0) {
		t.Fatalf("Expected a non-finite final loss; got %v", final)
	}
	if got := logs.FilterMessage("loss is no longer finite").Len(); got != 1 {
		t.Fatalf("Got %d overflow warnings, want 1", got)
	}
}

func TestFitLogsEveryNthStepAndTheLast(t *testing.T) {
	r := rand.New(rand.NewSource(12345))
	ds, err := Generate(DefaultGenerateOptions(), r)
	if err != nil {
		t.Fatalf("Unexpected error generating: %v", err)
	}

	core, logs := observer.New(zap.InfoLevel)
	opts := DefaultFitOptions()
	opts.LogEvery = 10
	opts.Logger = zap.New(core)

	if _, err := Fit(ds, opts, r); err != nil {
		t.Fatalf("Unexpected error fitting: %v", err)
	}

	var got []int64
	for _, entry := range logs.FilterMessage("step").All() {
		got = append(got, entry.ContextMap()["step"].(int64))
	}
	want := []int64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 99}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatalf("Wrong logged steps; diff (-got +want)\n%s", diff)
	}
}

func TestFitRejectsBadInput(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	ds, err := Generate(DefaultGenerateOptions(), r)
	if err != nil {
		t.Fatalf("Unexpected error generating: %v", err)
	}

	t.Run("three features", func(t *testing.T) {
		bad := &Dataset{X: toolbox.MakeAF32(10, 3), Y: toolbox.MakeAF32(10, 1)}
		if _, err := Fit(bad, DefaultFitOptions(), r); !errors.Is(err, ErrShape) {
			t.Fatalf("Got error %v, want ErrShape", err)
		}
	})

	t.Run("zero iterations", func(t *testing.T) {
		opts := DefaultFitOptions()
		opts.Iterations = 0
		if _, err := Fit(ds, opts, r); err == nil {
			t.Fatalf("Expected an error")
		}
	})

	t.Run("negative learning rate", func(t *testing.T) {
		opts := DefaultFitOptions()
		opts.LearningRate = -0.05
		if _, err := Fit(ds, opts, r); err == nil {
			t.Fatalf("Expected an error")
		}
	})
}
