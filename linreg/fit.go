package linreg

import (
	"fmt"
	"math/rand"

	"github.com/ahmedtd/linreg/toolbox"
	"github.com/chewxy/math32"
	"go.uber.org/zap"
)

// FitOptions controls a gradient descent run.
type FitOptions struct {
	LearningRate float32

	// Iterations is the fixed number of gradient descent steps.
	Iterations int

	// Weights and bias start uniformly in [-InitLimit, InitLimit].
	InitLimit float32

	// Log every LogEvery steps, plus the final step.  Zero means every step.
	LogEvery int

	Logger *zap.Logger
}

// DefaultFitOptions is 100 steps at learning rate 0.05 from parameters in
// [-0.1, 0.1].
func DefaultFitOptions() FitOptions {
	return FitOptions{
		LearningRate: 0.05,
		Iterations:   100,
		InitLimit:    0.1,
		LogEvery:     1,
	}
}

func (o FitOptions) Validate() error {
	if o.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be > 0 (got %v)", o.LearningRate)
	}
	if o.Iterations <= 0 {
		return fmt.Errorf("iterations must be > 0 (got %d)", o.Iterations)
	}
	if o.InitLimit < 0 {
		return fmt.Errorf("init limit must be >= 0 (got %v)", o.InitLimit)
	}
	if o.LogEvery < 0 {
		return fmt.Errorf("log every must be >= 0 (got %d)", o.LogEvery)
	}
	return nil
}

// Result is the fitted model and the loss observed at every step.
type Result struct {
	Weights [NumFeatures]float32
	Bias    float32

	// Losses[i] is the loss observed at step i, before that step's update.
	Losses []float32

	// Network holds the fitted parameters as a single linear layer.
	Network *toolbox.Network
}

// FinalLoss is the loss observed at the last step.
func (res *Result) FinalLoss() float32 {
	return res.Losses[len(res.Losses)-1]
}

// NewNetwork makes the one-layer model Fit trains, initialized from r.
func NewNetwork(initLimit float32, r *rand.Rand) *toolbox.Network {
	return &toolbox.Network{
		Layers: []*toolbox.Layer{
			toolbox.MakeDenseUniform(NumFeatures, 1, initLimit, r),
		},
	}
}

// Fit runs opts.Iterations full-batch gradient descent steps over ds.  The
// initial parameters are drawn from r, so a fixed seed reproduces the loss
// sequence exactly.
//
// A learning rate above the stability threshold is not guarded against: the
// losses grow, and eventually become Inf or NaN.  The first non-finite loss is
// logged as a warning and the remaining steps still run.
func Fit(ds *Dataset, opts FitOptions, r *rand.Rand) (*Result, error) {
	if err := ds.check(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("while validating fit options: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logEvery := opts.LogEvery
	if logEvery == 0 {
		logEvery = 1
	}

	net := NewNetwork(opts.InitLimit, r)
	lay := net.Layers[0]
	logger.Debug("initialized",
		zap.Float32("w1", lay.W.V[0]),
		zap.Float32("w2", lay.W.V[1]),
		zap.Float32("b", lay.B.V[0]),
	)

	gdp := net.MakeGradientDescentParameters(opts.LearningRate, ds.Len(), NumFeatures)

	res := &Result{
		Losses:  make([]float32, 0, opts.Iterations),
		Network: net,
	}
	diverged := false
	for gdp.Step() < opts.Iterations {
		step := gdp.Step()
		loss := net.GradientDescentStep(ds.X, ds.Y, gdp)
		res.Losses = append(res.Losses, loss)

		if !diverged && (math32.IsNaN(loss) || math32.IsInf(loss, 0)) {
			diverged = true
			logger.Warn("loss is no longer finite", zap.Int("step", step), zap.Float32("learning-rate", opts.LearningRate))
		}

		if step%logEvery == 0 || step == opts.Iterations-1 {
			logger.Info("step",
				zap.Int("step", step),
				zap.Float32("loss", loss),
				zap.Float32("w1", lay.W.V[0]),
				zap.Float32("w2", lay.W.V[1]),
				zap.Float32("b", lay.B.V[0]),
			)
		}
	}

	logger.Debug("timings",
		zap.Duration("overall", gdp.Timings.Overall),
		zap.Duration("forward", gdp.Timings.Forward),
		zap.Duration("loss", gdp.Timings.Loss),
		zap.Duration("backprop", gdp.Timings.Backpropagation),
		zap.Duration("weightupdate", gdp.Timings.WeightUpdate),
	)

	res.Weights[0] = lay.W.V[0]
	res.Weights[1] = lay.W.V[1]
	res.Bias = lay.B.V[0]
	return res, nil
}

// Predict runs net over the inputs of ds.  The result has shape (n, 1).
func Predict(net *toolbox.Network, ds *Dataset) (*toolbox.AF32, error) {
	if err := ds.check(); err != nil {
		return nil, err
	}
	if len(net.Layers) == 0 || net.Layers[0].InputSize != NumFeatures {
		return nil, fmt.Errorf("%w: network does not take %d inputs", ErrShape, NumFeatures)
	}
	return net.Apply(ds.X), nil
}
