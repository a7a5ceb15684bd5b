package toolbox

import (
	"fmt"
	"time"
)

// Network is a stack of linear layers trained against mean squared error.
type Network struct {
	Layers []*Layer
}

// x is the input.  Shape (batchSize, layers[0].InputSize)
func (net *Network) Apply(x *AF32) *AF32 {
	a0 := x
	for l := 0; l < len(net.Layers); l++ {
		a1 := MakeAF32(x.Shape[0], net.Layers[l].OutputSize)
		net.Layers[l].Apply(a0, a1)
		a0 = a1
	}
	return a0
}

// ys is the ground truth output.  Shape (batchSize, outputSize)
// predictions is the output of Apply.  Shape (batchSize, outputSize)
func (net *Network) Loss(ys, predictions *AF32, totalSamples int) float32 {
	return MeanSquaredErrorLoss(ys, predictions, totalSamples)
}

// GradientDescentParameters holds the learning rate and the scratch storage
// reused by every GradientDescentStep over a batch of a fixed size.
type GradientDescentParameters struct {
	step int

	alpha float32

	batchSize int

	xTranspose *AF32

	a, djda, djdaTranspose []*AF32

	// The current gradients per-layer
	djdw, djdb []*AF32

	Timings GradientDescentTimings
}

type GradientDescentTimings struct {
	Overall         time.Duration
	Forward         time.Duration
	Loss            time.Duration
	Backpropagation time.Duration
	WeightUpdate    time.Duration
}

// Step is the number of completed steps.
func (gdp *GradientDescentParameters) Step() int {
	return gdp.step
}

func (net *Network) MakeGradientDescentParameters(alpha float32, batchSize int, inputSize int) *GradientDescentParameters {
	gdp := &GradientDescentParameters{
		alpha:     alpha,
		batchSize: batchSize,
	}

	gdp.xTranspose = MakeAF32(inputSize, batchSize)
	gdp.a = make([]*AF32, len(net.Layers))
	gdp.djda = make([]*AF32, len(net.Layers))
	gdp.djdaTranspose = make([]*AF32, len(net.Layers))
	gdp.djdw = make([]*AF32, len(net.Layers))
	gdp.djdb = make([]*AF32, len(net.Layers))
	for l := 0; l < len(net.Layers); l++ {
		gdp.a[l] = MakeAF32(batchSize, net.Layers[l].OutputSize)
		gdp.djda[l] = MakeAF32(batchSize, net.Layers[l].OutputSize)
		gdp.djdaTranspose[l] = MakeAF32(net.Layers[l].OutputSize, batchSize)
		gdp.djdw[l] = MakeAF32(net.Layers[l].OutputSize, net.Layers[l].InputSize)
		gdp.djdb[l] = MakeAF32(net.Layers[l].OutputSize)
	}

	return gdp
}

// GradientDescentStep applies one update W -= alpha * dJ/dW, B -= alpha *
// dJ/dB to every layer.  It returns the loss of the parameters as they were
// before the update.
func (net *Network) GradientDescentStep(x, y *AF32, gdp *GradientDescentParameters) float32 {
	if x.Shape[0] != gdp.batchSize {
		panic(fmt.Sprintf("batch size %d does not match parameters (%d)", x.Shape[0], gdp.batchSize))
	}

	start := time.Now()

	// The weight gradient is better computed with the batch as the inner
	// dimension.
	AF32Transpose(x, gdp.xTranspose)

	forwardStart := time.Now()

	net.Layers[0].Apply(x, gdp.a[0])
	for l := 1; l < len(net.Layers); l++ {
		net.Layers[l].Apply(gdp.a[l-1], gdp.a[l])
	}

	gdp.Timings.Forward += time.Since(forwardStart)

	lossStart := time.Now()

	last := len(net.Layers) - 1
	loss := net.Loss(y, gdp.a[last], gdp.batchSize)
	MeanSquaredErrorLossGradient(y, gdp.a[last], gdp.djda[last])

	gdp.Timings.Loss += time.Since(lossStart)

	backpropStart := time.Now()

	// Backprop.  djdx of layer l is the djda of layer l-1.
	for l := last; l >= 1; l-- {
		AF32Transpose(gdp.djda[l], gdp.djdaTranspose[l])
		aTranspose := MakeAF32(net.Layers[l].InputSize, gdp.batchSize)
		AF32Transpose(gdp.a[l-1], aTranspose)

		net.Layers[l].BackpropDjdw(aTranspose, gdp.djdaTranspose[l], gdp.djdw[l])
		net.Layers[l].BackpropDjdb(gdp.djdaTranspose[l], gdp.djdb[l])
		net.Layers[l].BackpropDjdx(gdp.djda[l], gdp.djda[l-1])
	}
	AF32Transpose(gdp.djda[0], gdp.djdaTranspose[0])
	net.Layers[0].BackpropDjdw(gdp.xTranspose, gdp.djdaTranspose[0], gdp.djdw[0])
	net.Layers[0].BackpropDjdb(gdp.djdaTranspose[0], gdp.djdb[0])

	gdp.Timings.Backpropagation += time.Since(backpropStart)

	weightUpdateStart := time.Now()

	for l := 0; l < len(net.Layers); l++ {
		lay := net.Layers[l]
		for i := range lay.W.V {
			lay.W.V[i] -= gdp.alpha * gdp.djdw[l].V[i]
		}
		for i := range lay.B.V {
			lay.B.V[i] -= gdp.alpha * gdp.djdb[l].V[i]
		}
	}

	gdp.Timings.WeightUpdate += time.Since(weightUpdateStart)

	gdp.Timings.Overall += time.Since(start)

	gdp.step++

	return loss
}
