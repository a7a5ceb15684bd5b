// Package toolbox holds the dense float32 arrays and the linear layers that
// the regression fitter is built from.
package toolbox

import (
	"fmt"
	"math/rand"
	"slices"
)

// AF32 is a dense, row-major float32 array.
type AF32 struct {
	V     []float32
	Shape []int
}

func MakeAF32(shape ...int) *AF32 {
	for _, s := range shape {
		if s <= 0 {
			panic(fmt.Sprintf("invalid shape: %v", shape))
		}
	}
	size := 1
	for _, s := range shape {
		size *= s
	}

	return &AF32{
		V:     make([]float32, size),
		Shape: shape,
	}
}

// AF32Copy allocates an array with the same shape as in.  The values are not
// copied.
func AF32Copy(in *AF32) *AF32 {
	shapeCopy := make([]int, len(in.Shape))
	copy(shapeCopy, in.Shape)
	return &AF32{
		V:     make([]float32, len(in.V)),
		Shape: shapeCopy,
	}
}

func AF32Transpose(in *AF32, out *AF32) {
	if len(in.Shape) != 2 {
		panic("cannot transpose if len(shape) != 2")
	}
	if len(in.V) != len(out.V) {
		panic("output storage is not correctly sized to store the transpose of the input")
	}
	out.Shape = []int{in.Shape[1], in.Shape[0]}

	for i := 0; i < in.Shape[0]; i++ {
		for j := 0; j < in.Shape[1]; j++ {
			out.Set2(j, i, in.At2(i, j))
		}
	}
}

func (a *AF32) At1(idx int) float32 {
	return a.V[idx]
}

func (a *AF32) At2(idx0, idx1 int) float32 {
	if len(a.Shape) != 2 {
		panic("At2() invalid for len(shape) != 2")
	}
	return a.V[idx0*a.Shape[1]+idx1]
}

func (a *AF32) Set1(idx int, v float32) {
	a.V[idx] = v
}

func (a *AF32) Set2(idx0, idx1 int, v float32) {
	if len(a.Shape) != 2 {
		panic("Set2() invalid for len(shape) != 2")
	}
	a.V[idx0*a.Shape[1]+idx1] = v
}

// y is the ground truth output.  Shape (batchSize, outputSize)
// a is the network's forward output.  Shape (batchSize, outputSize)
// denom is the total number of samples we will calculate the loss over.
//
// The loss is sum((a-y)^2) / (2 * denom * outputSize).
func MeanSquaredErrorLoss(y, a *AF32, denom int) float32 {
	if len(y.Shape) != 2 {
		panic("len(y.Shape) != 2")
	}
	if len(a.Shape) != 2 {
		panic("len(a.Shape) != 2")
	}
	if !slices.Equal(y.Shape, a.Shape) {
		panic("y and a must have same shape")
	}

	batchSize := y.Shape[0]
	outputSize := y.Shape[1]

	loss := float32(0)

	for k := 0; k < batchSize; k++ {
		for i := 0; i < outputSize; i++ {
			diff := a.At2(k, i) - y.At2(k, i)
			loss += diff * diff
		}
	}

	return loss / 2 / float32(denom) / float32(outputSize)
}

// y is the ground truth output.  Shape (batchSize, outputSize)
// a is the network's forward output.  Shape (batchSize, outputSize)
// dJda (output) is storage for the gradient of the loss wrt a.  Shape (batchSize, outputSize)
func MeanSquaredErrorLossGradient(y, a, dJda *AF32) {
	if len(y.Shape) != 2 {
		panic("len(y.Shape) != 2")
	}
	if !slices.Equal(y.Shape, a.Shape) {
		panic("y and a must have same shape")
	}
	if !slices.Equal(y.Shape, dJda.Shape) {
		panic("y and dJda must have same shape")
	}

	batchSize := a.Shape[0]
	outputSize := a.Shape[1]

	for k := 0; k < batchSize; k++ {
		for i := 0; i < outputSize; i++ {
			grad := (a.At2(k, i) - y.At2(k, i)) / float32(batchSize) / float32(outputSize)
			dJda.Set2(k, i, grad)
		}
	}
}

// Layer is a dense layer with linear activation: a = x.W^T + B.
type Layer struct {
	W *AF32 // Shape (OutputSize, InputSize)
	B *AF32 // Shape (OutputSize)

	InputSize  int
	OutputSize int
}

// MakeDenseUniform makes a linear layer whose weights and biases are drawn
// uniformly from [-limit, limit).  Weights are drawn row by row, then the
// biases.
func MakeDenseUniform(inputSize, outputSize int, limit float32, r *rand.Rand) *Layer {
	l := &Layer{
		InputSize:  inputSize,
		OutputSize: outputSize,
		W:          MakeAF32(outputSize, inputSize),
		B:          MakeAF32(outputSize),
	}

	for i := 0; i < outputSize; i++ {
		for j := 0; j < inputSize; j++ {
			l.W.Set2(i, j, uniform(r, -limit, limit))
		}
	}
	for i := 0; i < outputSize; i++ {
		l.B.Set1(i, uniform(r, -limit, limit))
	}

	return l
}

func uniform(r *rand.Rand, lo, hi float32) float32 {
	return lo + (hi-lo)*r.Float32()
}

// Apply the layer in the forward direction.
//
// x (input) is the layer input.  Shape (batchSize, lay.InputSize)
// a (output) is the layer's forward output.  Shape (batchSize, lay.OutputSize)
func (lay *Layer) Apply(x, a *AF32) {
	batchSize := x.Shape[0]
	inputSize := lay.InputSize
	outputSize := lay.OutputSize

	if x.Shape[1] != inputSize {
		panic("dimension mismatch")
	}
	if a.Shape[0] != batchSize {
		panic("dimension mismatch")
	}
	if a.Shape[1] != outputSize {
		panic("dimension mismatch")
	}
	if lay.W.Shape[0] != outputSize || lay.W.Shape[1] != inputSize {
		panic("dimension mismatch")
	}
	if !slices.Equal(lay.B.Shape, []int{outputSize}) {
		panic("lay.B.Shape != {outputSize}")
	}

	for k := 0; k < batchSize; k++ {
		for i := 0; i < outputSize; i++ {
			z := denseDot2(lay.W.V[i*inputSize:i*inputSize+inputSize], x.V[k*inputSize:k*inputSize+inputSize])
			z += lay.B.At1(i)
			a.Set2(k, i, z)
		}
	}
}

// xT (input) is the layer input, transposed.  Shape (lay.InputSize, batchSize)
// djdaT (input) is the gradient of the loss wrt a, transposed.  Shape (lay.OutputSize, batchSize)
// djdw (output) is the gradient of the loss wrt lay.W.  Shape (lay.OutputSize, lay.InputSize)
func (lay *Layer) BackpropDjdw(xT, djdaT, djdw *AF32) {
	batchSize := xT.Shape[1]

	// Equivalent to:
	//
	// for i := 0; i < outputSize; i++ {
	// 	for j := 0; j < inputSize; j++ {
	// 		var grad float32
	// 		for k := 0; k < batchSize; k++ {
	// 			grad += djdaT.At2(i, k) * xT.At2(j, k)
	// 		}
	// 		djdw.Set2(i, j, grad)
	// 	}
	// }
	for i := 0; i < lay.OutputSize; i++ {
		for j := 0; j < lay.InputSize; j++ {
			grad := denseDot2(
				djdaT.V[i*batchSize:i*batchSize+batchSize],
				xT.V[j*batchSize:j*batchSize+batchSize],
			)
			djdw.Set2(i, j, grad)
		}
	}
}

// djdaT (input) is the gradient of the loss wrt a, transposed.  Shape (lay.OutputSize, batchSize)
// djdb (output) is the gradient of the loss wrt lay.B.  Shape (lay.OutputSize)
func (lay *Layer) BackpropDjdb(djdaT, djdb *AF32) {
	batchSize := djdaT.Shape[1]

	for i := 0; i < lay.OutputSize; i++ {
		var grad float32
		for _, v := range djdaT.V[i*batchSize : i*batchSize+batchSize] {
			grad += v
		}
		djdb.Set1(i, grad)
	}
}

// djda (input) is the gradient of the loss wrt a.  Shape (batchSize, lay.OutputSize)
// djdx (output) is the gradient of the loss wrt x.  Shape (batchSize, lay.InputSize)
func (lay *Layer) BackpropDjdx(djda, djdx *AF32) {
	batchSize := djda.Shape[0]

	for k := 0; k < batchSize; k++ {
		for j := 0; j < lay.InputSize; j++ {
			var grad float32
			for i := 0; i < lay.OutputSize; i++ {
				grad += djda.At2(k, i) * lay.W.At2(i, j)
			}
			djdx.Set2(k, j, grad)
		}
	}
}

func denseDot2(x, y []float32) float32 {
	if len(x) != len(y) {
		panic("mismatched length")
	}
	var sum float32
	for i := range len(x) {
		sum += x[i] * y[i]
	}
	return sum
}
