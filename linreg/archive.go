package linreg

import (
	"fmt"
	"slices"

	"github.com/ahmedtd/linreg/toolbox"
	"github.com/sbinet/npyio/npz"
	"gonum.org/v1/gonum/mat"
)

// Array names inside the .npz archive.
const (
	InputsKey  = "inputs.npy"
	TargetsKey = "targets.npy"
)

// SaveArchive writes ds to path as a NumPy .npz archive holding a float64
// (n, 2) inputs array and a float64 (n, 1) targets array.
func SaveArchive(path string, ds *Dataset) error {
	if err := ds.check(); err != nil {
		return err
	}

	w, err := npz.Create(path)
	if err != nil {
		return fmt.Errorf("while creating archive: %w", err)
	}

	if err := w.Write(InputsKey, toDense(ds.X)); err != nil {
		w.Close()
		return fmt.Errorf("while writing %s: %w", InputsKey, err)
	}
	if err := w.Write(TargetsKey, toDense(ds.Y)); err != nil {
		w.Close()
		return fmt.Errorf("while writing %s: %w", TargetsKey, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("while closing archive: %w", err)
	}
	return nil
}

// LoadArchive reads a sample set written by SaveArchive (or numpy.savez with
// the same array names).
func LoadArchive(path string) (*Dataset, error) {
	r, err := npz.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening archive: %w", err)
	}
	defer r.Close()

	x, err := loadMatrix(r, InputsKey, NumFeatures)
	if err != nil {
		return nil, err
	}
	y, err := loadMatrix(r, TargetsKey, 1)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{X: x, Y: y}
	if err := ds.check(); err != nil {
		return nil, err
	}
	return ds, nil
}

func loadMatrix(r *npz.Reader, name string, cols int) (*toolbox.AF32, error) {
	if !slices.Contains(r.Keys(), name) {
		return nil, fmt.Errorf("%w: archive has no %s", ErrShape, name)
	}

	// numpy writes C-order arrays, which is also the layout mat.Dense reads.
	shape := r.Header(name).Descr.Shape
	if len(shape) != 2 || shape[0] < 1 || shape[1] != cols {
		return nil, fmt.Errorf("%w: %s has shape %v, want (n, %d)", ErrShape, name, shape, cols)
	}

	var m mat.Dense
	if err := r.Read(name, &m); err != nil {
		return nil, fmt.Errorf("while reading %s: %w", name, err)
	}

	rows, _ := m.Dims()
	out := toolbox.MakeAF32(rows, cols)
	for k := 0; k < rows; k++ {
		for j := 0; j < cols; j++ {
			out.Set2(k, j, float32(m.At(k, j)))
		}
	}
	return out, nil
}

func toDense(a *toolbox.AF32) *mat.Dense {
	data := make([]float64, len(a.V))
	for i, v := range a.V {
		data[i] = float64(v)
	}
	return mat.NewDense(a.Shape[0], a.Shape[1], data)
}
