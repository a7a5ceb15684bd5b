package linreg

import (
	"fmt"
	"image/color"
	"slices"

	"github.com/ahmedtd/linreg/toolbox"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotPredictions draws predictions against targets, both of shape (n, 1),
// with the y = x line a perfect fit would lie on.  The image format follows
// the extension of path (.png, .svg, .pdf, ...).
func PlotPredictions(path string, targets, predictions *toolbox.AF32) error {
	if !slices.Equal(targets.Shape, predictions.Shape) || len(targets.Shape) != 2 || targets.Shape[1] != 1 {
		return fmt.Errorf("%w: targets have shape %v but predictions %v, want matching (n, 1)", ErrShape, targets.Shape, predictions.Shape)
	}

	pts := make(plotter.XYs, len(targets.V))
	for k := range pts {
		pts[k].X = float64(targets.V[k])
		pts[k].Y = float64(predictions.V[k])
	}

	p := plot.New()
	p.Title.Text = "Predictions vs targets"
	p.X.Label.Text = "target"
	p.Y.Label.Text = "prediction"
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("while building scatter: %w", err)
	}
	scatter.GlyphStyle.Color = color.RGBA{B: 255, A: 255}
	scatter.GlyphStyle.Radius = vg.Points(1.5)

	identity := plotter.NewFunction(func(x float64) float64 { return x })
	identity.Color = color.RGBA{R: 255, A: 255}

	p.Add(scatter, identity)
	p.Legend.Add("samples", scatter)
	p.Legend.Add("y = x", identity)
	p.Legend.Top = true
	p.Legend.Left = true

	if err := p.Save(12*vg.Centimeter, 12*vg.Centimeter, path); err != nil {
		return fmt.Errorf("while saving plot: %w", err)
	}
	return nil
}
