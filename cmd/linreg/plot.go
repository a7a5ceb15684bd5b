package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/ahmedtd/linreg/linreg"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

type PlotCommand struct {
	app *app

	flags configFlags

	outputFile string
}

var _ subcommands.Command = (*PlotCommand)(nil)

func (*PlotCommand) Name() string {
	return "plot"
}

func (*PlotCommand) Synopsis() string {
	return "Plot fitted predictions against the targets"
}

func (*PlotCommand) Usage() string {
	return `plot [--config=FILE] [--data-file=FILE] [--weight-file=FILE] [--output=FILE]
  The image format follows the output extension (png, svg, pdf).
`
}

func (c *PlotCommand) SetFlags(f *flag.FlagSet) {
	c.flags.register(f, "data-file", "weight-file")

	f.StringVar(&c.outputFile, "output", "predictions.png", "Path of the rendered plot")
}

func (c *PlotCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx, f); err != nil {
		return c.app.fail(c.Name(), err)
	}
	return subcommands.ExitSuccess
}

func (c *PlotCommand) executeErr(ctx context.Context, f *flag.FlagSet) error {
	cfg, err := c.flags.resolve(f)
	if err != nil {
		return fmt.Errorf("while resolving config: %w", err)
	}

	ds, err := linreg.LoadArchive(cfg.DataFile)
	if err != nil {
		return fmt.Errorf("while loading data set: %w", err)
	}

	net, err := readWeights(cfg.WeightFile)
	if err != nil {
		return fmt.Errorf("while loading weights: %w", err)
	}

	predictions, err := linreg.Predict(net, ds)
	if err != nil {
		return fmt.Errorf("while predicting: %w", err)
	}
	metrics, err := linreg.Evaluate(ds, predictions)
	if err != nil {
		return fmt.Errorf("while evaluating: %w", err)
	}

	if err := linreg.PlotPredictions(c.outputFile, ds.Y, predictions); err != nil {
		return fmt.Errorf("while plotting: %w", err)
	}

	c.app.logger.Info("plotted",
		zap.String("output", c.outputFile),
		zap.Float64("loss", metrics.Loss),
		zap.Float64("r-squared", metrics.RSquared),
	)
	return nil
}
