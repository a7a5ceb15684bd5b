package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"

	"github.com/ahmedtd/linreg/linreg"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

type GenerateCommand struct {
	app *app

	flags configFlags
}

var _ subcommands.Command = (*GenerateCommand)(nil)

func (*GenerateCommand) Name() string {
	return "generate"
}

func (*GenerateCommand) Synopsis() string {
	return "Generate a synthetic data set and save it as .npz"
}

func (*GenerateCommand) Usage() string {
	return `generate [--config=FILE] [--samples=N] [--seed=N] [--data-file=FILE]
  Draws samples of y = w1*x1 + w2*x2 + bias + noise.
`
}

func (c *GenerateCommand) SetFlags(f *flag.FlagSet) {
	c.flags.register(f,
		"seed", "data-file", "samples",
		"x1-min", "x1-max", "x2-min", "x2-max", "noise-min", "noise-max",
		"truth-w1", "truth-w2", "truth-bias",
	)
}

func (c *GenerateCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx, f); err != nil {
		return c.app.fail(c.Name(), err)
	}
	return subcommands.ExitSuccess
}

func (c *GenerateCommand) executeErr(ctx context.Context, f *flag.FlagSet) error {
	cfg, err := c.flags.resolve(f)
	if err != nil {
		return fmt.Errorf("while resolving config: %w", err)
	}

	r := rand.New(rand.NewSource(cfg.Seed))
	ds, err := linreg.Generate(cfg.GenerateOptions(), r)
	if err != nil {
		return fmt.Errorf("while generating data set: %w", err)
	}

	if err := linreg.SaveArchive(cfg.DataFile, ds); err != nil {
		return fmt.Errorf("while saving data set: %w", err)
	}

	c.app.logger.Info("generated",
		zap.Int("samples", ds.Len()),
		zap.Int64("seed", cfg.Seed),
		zap.String("data-file", cfg.DataFile),
	)
	return nil
}
