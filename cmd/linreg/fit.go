package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime/pprof"
	"time"

	"github.com/ahmedtd/linreg/config"
	"github.com/ahmedtd/linreg/history"
	"github.com/ahmedtd/linreg/linreg"
	"github.com/ahmedtd/linreg/toolbox"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

type FitCommand struct {
	app *app

	flags configFlags

	cpuProfileFile string
}

var _ subcommands.Command = (*FitCommand)(nil)

func (*FitCommand) Name() string {
	return "fit"
}

func (*FitCommand) Synopsis() string {
	return "Fit the data set by gradient descent"
}

func (*FitCommand) Usage() string {
	return `fit [--config=FILE] [--data-file=FILE] [--learning-rate=F] [--iterations=N] [--weight-file=FILE]
  Trains a linear model on the archive and saves its weights.
`
}

func (c *FitCommand) SetFlags(f *flag.FlagSet) {
	c.flags.register(f,
		"seed", "data-file", "learning-rate", "iterations", "init-limit",
		"log-every", "weight-file", "history-file",
	)

	f.StringVar(&c.cpuProfileFile, "cpu-profile", "", "Write a CPU profile")
}

func (c *FitCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx, f); err != nil {
		return c.app.fail(c.Name(), err)
	}
	return subcommands.ExitSuccess
}

func (c *FitCommand) executeErr(ctx context.Context, f *flag.FlagSet) error {
	cfg, err := c.flags.resolve(f)
	if err != nil {
		return fmt.Errorf("while resolving config: %w", err)
	}
	logger := c.app.logger

	if c.cpuProfileFile != "" {
		pf, err := os.Create(c.cpuProfileFile)
		if err != nil {
			return fmt.Errorf("while creating CPU profile file: %w", err)
		}
		defer pf.Close()
		if err := pprof.StartCPUProfile(pf); err != nil {
			return fmt.Errorf("while starting CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	ds, err := linreg.LoadArchive(cfg.DataFile)
	if err != nil {
		return fmt.Errorf("while loading data set: %w", err)
	}
	logger.Info("data loaded", zap.String("data-file", cfg.DataFile), zap.Int("samples", ds.Len()))

	r := rand.New(rand.NewSource(cfg.Seed))
	res, err := linreg.Fit(ds, cfg.FitOptions(logger), r)
	if err != nil {
		return fmt.Errorf("while fitting: %w", err)
	}

	predictions, err := linreg.Predict(res.Network, ds)
	if err != nil {
		return fmt.Errorf("while predicting: %w", err)
	}
	metrics, err := linreg.Evaluate(ds, predictions)
	if err != nil {
		return fmt.Errorf("while evaluating: %w", err)
	}

	logger.Info("fitted",
		zap.Float32("w1", res.Weights[0]),
		zap.Float32("w2", res.Weights[1]),
		zap.Float32("b", res.Bias),
		zap.Float32("final-loss", res.FinalLoss()),
		zap.Float64("r-squared", metrics.RSquared),
	)

	if w, b, err := linreg.Solve(ds); err != nil {
		logger.Warn("closed-form solution unavailable", zap.Error(err))
	} else {
		logger.Info("closed-form",
			zap.Float32("w1", w[0]),
			zap.Float32("w2", w[1]),
			zap.Float32("b", b),
		)
	}

	if err := writeWeights(cfg.WeightFile, res.Network); err != nil {
		return fmt.Errorf("while writing weights: %w", err)
	}
	logger.Info("weights written", zap.String("weight-file", cfg.WeightFile))

	if cfg.HistoryFile != "" {
		id, err := recordRun(ctx, cfg, ds, res, metrics)
		if err != nil {
			return fmt.Errorf("while recording run: %w", err)
		}
		logger.Info("run recorded", zap.String("history-file", cfg.HistoryFile), zap.Int64("run", id))
	}

	return nil
}

func writeWeights(path string, net *toolbox.Network) error {
	tensors := map[string]*toolbox.AF32{}
	net.DumpTensors(tensors)

	wf, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("while creating weight file: %w", err)
	}
	defer wf.Close()

	if err := toolbox.WriteSafeTensors(wf, tensors); err != nil {
		return fmt.Errorf("while writing tensors: %w", err)
	}

	if err := wf.Close(); err != nil {
		return fmt.Errorf("while closing weight file: %w", err)
	}
	return nil
}

func readWeights(path string) (*toolbox.Network, error) {
	wf, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening weight file: %w", err)
	}
	defer wf.Close()

	tensors, err := toolbox.ReadSafeTensors(wf)
	if err != nil {
		return nil, fmt.Errorf("while reading tensors: %w", err)
	}

	net := linreg.NewNetwork(0, rand.New(rand.NewSource(0)))
	if err := net.LoadTensors(tensors); err != nil {
		return nil, fmt.Errorf("while loading tensors: %w", err)
	}
	return net, nil
}

func recordRun(ctx context.Context, cfg *config.Config, ds *linreg.Dataset, res *linreg.Result, metrics linreg.Metrics) (int64, error) {
	store, err := history.Open(cfg.HistoryFile)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	return store.RecordRun(ctx, history.Run{
		DataFile:     cfg.DataFile,
		Samples:      ds.Len(),
		Seed:         cfg.Seed,
		LearningRate: cfg.LearningRate,
		Iterations:   cfg.Iterations,
		W1:           res.Weights[0],
		W2:           res.Weights[1],
		Bias:         res.Bias,
		FinalLoss:    res.FinalLoss(),
		RSquared:     metrics.RSquared,
		TrainedAt:    time.Now(),
		Losses:       res.Losses,
	})
}
