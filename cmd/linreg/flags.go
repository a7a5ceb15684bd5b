package main

import (
	"flag"
	"fmt"

	"github.com/ahmedtd/linreg/config"
)

// configFlags exposes config.Config knobs as flags.  Only flags set on the
// command line override the config file (or the defaults).
type configFlags struct {
	configFile string
	knobs      map[string]bool
}

func (cf *configFlags) register(f *flag.FlagSet, names ...string) {
	f.StringVar(&cf.configFile, "config", "", "Path to a YAML config; flags override it")

	d := config.Default()
	usage := map[string]func(name string){
		"seed":          func(n string) { f.Int64(n, d.Seed, "PRNG seed") },
		"data-file":     func(n string) { f.String(n, d.DataFile, "Path to the .npz sample archive") },
		"samples":       func(n string) { f.Int(n, d.Samples, "Number of samples to generate") },
		"x1-min":        func(n string) { f.Float64(n, float64(d.X1.Min), "Lower bound of x1") },
		"x1-max":        func(n string) { f.Float64(n, float64(d.X1.Max), "Upper bound of x1") },
		"x2-min":        func(n string) { f.Float64(n, float64(d.X2.Min), "Lower bound of x2") },
		"x2-max":        func(n string) { f.Float64(n, float64(d.X2.Max), "Upper bound of x2") },
		"noise-min":     func(n string) { f.Float64(n, float64(d.Noise.Min), "Lower bound of the target noise") },
		"noise-max":     func(n string) { f.Float64(n, float64(d.Noise.Max), "Upper bound of the target noise") },
		"truth-w1":      func(n string) { f.Float64(n, float64(d.Truth.W1), "Ground truth weight of x1") },
		"truth-w2":      func(n string) { f.Float64(n, float64(d.Truth.W2), "Ground truth weight of x2") },
		"truth-bias":    func(n string) { f.Float64(n, float64(d.Truth.Bias), "Ground truth bias") },
		"learning-rate": func(n string) { f.Float64(n, float64(d.LearningRate), "Gradient descent learning rate") },
		"iterations":    func(n string) { f.Int(n, d.Iterations, "Number of gradient descent steps") },
		"init-limit":    func(n string) { f.Float64(n, float64(d.InitLimit), "Initial parameters are drawn from [-limit, limit]") },
		"log-every":     func(n string) { f.Int(n, d.LogEvery, "Log the loss every N steps") },
		"weight-file":   func(n string) { f.String(n, d.WeightFile, "Path of the fitted weights (safetensors format)") },
		"history-file":  func(n string) { f.String(n, d.HistoryFile, "SQLite run ledger; empty disables it") },
	}

	cf.knobs = map[string]bool{}
	for _, n := range names {
		define, ok := usage[n]
		if !ok {
			panic(fmt.Sprintf("no config knob %q", n))
		}
		define(n)
		cf.knobs[n] = true
	}
}

// resolve loads the config file, if any, and applies the knob flags that
// were set explicitly.
func (cf *configFlags) resolve(f *flag.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	if cf.configFile != "" {
		var err error
		cfg, err = config.Load(cf.configFile)
		if err != nil {
			return nil, err
		}
	}

	var setErr error
	f.Visit(func(fl *flag.Flag) {
		if setErr != nil || !cf.knobs[fl.Name] {
			return
		}
		if err := cfg.Set(fl.Name, fl.Value.String()); err != nil {
			setErr = fmt.Errorf("flag --%s: %w", fl.Name, err)
		}
	})
	if setErr != nil {
		return nil, setErr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
