// Package config holds the knobs of a generate/fit run.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ahmedtd/linreg/linreg"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Config captures the runtime knobs for generating and fitting a data set.
type Config struct {
	Seed     int64  `yaml:"seed"`
	DataFile string `yaml:"data_file"`

	Samples int             `yaml:"samples"`
	X1      linreg.Interval `yaml:"x1"`
	X2      linreg.Interval `yaml:"x2"`
	Noise   linreg.Interval `yaml:"noise"`
	Truth   linreg.Truth    `yaml:"truth"`

	LearningRate float32 `yaml:"learning_rate"`
	Iterations   int     `yaml:"iterations"`
	InitLimit    float32 `yaml:"init_limit"`
	LogEvery     int     `yaml:"log_every"`

	WeightFile  string `yaml:"weight_file"`
	HistoryFile string `yaml:"history_file"`
}

// Default is the reference run: 1000 samples, 100 steps at learning rate
// 0.05.
func Default() *Config {
	gen := linreg.DefaultGenerateOptions()
	fit := linreg.DefaultFitOptions()
	return &Config{
		Seed:         12345,
		DataFile:     "data.npz",
		Samples:      gen.Samples,
		X1:           gen.X1,
		X2:           gen.X2,
		Noise:        gen.Noise,
		Truth:        gen.Truth,
		LearningRate: fit.LearningRate,
		Iterations:   fit.Iterations,
		InitLimit:    fit.InitLimit,
		LogEvery:     fit.LogEvery,
		WeightFile:   "linreg.safetensors",
	}
}

// Load reads a YAML config.  Keys missing from the file keep their Default
// values; unknown keys are an error.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.SetStrict(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// Set overrides one knob by name.  Names are the YAML keys, with nested
// ranges flattened ("x1_min", "noise_max", "truth_bias"); dashes are
// accepted in place of underscores so flag names can be passed through.
func (c *Config) Set(key, value string) error {
	key = strings.ReplaceAll(key, "-", "_")

	var err error
	switch key {
	case "seed":
		c.Seed, err = strconv.ParseInt(value, 10, 64)
	case "data_file":
		c.DataFile = value
	case "samples":
		c.Samples, err = strconv.Atoi(value)
	case "x1_min":
		err = setFloat32(&c.X1.Min, value)
	case "x1_max":
		err = setFloat32(&c.X1.Max, value)
	case "x2_min":
		err = setFloat32(&c.X2.Min, value)
	case "x2_max":
		err = setFloat32(&c.X2.Max, value)
	case "noise_min":
		err = setFloat32(&c.Noise.Min, value)
	case "noise_max":
		err = setFloat32(&c.Noise.Max, value)
	case "truth_w1":
		err = setFloat32(&c.Truth.W1, value)
	case "truth_w2":
		err = setFloat32(&c.Truth.W2, value)
	case "truth_bias":
		err = setFloat32(&c.Truth.Bias, value)
	case "learning_rate":
		err = setFloat32(&c.LearningRate, value)
	case "iterations":
		c.Iterations, err = strconv.Atoi(value)
	case "init_limit":
		err = setFloat32(&c.InitLimit, value)
	case "log_every":
		c.LogEvery, err = strconv.Atoi(value)
	case "weight_file":
		c.WeightFile = value
	case "history_file":
		c.HistoryFile = value
	default:
		return fmt.Errorf("unknown key %s", key)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func setFloat32(dst *float32, value string) error {
	v, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return err
	}
	*dst = float32(v)
	return nil
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := c.GenerateOptions().Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.FitOptions(nil).Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.DataFile == "" {
		return errors.New("invalid config: data_file must be set")
	}
	return nil
}

func (c *Config) GenerateOptions() linreg.GenerateOptions {
	return linreg.GenerateOptions{
		Samples: c.Samples,
		X1:      c.X1,
		X2:      c.X2,
		Noise:   c.Noise,
		Truth:   c.Truth,
	}
}

func (c *Config) FitOptions(logger *zap.Logger) linreg.FitOptions {
	return linreg.FitOptions{
		LearningRate: c.LearningRate,
		Iterations:   c.Iterations,
		InitLimit:    c.InitLimit,
		LogEvery:     c.LogEvery,
		Logger:       logger,
	}
}
