// Command linreg generates a synthetic two-feature regression data set and
// fits it by gradient descent.
//
// To generate: `go run ./cmd/linreg generate --data-file=data.npz`
//
// To fit: `go run ./cmd/linreg fit --data-file=data.npz --weight-file=linreg.safetensors`
//
// To plot: `go run ./cmd/linreg plot --data-file=data.npz --weight-file=linreg.safetensors --output=predictions.png`
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// app carries what the top-level flags configure into every subcommand.
type app struct {
	logFile string
	verbose bool

	logger *zap.Logger
}

func main() {
	a := &app{}
	flag.StringVar(&a.logFile, "log-file", "", "Also write JSON logs to this file (rotated)")
	flag.BoolVar(&a.verbose, "verbose", false, "Log at debug level")

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&GenerateCommand{app: a}, "")
	subcommands.Register(&FitCommand{app: a}, "")
	subcommands.Register(&PlotCommand{app: a}, "")
	subcommands.Register(&HistoryCommand{app: a}, "")

	subcommands.ImportantFlag("log-file")

	flag.Parse()

	a.logger = newLogger(a.logFile, a.verbose)

	ctx := context.Background()
	status := subcommands.Execute(ctx)
	a.logger.Sync()
	os.Exit(int(status))
}

func newLogger(logFile string, verbose bool) *zap.Logger {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), level),
	}
	if logFile != "" {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   logFile,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
			}),
			level,
		))
	}
	return zap.New(zapcore.NewTee(cores...))
}

// fail logs err and maps it to the subcommand exit status.
func (a *app) fail(cmd string, err error) subcommands.ExitStatus {
	a.logger.Error(fmt.Sprintf("%s failed", cmd), zap.Error(err))
	return subcommands.ExitFailure
}
