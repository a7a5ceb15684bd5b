package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/ahmedtd/linreg/history"
	"github.com/google/subcommands"
)

type HistoryCommand struct {
	app *app

	historyFile string
	limit       int
	lossesOf    int64

	out io.Writer
}

var _ subcommands.Command = (*HistoryCommand)(nil)

func (*HistoryCommand) Name() string {
	return "history"
}

func (*HistoryCommand) Synopsis() string {
	return "List recorded fit runs"
}

func (*HistoryCommand) Usage() string {
	return `history --history=FILE [--limit=N] [--losses=RUN]
  Lists recent runs, or the loss sequence of one run.
`
}

func (c *HistoryCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.historyFile, "history", "history.db", "SQLite run ledger written by fit --history-file")
	f.IntVar(&c.limit, "limit", 20, "Maximum number of runs to list")
	f.Int64Var(&c.lossesOf, "losses", 0, "Print the per-step losses of this run instead")
}

func (c *HistoryCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		return c.app.fail(c.Name(), err)
	}
	return subcommands.ExitSuccess
}

func (c *HistoryCommand) executeErr(ctx context.Context) error {
	if _, err := os.Stat(c.historyFile); err != nil {
		return fmt.Errorf("while checking history file: %w", err)
	}

	store, err := history.Open(c.historyFile)
	if err != nil {
		return err
	}
	defer store.Close()

	out := c.out
	if out == nil {
		out = os.Stdout
	}

	if c.lossesOf != 0 {
		return printLosses(ctx, out, store, c.lossesOf)
	}
	return printRuns(ctx, out, store, c.limit)
}

func printRuns(ctx context.Context, out io.Writer, store *history.Store, limit int) error {
	runs, err := store.Runs(ctx, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tTRAINED\tDATA\tSAMPLES\tSEED\tLR\tITERS\tW1\tW2\tB\tLOSS\tR2")
	for _, run := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%g\t%d\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n",
			run.ID, run.TrainedAt.Local().Format("2006-01-02 15:04:05"), run.DataFile,
			run.Samples, run.Seed, run.LearningRate, run.Iterations,
			run.W1, run.W2, run.Bias, run.FinalLoss, run.RSquared)
	}
	return tw.Flush()
}

func printLosses(ctx context.Context, out io.Writer, store *history.Store, id int64) error {
	losses, err := store.Losses(ctx, id)
	if err != nil {
		return err
	}
	if len(losses) == 0 {
		return fmt.Errorf("no losses recorded for run %d", id)
	}
	for step, loss := range losses {
		fmt.Fprintf(out, "%d\t%f\n", step, loss)
	}
	return nil
}
