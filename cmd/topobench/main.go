package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc"
	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/ritzau/topobench/pkg/command"
	"github.com/ritzau/topobench/pkg/config"
	"github.com/ritzau/topobench/pkg/logging"
	"github.com/ritzau/topobench/pkg/pipeline"
)

var usage = heredoc.Doc(`
	topobench builds a datacenter topology, its traffic and its path restrictions,
	and writes the multi-commodity flow linear program measuring its throughput.

	Usage:
	  topobench [flags]                  write temp/lp/program.lp (PRODUCE)
	  topobench --mode ANALYZE [flags]   analyze the solver output temp/vector.sol

	Examples:
	  topobench --graphtype JF --switches 64 --switchports 12 --netports 8 \
	      --pathevaluator SLACK --slack 1 --trafficmode RPP --seed 42
	  topobench --graphtype FT --kft 8 --pathevaluator KSHRT --ksp 8 --peprep --trafficmode ATA
	  topobench --mode ANALYZE --trafficmode RPP

	Every flag can also be set in topobench.toml or as TOPOBENCH_<SECTION>_<KEY>,
	e.g. TOPOBENCH_GRAPH_SWITCHES=64.

	Flags:
`)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, runs the selected mode and returns the exit code
func run(args []string, stdout, stderr io.Writer) int {
	f := pflag.NewFlagSet("topobench", pflag.ContinueOnError)
	f.SetOutput(stderr)
	f.Usage = func() {
		fmt.Fprint(stderr, usage)
		f.PrintDefaults()
	}
	config.RegisterFlags(f)
	if err := f.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(f)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	level := logging.ParseLevel(cfg.Log.Verbosity)
	if v, err := f.GetCount("verbose"); err == nil {
		level -= slog.Level(4 * v)
	}
	logging.SetLevel(level)
	if cfg.Log.File != "" {
		sink := logging.AddFileSink(cfg.Log.File)
		defer func() { _ = sink.Close() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := pipeline.NewRunner(command.NewExecutor(cfg.Command.Silent), stdout, stderr)
	opts := pipeline.Options{Config: cfg, RunID: uuid.NewString(), Reason: "command line"}

	if cfg.Run.Watch && cfg.Run.Mode == config.ModeProduce {
		configFile, _ := f.GetString("config")
		err = runner.Watch(ctx, pipeline.WatchOptions{
			Options:    opts,
			ConfigFile: configFile,
			Reload:     func() (*config.Config, error) { return config.Load(f) },
			NewRunID:   uuid.NewString,
		})
	} else {
		err = runner.Run(ctx, opts)
	}
	if err != nil {
		logging.Error("run failed", "mode", cfg.Run.Mode, "error", err)
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
