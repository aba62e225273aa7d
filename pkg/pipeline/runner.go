// Package pipeline orchestrates PRODUCE and ANALYZE runs.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/ritzau/topobench/pkg/analysis"
	"github.com/ritzau/topobench/pkg/command"
	"github.com/ritzau/topobench/pkg/config"
	"github.com/ritzau/topobench/pkg/graph"
	"github.com/ritzau/topobench/pkg/logging"
	"github.com/ritzau/topobench/pkg/lp"
	"github.com/ritzau/topobench/pkg/model"
	"github.com/ritzau/topobench/pkg/output"
	"github.com/ritzau/topobench/pkg/patheval"
	"github.com/ritzau/topobench/pkg/report"
	"github.com/ritzau/topobench/pkg/staging"
	"github.com/ritzau/topobench/pkg/topology"
	"github.com/ritzau/topobench/pkg/traffic"
)

// GraphDumpFile is the debug dump of the generated graph in the graph staging dir
const GraphDumpFile = "graph.txt"

// Lift generator names
const (
	LiftNative = "native"
	LiftScript = "script"
)

// Runner orchestrates runs. Console receives the run summaries, Progress the
// progress bars of long evaluator preparations.
type Runner struct {
	exec     command.Executor
	console  io.Writer
	progress io.Writer
	now      func() time.Time
	mu       sync.Mutex // Prevent concurrent runs
}

// NewRunner creates a runner that starts external programs through exec
func NewRunner(exec command.Executor, console, progress io.Writer) *Runner {
	if console == nil {
		console = io.Discard
	}
	return &Runner{exec: exec, console: console, progress: progress, now: time.Now}
}

// Options configures one run
type Options struct {
	Config *config.Config
	RunID  string
	Reason string // e.g., "initial run", "graph file changed"
}

// ProduceResult is what a PRODUCE run leaves behind
type ProduceResult struct {
	Graph       *graph.Graph
	Pairs       []model.TrafficPair
	Seed        uint64
	FailedLinks int
	ProgramPath string
}

// Run dispatches on the configured mode
func (r *Runner) Run(ctx context.Context, opts Options) error {
	switch opts.Config.Run.Mode {
	case config.ModeProduce:
		_, err := r.Produce(ctx, opts)
		return err
	case config.ModeAnalyze:
		_, err := r.Analyze(ctx, opts)
		return err
	default:
		return fmt.Errorf("unknown run mode %q: %w", opts.Config.Run.Mode, model.ErrConfiguration)
	}
}

// selection holds the parsed codes of a configuration
type selection struct {
	graph   topology.Type
	eval    patheval.Kind
	traffic traffic.Mode
	program lp.Type
}

func selectAll(cfg *config.Config) (selection, error) {
	var (
		s   selection
		err error
	)
	if s.graph, err = topology.ParseType(cfg.Graph.Type); err != nil {
		return s, err
	}
	if s.eval, err = patheval.ParseKind(cfg.Eval.Type); err != nil {
		return s, err
	}
	if s.traffic, err = traffic.ParseMode(cfg.Traffic.Mode); err != nil {
		return s, err
	}
	if s.program, err = lp.ParseType(cfg.LP.Type); err != nil {
		return s, err
	}
	return s, nil
}

// Produce generates the graph, evaluator and traffic of a configuration and
// writes the reports and the linear program into the staging directories
func (r *Runner) Produce(ctx context.Context, opts Options) (*ProduceResult, error) {
	// Lock to prevent concurrent runs sharing the staging directories
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := opts.Config
	ctx = logging.WithRunID(ctx, opts.RunID)
	logging.InfoContext(ctx, "starting produce run", "reason", opts.Reason,
		"graph", cfg.Graph.Type, "traffic", cfg.Traffic.Mode, "evaluator", cfg.Eval.Type, "program", cfg.LP.Type)

	sel, err := selectAll(cfg)
	if err != nil {
		return nil, err
	}

	// Phase 1: Staging
	logging.InfoContext(ctx, "[1/7] cleaning staging directories", "root", cfg.Run.WorkDir)
	dirs := staging.New(cfg.Run.WorkDir)
	if err := dirs.Prepare(); err != nil {
		return nil, err
	}

	seed := cfg.Run.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	res := &ProduceResult{Seed: seed}

	// Phase 2: Graph
	logging.InfoContext(ctx, "[2/7] generating graph", "type", sel.graph, "seed", seed)
	lift, err := r.liftGenerator(cfg, dirs)
	if err != nil {
		return nil, err
	}
	gen := topology.Generator{Rng: rng, Lift: lift, Seed: int64(seed)}
	g, err := gen.Generate(ctx, topology.Params{
		Type:         sel.graph,
		Switches:     cfg.Graph.Switches,
		SwitchPorts:  cfg.Graph.SwitchPorts,
		NetPorts:     cfg.Graph.NetPorts,
		KFatTree:     cfg.Graph.KFatTree,
		Hosts:        cfg.Graph.Hosts,
		PartFraction: cfg.Graph.PartFraction,
		ExtA2A:       cfg.Graph.ExtA2A,
		ExtSupp:      cfg.Graph.ExtSupp,
		PartSwitches: cfg.Graph.PartSwitches,
		File:         cfg.Graph.File,
	})
	if err != nil {
		return nil, fmt.Errorf("generate graph: %w", err)
	}
	res.Graph = g

	if cfg.Graph.FailFraction > 0 {
		res.FailedLinks, err = g.FailRandomLinks(rng, cfg.Graph.FailFraction)
		if err != nil {
			return nil, err
		}
		comps := g.ConnectedComponents()
		logging.InfoContext(ctx, "[2/7] failed links", "count", res.FailedLinks, "components", len(comps))
		if len(comps) > 1 {
			logging.WarnContext(ctx, "link failures disconnected the graph", "sizes", comps)
		}
	}

	// Phase 3: Shortest paths
	logging.InfoContext(ctx, "[3/7] computing shortest paths", "nodes", g.NumNodes(), "links", g.NumBidirectionalEdges())
	g.ComputeShortestPaths()
	dump := filepath.Join(dirs.Graph(), GraphDumpFile)
	if err := staging.WriteFile(dump, func(w io.Writer) error {
		_, err := io.WriteString(w, g.String())
		return err
	}); err != nil {
		logging.WarnContext(ctx, "skipping graph dump", "file", dump, "error", err)
	}

	// Phase 4: Path evaluator
	logging.InfoContext(ctx, "[4/7] building path evaluator", "kind", sel.eval)
	workers := cfg.Run.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	eval, err := patheval.New(ctx, g, patheval.Options{
		Kind:  sel.eval,
		Slack: cfg.Eval.Slack,
		KShortest: patheval.KShortestOptions{
			K:         cfg.Eval.KSP,
			Prepare:   cfg.Eval.Prepare,
			CachePath: dirs.KShortestCache(),
			Workers:   workers,
		},
		ValiantK: cfg.Eval.KVLB,
		Rng:      rng,
		Progress: r.progress,
	})
	if err != nil {
		return nil, fmt.Errorf("build path evaluator: %w", err)
	}

	// Phase 5: Traffic
	logging.InfoContext(ctx, "[5/7] generating traffic", "mode", sel.traffic, "fraction", cfg.Traffic.Fraction)
	pairs, err := traffic.Generate(ctx, g, traffic.Options{
		Mode:     sel.traffic,
		Fraction: cfg.Traffic.Fraction,
		Stride:   cfg.Traffic.Stride,
		PerPod:   cfg.Traffic.PerPod,
		Rng:      rng,
		Matcher: &traffic.ScriptMatcher{
			Exec:      r.exec,
			Python:    cfg.Python.Command,
			ScriptDir: cfg.Python.ScriptDir,
			Version:   cfg.Python.Version,
		},
		WorkDir: dirs.Traffic(),
	})
	if err != nil {
		return nil, fmt.Errorf("generate traffic: %w", err)
	}
	res.Pairs = pairs
	logging.InfoContext(ctx, "[5/7] generated traffic", "pairs", len(pairs))

	// Phase 6: Reports
	logging.InfoContext(ctx, "[6/7] printing graph information", "dir", dirs.Final())
	report.WriteAll(dirs.Final(), g, pairs, report.RunInfo{
		RunID:    opts.RunID,
		Seed:     seed,
		Settings: settings(cfg),
		Host:     report.CollectHost(),
	})

	// Phase 7: Linear program
	logging.InfoContext(ctx, "[7/7] printing linear program", "type", sel.program)
	demand, err := lp.BuildDemand(g, pairs)
	if err != nil {
		return nil, err
	}
	res.ProgramPath, err = writeProgram(dirs, g, eval, demand, sel.program, cfg.LP.UpperBound)
	if err != nil {
		return nil, err
	}

	output.PrintRunSummary(r.console, output.RunSummary{
		RunID:        opts.RunID,
		Seed:         seed,
		Graph:        g.Name(),
		Switches:     g.NumNodes(),
		Links:        g.NumBidirectionalEdges(),
		Servers:      g.TotalWeight(),
		Components:   g.ConnectedComponents(),
		FailedLinks:  res.FailedLinks,
		Evaluator:    string(sel.eval),
		TrafficMode:  string(sel.traffic),
		TrafficPairs: len(pairs),
		Flows:        len(demand.Flows()),
		Program:      string(sel.program),
		ProgramPath:  res.ProgramPath,
		ReportDir:    dirs.Final(),
	})

	logging.InfoContext(ctx, "produce run complete", "program", res.ProgramPath)
	return res, nil
}

func (r *Runner) liftGenerator(cfg *config.Config, dirs staging.Dirs) (topology.LiftGenerator, error) {
	switch cfg.Lift.Generator {
	case LiftNative:
		return topology.NativeLift{}, nil
	case LiftScript:
		return &topology.ScriptLift{
			Exec:      r.exec,
			Python:    cfg.Python.Command,
			ScriptDir: cfg.Python.ScriptDir,
			Version:   cfg.Python.Version,
			WorkDir:   dirs.Graph(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown lift generator %q (valid: %s, %s): %w",
			cfg.Lift.Generator, LiftNative, LiftScript, model.ErrConfiguration)
	}
}

// writeProgram writes the linear program and, for the condensed program,
// its flow id map and link capacities. It returns the program path.
func writeProgram(dirs staging.Dirs, g *graph.Graph, eval lp.Eligibility, d *lp.Demand, t lp.Type, kUpperBound int) (string, error) {
	path := filepath.Join(dirs.LP(), lp.ProgramFile)

	if t == lp.TypeSimple {
		b := lp.NewSimpleBuilder(g)
		return path, staging.WriteFile(path, func(w io.Writer) error { return b.Write(w, d) })
	}

	b, err := lp.NewCondensedBuilder(g, eval, kUpperBound)
	if err != nil {
		return "", err
	}
	files := []struct {
		path  string
		write func(io.Writer) error
	}{
		{path, func(w io.Writer) error { return b.Write(w, d) }},
		{filepath.Join(dirs.LP(), lp.FlowIDMapFile), func(w io.Writer) error { return lp.WriteFlowIDMap(w, d) }},
		{filepath.Join(dirs.LP(), lp.LinkCapacityFile), func(w io.Writer) error { return lp.WriteLinkCapacities(w, g) }},
	}
	for _, f := range files {
		if err := staging.WriteFile(f.path, f.write); err != nil {
			return "", err
		}
	}
	return path, nil
}

// settings lists the effective configuration for run.info. The seed is
// left out; run.info ends with the seed actually used.
func settings(cfg *config.Config) []report.Setting {
	var out []report.Setting
	for _, kv := range cfg.Effective() {
		if kv[0] == "run.seed" {
			continue
		}
		out = append(out, report.Setting{Key: kv[0], Value: kv[1]})
	}
	return out
}

// Analyze turns the staged solver solution into a timestamped analysis directory
func (r *Runner) Analyze(ctx context.Context, opts Options) (*analysis.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := opts.Config
	ctx = logging.WithRunID(ctx, opts.RunID)
	logging.InfoContext(ctx, "starting analyze run", "reason", opts.Reason, "program", cfg.LP.Type)

	program, err := lp.ParseType(cfg.LP.Type)
	if err != nil {
		return nil, err
	}
	mode, err := traffic.ParseMode(cfg.Traffic.Mode)
	if err != nil {
		return nil, err
	}

	res, err := analysis.Analyze(ctx, analysis.Options{
		Staging:     staging.New(cfg.Run.WorkDir),
		Root:        cfg.Run.AnalysisDir,
		Program:     program,
		TrafficMode: mode,
		Now:         r.now(),
	})
	if err != nil {
		return nil, err
	}

	output.PrintAnalysisSummary(r.console, output.AnalysisSummary{
		Dir:          res.Dir,
		Objective:    res.Solution.Objective,
		HasObjective: res.Solution.HasObjective,
		Files:        res.Files,
	})
	logging.InfoContext(ctx, "analyze run complete", "dir", res.Dir)
	return res, nil
}
