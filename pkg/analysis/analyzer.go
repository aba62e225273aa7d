package analysis

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ritzau/topobench/pkg/logging"
	"github.com/ritzau/topobench/pkg/lp"
	"github.com/ritzau/topobench/pkg/model"
	"github.com/ritzau/topobench/pkg/report"
	"github.com/ritzau/topobench/pkg/staging"
	"github.com/ritzau/topobench/pkg/traffic"
)

// DirLayout names analysis directories after their creation time
const DirLayout = "2006-01-02--15h04m05s"

// Options configures one analysis
type Options struct {
	Staging     staging.Dirs
	Root        string // parent of the timestamped analysis directories
	Program     lp.Type
	TrafficMode traffic.Mode
	Now         time.Time
}

type resultFile struct {
	name  string
	write func(io.Writer, *Solution) error
}

func resultFiles(t lp.Type) []resultFile {
	if t == lp.TypeSimple {
		return []resultFile{
			{SimpleLinkAllFile, WriteSimpleLinkAll},
			{SimpleLinkSummedFile, WriteSimpleLinkSummed},
			{SimpleFlowAllFile, WriteSimpleFlowAll},
			{SimpleFlowOriginFile, WriteSimpleFlowOriginNode},
			{SimpleFlowSummaryFile, WriteSimpleFlowSummary},
		}
	}
	return []resultFile{
		{MCFFlowAllFile, WriteMCFFlowAll},
		{MCFFlowOriginFile, WriteMCFFlowOriginNode},
		{MCFLinkSummedFile, WriteMCFLinkSummed},
	}
}

// Result is the outcome of Analyze
type Result struct {
	Dir      string
	Solution *Solution
	Files    int // files placed in Dir
}

// Analyze reads the staged solution, writes the result files into a new
// timestamped directory under Root and archives the run artifacts next to
// them.
func Analyze(ctx context.Context, opts Options) (*Result, error) {
	log := logging.New("analysis")

	sol, err := ReadSolution(opts.Staging.Solution())
	if err != nil {
		return nil, err
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	dir := filepath.Join(opts.Root, now.Format(DirLayout))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("analysis: create %s: %v: %w", dir, err, model.ErrIO)
	}
	log.InfoContext(ctx, "writing analysis", "dir", dir, "program", opts.Program,
		"commodityFlows", len(sol.CommodityFlows), "pairFlows", len(sol.PairFlows), "linkFlows", len(sol.LinkFlows))

	files := resultFiles(opts.Program)
	g, _ := errgroup.WithContext(ctx)
	for _, rf := range files {
		g.Go(func() error {
			path := filepath.Join(dir, rf.name)
			return staging.WriteFile(path, func(w io.Writer) error { return rf.write(w, sol) })
		})
	}
	for _, path := range []string{opts.Staging.Objective(), filepath.Join(dir, ObjectiveFile)} {
		g.Go(func() error {
			return staging.WriteFile(path, func(w io.Writer) error { return WriteObjective(w, sol) })
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	archived := archive(dir, opts)
	return &Result{Dir: dir, Solution: sol, Files: len(files) + 1 + archived}, nil
}

// archive copies the run artifacts into dir and returns how many it copied.
// Missing files are skipped.
func archive(dir string, opts Options) int {
	log := logging.New("analysis")
	final := opts.Staging.Final()

	sources := []string{
		filepath.Join(final, report.RunInfoFile),
		opts.Staging.Solution(),
		filepath.Join(final, report.TopologyFile),
		filepath.Join(final, report.TrafficPairsFile),
		filepath.Join(final, report.PathLengthsFile),
	}
	if opts.TrafficMode.IsWeightMatching() {
		for _, name := range traffic.MatchingFiles {
			sources = append(sources, filepath.Join(opts.Staging.Traffic(), name))
		}
	}

	copied := 0
	for _, src := range sources {
		if _, err := os.Stat(src); err != nil {
			log.Warn("not archiving missing file", "file", src)
			continue
		}
		if err := staging.CopyFile(src, filepath.Join(dir, filepath.Base(src))); err != nil {
			log.Warn("archive copy failed", "file", src, "error", err)
			continue
		}
		copied++
	}
	return copied
}
