package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ritzau/topobench/pkg/config"
	"github.com/ritzau/topobench/pkg/logging"
	"github.com/ritzau/topobench/pkg/watcher"
)

// Debounce timings of watch mode
const (
	watchQuietPeriod = 500 * time.Millisecond
	watchMaxWait     = 5 * time.Second
)

// WatchOptions configures watch mode
type WatchOptions struct {
	Options
	ConfigFile string

	// Reload loads the configuration again after the config file changed
	Reload func() (*config.Config, error)

	// NewRunID names each re-run
	NewRunID func() string
}

// Watch runs PRODUCE once and again whenever the configuration file or the
// graph edge list changes, until ctx is done. Failed re-runs are logged and
// watching continues; only the initial run and the watcher setup return errors.
func (r *Runner) Watch(ctx context.Context, opts WatchOptions) error {
	log := logging.New("watch")

	if _, err := r.Produce(ctx, opts.Options); err != nil {
		return err
	}

	files := map[string]watcher.ChangeType{opts.ConfigFile: watcher.ChangeTypeConfig}
	if opts.Config.Graph.File != "" {
		files[opts.Config.Graph.File] = watcher.ChangeTypeGraphFile
	}
	fw, err := watcher.NewFileWatcher(files)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		fw.Stop()
		return err
	}
	defer fw.Stop()

	debouncer := watcher.NewDebouncer(fw.Events(), watchQuietPeriod, watchMaxWait)
	debouncer.Start(ctx)

	cfg := opts.Config
	for {
		batch, ok := nextBatch(ctx, debouncer.Output())
		if !ok {
			log.Info("stopped watching")
			return nil
		}

		changes := watcher.AnalyzeChanges(batch...)
		if !changes.Rerun {
			continue
		}
		if changes.ReloadConfig && opts.Reload != nil {
			next, err := opts.Reload()
			if err != nil {
				log.Error("configuration reload failed, keeping previous configuration", "error", err)
			} else {
				cfg = next
			}
		}

		run := Options{Config: cfg, RunID: opts.RunID, Reason: reason(changes)}
		if opts.NewRunID != nil {
			run.RunID = opts.NewRunID()
		}
		if _, err := r.Produce(ctx, run); err != nil {
			log.Error("re-run failed", "reason", run.Reason, "error", err)
		}
	}
}

// nextBatch waits for one debounced event and drains any others already queued
func nextBatch(ctx context.Context, events <-chan watcher.ChangeEvent) ([]watcher.ChangeEvent, bool) {
	var batch []watcher.ChangeEvent
	select {
	case <-ctx.Done():
		return nil, false
	case ev, ok := <-events:
		if !ok {
			return nil, false
		}
		batch = append(batch, ev)
	}
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return batch, true
			}
			batch = append(batch, ev)
		default:
			return batch, true
		}
	}
}

func reason(c *watcher.ChangeAnalysis) string {
	what := "graph file changed"
	if c.ReloadConfig {
		what = "configuration changed"
	}
	return fmt.Sprintf("%s: %s", what, strings.Join(c.ChangedFiles, ", "))
}
