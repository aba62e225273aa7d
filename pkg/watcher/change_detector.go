package watcher

import "slices"

// ChangeAnalysis describes what changed and what a re-run has to redo
type ChangeAnalysis struct {
	ReloadConfig bool // configuration has to be loaded again before the run
	Rerun        bool
	ChangedFiles []string
}

// AnalyzeChanges determines what a batch of events requires
func AnalyzeChanges(events ...ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{}

	for _, event := range events {
		switch event.Type {
		case ChangeTypeConfig:
			// Any key may have changed, including the graph file itself
			analysis.ReloadConfig = true
			analysis.Rerun = true

		case ChangeTypeGraphFile:
			// Same configuration, new edges
			analysis.Rerun = true
		}
		for _, p := range event.Paths {
			if !slices.Contains(analysis.ChangedFiles, p) {
				analysis.ChangedFiles = append(analysis.ChangedFiles, p)
			}
		}
	}

	return analysis
}
