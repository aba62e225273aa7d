// Package staging manages the working directory layout of a run.
package staging

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ritzau/topobench/pkg/model"
)

// Dirs is the staging layout rooted at a work directory:
//
//	<root>/final    reports of the current run
//	<root>/graph    graph dumps
//	<root>/lp       linear program and its side files
//	<root>/traffic  traffic generation scratch files
//	<root>/cache    k-shortest-path caches, kept across runs
type Dirs struct {
	Root string
}

// New returns the layout rooted at root
func New(root string) Dirs {
	return Dirs{Root: root}
}

// Final holds the reports of the current run
func (d Dirs) Final() string { return filepath.Join(d.Root, "final") }

// Graph holds graph dumps
func (d Dirs) Graph() string { return filepath.Join(d.Root, "graph") }

// LP holds the linear program and its flow id and capacity files
func (d Dirs) LP() string { return filepath.Join(d.Root, "lp") }

// Traffic holds scratch files exchanged with the matching script
func (d Dirs) Traffic() string { return filepath.Join(d.Root, "traffic") }

// Cache holds the k-shortest-path cache, which Prepare leaves in place
func (d Dirs) Cache() string { return filepath.Join(d.Root, "cache") }

// Solution is where the external solver leaves its variable values
func (d Dirs) Solution() string { return filepath.Join(d.Root, "vector.sol") }

// Objective is the objective value extracted from the solution
func (d Dirs) Objective() string { return filepath.Join(d.Root, "objective.txt") }

// KShortestCache holds the ranked k-shortest-path links of the last preparation
func (d Dirs) KShortestCache() string {
	return filepath.Join(d.Cache(), "k-shortest-valid-edges-cache.txt")
}

// Prepare creates every staging directory and removes the regular files of
// all of them except the cache.
func (d Dirs) Prepare() error {
	for _, dir := range []string{d.Final(), d.Graph(), d.LP(), d.Traffic(), d.Cache()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("staging: create %s: %v: %w", dir, err, model.ErrIO)
		}
	}
	for _, dir := range []string{d.Final(), d.Graph(), d.LP(), d.Traffic()} {
		if err := removeFilesIn(dir); err != nil {
			return err
		}
	}
	return nil
}

// removeFilesIn deletes the regular files directly inside dir, leaving
// subdirectories alone
func removeFilesIn(dir string) error {
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path == dir {
				return nil
			}
			return filepath.SkipDir
		}
		if entry.Type().IsRegular() {
			return os.Remove(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("staging: clean %s: %v: %w", dir, err, model.ErrIO)
	}
	return nil
}

// WriteFile creates path and hands it to fn. The file is closed on every path.
func WriteFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %v: %w", path, err, model.ErrIO)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %v: %w", path, cerr, model.ErrIO)
		}
	}()
	return fn(f)
}

// CopyFile copies src to dst, replacing dst
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy %s: %v: %w", src, err, model.ErrIO)
	}
	defer in.Close()

	return WriteFile(dst, func(w io.Writer) error {
		if _, err := io.Copy(w, in); err != nil {
			return fmt.Errorf("copy %s to %s: %v: %w", src, dst, err, model.ErrIO)
		}
		return nil
	})
}
