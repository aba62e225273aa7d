// Package analysis reads solver solutions back and writes per-flow and
// per-link result files.
package analysis

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ritzau/topobench/pkg/model"
)

// CommodityFlow is a condensed variable f_<fid>_<i>_<j>: flow of commodity
// Flow on link (From, To)
type CommodityFlow struct {
	Flow     int
	From, To int
	Value    float64
}

// PairFlow is a simple aggregate variable f_<src>_<dst>
type PairFlow struct {
	Src, Dst int
	Value    float64
}

// LinkFlow is a simple variable l_<i>_<j>_<k>: flow towards Dest on link (From, To)
type LinkFlow struct {
	From, To int
	Dest     int
	Value    float64
}

// Solution holds the variable values of a solved program in file order
type Solution struct {
	Objective    float64
	HasObjective bool

	CommodityFlows []CommodityFlow
	PairFlows      []PairFlow
	LinkFlows      []LinkFlow
}

// ReadSolution parses a solution file
func ReadSolution(path string) (*Solution, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read solution: %v: %w", err, model.ErrIO)
	}
	defer func() { _ = file.Close() }()

	sol, err := ParseSolution(file)
	if err != nil {
		return nil, fmt.Errorf("read solution %s: %w", path, err)
	}
	return sol, nil
}

// ParseSolution reads "<variable> <value>" lines. Lines for other variables
// are ignored. The first K line is the objective.
func ParseSolution(r io.Reader) (*Solution, error) {
	sol := &Solution{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		name := fields[0]
		value, err := strconv.ParseFloat(fields[1], 64)

		switch {
		case name == "K":
			if err != nil {
				return nil, malformed(lineNo, scanner.Text())
			}
			if !sol.HasObjective {
				sol.Objective = value
				sol.HasObjective = true
			}
		case strings.HasPrefix(name, "f_"):
			ids, idErr := indices(name[2:])
			if err != nil || idErr != nil {
				return nil, malformed(lineNo, scanner.Text())
			}
			switch len(ids) {
			case 3:
				sol.CommodityFlows = append(sol.CommodityFlows, CommodityFlow{Flow: ids[0], From: ids[1], To: ids[2], Value: value})
			case 2:
				sol.PairFlows = append(sol.PairFlows, PairFlow{Src: ids[0], Dst: ids[1], Value: value})
			default:
				return nil, malformed(lineNo, scanner.Text())
			}
		case strings.HasPrefix(name, "l_"):
			ids, idErr := indices(name[2:])
			if err != nil || idErr != nil || len(ids) != 3 {
				return nil, malformed(lineNo, scanner.Text())
			}
			sol.LinkFlows = append(sol.LinkFlows, LinkFlow{From: ids[0], To: ids[1], Dest: ids[2], Value: value})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %v: %w", err, model.ErrIO)
	}
	return sol, nil
}

func indices(s string) ([]int, error) {
	parts := strings.Split(s, "_")
	ids := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		ids[i] = v
	}
	return ids, nil
}

func malformed(lineNo int, line string) error {
	return fmt.Errorf("line %d: malformed variable %q: %w", lineNo, line, model.ErrStructural)
}
