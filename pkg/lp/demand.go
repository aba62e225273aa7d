// Package lp writes max-min-fair multicommodity flow programs in CPLEX LP format.
package lp

import (
	"fmt"

	"github.com/ritzau/topobench/pkg/graph"
	"github.com/ritzau/topobench/pkg/model"
)

// Flow is one commodity: a switch pair with positive aggregated demand
type Flow struct {
	ID     int
	Src    int
	Dst    int
	Demand int
}

// Demand is the switch-level traffic matrix
type Demand struct {
	n      int
	matrix [][]int
	flows  []Flow
}

// BuildDemand aggregates server-level pairs into switch-level demand counts.
// A pair whose servers share a switch is rejected.
func BuildDemand(g *graph.Graph, pairs []model.TrafficPair) (*Demand, error) {
	n := g.NumNodes()
	d := &Demand{n: n, matrix: make([][]int, n)}
	for i := range d.matrix {
		d.matrix[i] = make([]int, n)
	}

	for _, p := range pairs {
		from, err := g.ServerToSwitch(p.From)
		if err != nil {
			return nil, fmt.Errorf("demand: pair %s: %w", p, err)
		}
		to, err := g.ServerToSwitch(p.To)
		if err != nil {
			return nil, fmt.Errorf("demand: pair %s: %w", p, err)
		}
		if from == to {
			return nil, fmt.Errorf("demand: servers %d and %d share switch %d: %w", p.From, p.To, from, model.ErrTrafficValidation)
		}
		d.matrix[from][to]++
	}

	// Flow ids follow row-major order over the matrix
	for f := 0; f < n; f++ {
		for t := 0; t < n; t++ {
			if d.matrix[f][t] > 0 {
				d.flows = append(d.flows, Flow{ID: len(d.flows), Src: f, Dst: t, Demand: d.matrix[f][t]})
			}
		}
	}
	return d, nil
}

// At returns the number of demand units from switch f to switch t
func (d *Demand) At(f, t int) int {
	return d.matrix[f][t]
}

// Flows returns the commodities in flow id order
func (d *Demand) Flows() []Flow {
	return d.flows
}

// NumNodes returns the dimension of the matrix
func (d *Demand) NumNodes() int {
	return d.n
}
