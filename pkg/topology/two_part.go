package topology

import (
	"fmt"
	"math/rand/v2"

	"github.com/ritzau/topobench/pkg/graph"
	"github.com/ritzau/topobench/pkg/logging"
	"github.com/ritzau/topobench/pkg/model"
)

// TwoPart builds a hybrid of two random regular graphs. The first
// int(n*fraction) switches form the A2A part, the rest the SUPP part. Each
// part keeps extA2A (resp. extSupp) of its netPorts network ports free;
// those ports are then paired at random across the boundary until either
// side runs out. Every switch gets serverPorts servers.
func TwoPart(rng *rand.Rand, netPorts, serverPorts, n int, fraction float64, extA2A, extSupp int) (*graph.Graph, error) {
	if fraction < 0 || fraction > 1 {
		return nil, fmt.Errorf("two-part graph: fraction %v outside [0, 1]: %w", fraction, model.ErrConfiguration)
	}
	if extA2A < 0 || extA2A > netPorts || extSupp < 0 || extSupp > netPorts {
		return nil, fmt.Errorf("two-part graph: external degrees (%d, %d) must lie in [0, %d]: %w",
			extA2A, extSupp, netPorts, model.ErrConfiguration)
	}

	g, err := graph.NewWithUniformWeight("2PartRRG", n, serverPorts)
	if err != nil {
		return nil, err
	}
	log := logging.New("topology")

	nA2A := int(float64(n) * fraction)
	nSupp := n - nA2A
	intA2A := netPorts - extA2A
	intSupp := netPorts - extSupp
	log.Info("A2A part", "n", nA2A, "internalDegree", intA2A, "externalDegree", extA2A)
	log.Info("SUPP part", "n", nSupp, "internalDegree", intSupp, "externalDegree", extSupp)

	a2a, err := RandomRegular(rng, nA2A, intA2A+serverPorts, intA2A)
	if err != nil {
		return nil, fmt.Errorf("two-part graph: A2A part: %w", err)
	}
	supp, err := RandomRegular(rng, nSupp, intSupp+serverPorts, intSupp)
	if err != nil {
		return nil, fmt.Errorf("two-part graph: SUPP part: %w", err)
	}

	if err := mergeInto(g, a2a, 0); err != nil {
		return nil, err
	}
	if err := mergeInto(g, supp, nA2A); err != nil {
		return nil, err
	}

	// Open external ports, one entry per port
	var left, right []int
	for i := 0; i < nA2A; i++ {
		for range extA2A {
			left = append(left, i)
		}
	}
	for i := nA2A; i < n; i++ {
		for range extSupp {
			right = append(right, i)
		}
	}
	leftStart, rightStart := len(left), len(right)

	for len(left) > 0 && len(right) > 0 {
		li := rng.IntN(len(left))
		ri := rng.IntN(len(right))
		if err := g.AddBidirectional(left[li], right[ri]); err != nil {
			return nil, fmt.Errorf("two-part graph: cross link: %w", err)
		}
		left = append(left[:li], left[li+1:]...)
		right = append(right[:ri], right[ri+1:]...)
	}

	log.Info("merged A2A and SUPP parts",
		"openA2A", fmt.Sprintf("%d/%d", len(left), leftStart),
		"openSUPP", fmt.Sprintf("%d/%d", len(right), rightStart))
	return g, nil
}

// mergeInto copies the bidirectional links of part into g with node ids shifted by offset
func mergeInto(g, part *graph.Graph, offset int) error {
	for i := 0; i < part.NumNodes(); i++ {
		for _, l := range part.Links(i) {
			if i <= l.To {
				if err := g.AddBidirectional(offset+i, offset+l.To); err != nil {
					return fmt.Errorf("two-part graph: merge: %w", err)
				}
			}
		}
	}
	return nil
}
