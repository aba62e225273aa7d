package topology

import (
	"fmt"
	"math/rand/v2"

	"github.com/ritzau/topobench/pkg/graph"
	"github.com/ritzau/topobench/pkg/logging"
	"github.com/ritzau/topobench/pkg/model"
)

// maxLinkSearchAttempts bounds the random pair search for one link
const maxLinkSearchAttempts = 1000

// RandomRegular builds a random regular graph (JellyFish) with n switches,
// switchPorts ports per switch of which netPorts are used for the network.
// Every switch gets switchPorts-netPorts servers.
//
// The construction is a heuristic: when the remaining nodes cannot be paired
// (e.g. they already form a clique) it logs a warning and returns the
// partially filled graph.
func RandomRegular(rng *rand.Rand, n, switchPorts, netPorts int) (*graph.Graph, error) {
	if netPorts < 0 || switchPorts < netPorts {
		return nil, fmt.Errorf("random regular graph: need 0 <= netports (%d) <= switchports (%d): %w",
			netPorts, switchPorts, model.ErrConfiguration)
	}

	g, err := graph.NewWithUniformWeight("JellyFish", n, switchPorts-netPorts)
	if err != nil {
		return nil, err
	}
	log := logging.New("topology")
	log.Info("creating random regular graph", "switches", n, "netDegree", netPorts,
		"serverDegree", switchPorts-netPorts, "servers", g.TotalWeight())

	if err := linkRandomRegular(rng, g, netPorts); err != nil {
		return nil, err
	}
	return g, nil
}

func linkRandomRegular(rng *rand.Rand, g *graph.Graph, degree int) error {
	n := g.NumNodes()
	if degree == 0 || n < 2 {
		return nil
	}

	stillToLink := make([]int, n)
	used := make([]int, n)
	for i := range stillToLink {
		stillToLink[i] = i
	}

	for len(stillToLink) > 1 {
		p1, p2 := -1, -1
		found := false
		for attempt := 0; attempt < maxLinkSearchAttempts && !found; attempt++ {
			p1 = rng.IntN(len(stillToLink))
			p2 = p1
			for p2 == p1 {
				p2 = rng.IntN(len(stillToLink))
			}

			n1, n2 := stillToLink[p1], stillToLink[p2]
			if !g.IsBidirectionalNeighbor(n1, n2) {
				if err := g.AddBidirectional(n1, n2); err != nil {
					return err
				}
				found = true
			}
		}
		if !found {
			logging.Warn("unable to find new pair to link, returning partial graph",
				"graph", g.Name(), "remaining", stillToLink)
			return nil
		}

		used[p1]++
		used[p2]++

		// Drop exhausted nodes; p2 shifts left when p1 was before it
		if used[p1] == degree {
			stillToLink = append(stillToLink[:p1], stillToLink[p1+1:]...)
			used = append(used[:p1], used[p1+1:]...)
			if p1 < p2 {
				p2--
			}
		}
		if used[p2] == degree {
			stillToLink = append(stillToLink[:p2], stillToLink[p2+1:]...)
			used = append(used[:p2], used[p2+1:]...)
		}
	}

	if len(stillToLink) == 1 {
		logging.Warn("one node left unlinked, returning partial graph",
			"graph", g.Name(), "node", stillToLink[0], "degree", used[0], "want", degree)
	}
	return nil
}
