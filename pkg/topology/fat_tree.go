package topology

import (
	"fmt"
	"math"

	"github.com/ritzau/topobench/pkg/graph"
	"github.com/ritzau/topobench/pkg/logging"
	"github.com/ritzau/topobench/pkg/model"
)

// FatTree builds a three-layer K-ary fat tree with 5K²/4 switches:
// K²/2 lower (leaf) switches, K²/2 middle switches and K²/4 core switches.
// Only leaf switches carry servers, K/2 each.
func FatTree(k int) (*graph.Graph, error) {
	if k < 2 || k%2 != 0 {
		return nil, fmt.Errorf("fat tree: K must be even and >= 2, got %d: %w", k, model.ErrConfiguration)
	}

	g, err := graph.New("fat", k*k*5/4)
	if err != nil {
		return nil, err
	}
	half := k / 2

	// Lower to middle, complete bipartite within each pod
	for pod := 0; pod < k; pod++ {
		for low := 0; low < half; low++ {
			for mid := 0; mid < half; mid++ {
				if err := g.AddBidirectional(pod*half+low, k*k/2+pod*half+mid); err != nil {
					return nil, err
				}
			}
		}
	}

	// Middle to core, each middle switch reaches K/2 cores offset by its position in the pod
	for pod := 0; pod < k; pod++ {
		for inPod := 0; inPod < half; inPod++ {
			for core := 0; core < half; core++ {
				if err := g.AddBidirectional(k*k/2+pod*half+inPod, k*k+inPod*half+core); err != nil {
					return nil, err
				}
			}
		}
	}

	for pod := 0; pod < k; pod++ {
		for i := 0; i < half; i++ {
			if err := g.SetNodeWeight(pod*half+i, half); err != nil {
				return nil, err
			}
		}
	}

	logging.New("topology").Info("constructed fat tree", "K", k, "switches", g.NumNodes())
	return g, nil
}

// FatTreeByHosts picks the smallest even K with K³/4 close to hosts and builds that fat tree
func FatTreeByHosts(hosts int) (*graph.Graph, error) {
	if hosts < 1 {
		return nil, fmt.Errorf("fat tree: hosts must be positive, got %d: %w", hosts, model.ErrConfiguration)
	}
	k := int(math.Cbrt(float64(hosts * 4)))
	if k%2 != 0 {
		k++
	}
	logging.Info("fat tree size rounded", "K", k, "hosts", k*k*k/4, "wanted", hosts)
	return FatTree(k)
}
