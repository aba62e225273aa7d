package topology

import (
	"context"
	"fmt"

	"github.com/ritzau/topobench/pkg/graph"
	"github.com/ritzau/topobench/pkg/logging"
	"github.com/ritzau/topobench/pkg/model"
)

// Xpander builds a lifted expander: degree network ports and serverPorts
// servers per switch, at least n switches. The lift factor is
// ceil(n/(degree+1)) and the switch count becomes liftFactor*(degree+1).
func Xpander(ctx context.Context, lift LiftGenerator, degree, serverPorts, n int, seed int64) (*graph.Graph, error) {
	if degree < 1 || n < 1 || serverPorts < 0 {
		return nil, fmt.Errorf("xpander: need degree >= 1, switches >= 1, serverports >= 0 (got %d, %d, %d): %w",
			degree, n, serverPorts, model.ErrConfiguration)
	}

	k := (n + degree) / (degree + 1)
	g, err := graph.NewWithUniformWeight("Xpander", k*(degree+1), serverPorts)
	if err != nil {
		return nil, err
	}

	edges, err := lift.Lift(ctx, degree, k, seed)
	if err != nil {
		return nil, fmt.Errorf("xpander: %w", err)
	}
	for _, e := range edges {
		if err := g.AddBidirectional(e.From, e.To); err != nil {
			return nil, fmt.Errorf("xpander: lift edge: %w", err)
		}
	}

	logging.New("topology").Info("created xpander graph", "d", degree, "s", serverPorts,
		"switches", g.NumNodes(), "lift", k)
	return g, nil
}
