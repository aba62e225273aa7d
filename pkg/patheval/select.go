package patheval

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/ritzau/topobench/pkg/graph"
	"github.com/ritzau/topobench/pkg/model"
)

// Options selects and parameterizes an evaluator
type Options struct {
	Kind Kind

	Slack int // SLACK

	KShortest KShortestOptions // KSHRT

	ValiantK int        // VALIA
	Rng      *rand.Rand // VALIA

	Progress io.Writer
}

// New builds the evaluator chosen by opts.Kind over g
func New(ctx context.Context, g *graph.Graph, opts Options) (*Evaluator, error) {
	switch opts.Kind {
	case KindSlack:
		return NewSlack(g, opts.Slack)
	case KindNeighbor:
		return NewNeighbor(g)
	case KindKShortest:
		ksp := opts.KShortest
		if ksp.Progress == nil {
			ksp.Progress = opts.Progress
		}
		return NewKShortest(ctx, g, ksp)
	case KindValiant:
		if opts.Rng == nil {
			return nil, fmt.Errorf("valiant evaluator: no random source: %w", model.ErrConfiguration)
		}
		return NewValiant(g, opts.Rng, opts.ValiantK, opts.Progress)
	default:
		return nil, fmt.Errorf("cannot select path evaluator %q: %w", opts.Kind, model.ErrConfiguration)
	}
}
