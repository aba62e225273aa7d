// Package topology builds switch graphs for the supported datacenter topology families.
package topology

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/ritzau/topobench/pkg/graph"
	"github.com/ritzau/topobench/pkg/model"
)

// Type identifies a topology family by its command line code
type Type string

const (
	TypeRandomRegular Type = "JF"
	TypeFatTree       Type = "FT"
	TypeXpander       Type = "XP"
	TypeTwoPart       Type = "TPRR"
	TypeFromFile      Type = "FILE"
)

// Types lists every supported topology code
var Types = []Type{TypeRandomRegular, TypeFatTree, TypeXpander, TypeTwoPart, TypeFromFile}

// ParseType maps a code such as "JF" to a Type
func ParseType(code string) (Type, error) {
	for _, t := range Types {
		if string(t) == code {
			return t, nil
		}
	}
	codes := make([]string, len(Types))
	for i, t := range Types {
		codes[i] = string(t)
	}
	return "", fmt.Errorf("unknown graph type %q (valid: %s): %w", code, strings.Join(codes, ", "), model.ErrConfiguration)
}

// Params holds the parameters of every family; each family reads its own subset
type Params struct {
	Type Type

	Switches    int // JF, XP, TPRR, FILE
	SwitchPorts int // JF, XP, TPRR
	NetPorts    int // JF, XP, TPRR

	KFatTree int // FT
	Hosts    int // FT, used when KFatTree is 0

	PartFraction float64 // TPRR
	ExtA2A       int     // TPRR
	ExtSupp      int     // TPRR

	PartSwitches int    // FILE
	File         string // FILE
}

// Generator builds graphs. Rng is the run's single random source; Lift and
// Seed are used by the Xpander family only.
type Generator struct {
	Rng  *rand.Rand
	Lift LiftGenerator
	Seed int64
}

// Generate builds the graph selected by p.Type
func (gen *Generator) Generate(ctx context.Context, p Params) (*graph.Graph, error) {
	switch p.Type {
	case TypeRandomRegular:
		return RandomRegular(gen.Rng, p.Switches, p.SwitchPorts, p.NetPorts)
	case TypeFatTree:
		if p.KFatTree == 0 && p.Hosts > 0 {
			return FatTreeByHosts(p.Hosts)
		}
		return FatTree(p.KFatTree)
	case TypeXpander:
		if gen.Lift == nil {
			return nil, fmt.Errorf("xpander: no lift generator configured: %w", model.ErrConfiguration)
		}
		return Xpander(ctx, gen.Lift, p.NetPorts, p.SwitchPorts-p.NetPorts, p.Switches, gen.Seed)
	case TypeTwoPart:
		return TwoPart(gen.Rng, p.NetPorts, p.SwitchPorts-p.NetPorts, p.Switches, p.PartFraction, p.ExtA2A, p.ExtSupp)
	case TypeFromFile:
		return FromFile(p.Switches, p.PartSwitches, p.File)
	default:
		return nil, fmt.Errorf("cannot generate graph type %q: %w", p.Type, model.ErrConfiguration)
	}
}
