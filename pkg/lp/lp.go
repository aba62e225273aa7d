package lp

import (
	"fmt"

	"github.com/ritzau/topobench/pkg/model"
)

// Type selects the program formulation
type Type string

const (
	TypeSimple    Type = "SIMPLE"
	TypeCondensed Type = "MCFFC"
)

// ParseType maps a formulation code to a Type
func ParseType(code string) (Type, error) {
	switch Type(code) {
	case TypeSimple, TypeCondensed:
		return Type(code), nil
	}
	return "", fmt.Errorf("lp: unknown program type %q (want %s or %s): %w", code, TypeSimple, TypeCondensed, model.ErrConfiguration)
}

// File names inside the lp staging directory
const (
	ProgramFile      = "program.lp"
	FlowIDMapFile    = "flow_id_map"
	LinkCapacityFile = "link_caps"
)
