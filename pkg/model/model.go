package model

import (
	"fmt"
)

// TrafficPair is one server-to-server demand unit.
// Indices are server indices, not switch indices.
type TrafficPair struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// NewTrafficPair validates and creates a traffic pair
func NewTrafficPair(from, to int) (TrafficPair, error) {
	if from < 0 || to < 0 {
		return TrafficPair{}, fmt.Errorf("traffic pair (%d, %d): negative server index: %w", from, to, ErrTrafficValidation)
	}
	return TrafficPair{From: from, To: to}, nil
}

func (p TrafficPair) String() string {
	return fmt.Sprintf("%d %d", p.From, p.To)
}

// Edge is an undirected switch-level edge as produced by external edge sources
// (lift generators, edge list files).
type Edge struct {
	From int
	To   int
}
