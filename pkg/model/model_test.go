package model

import (
	"errors"
	"testing"
)

func TestNewTrafficPair(t *testing.T) {
	tests := []struct {
		name    string
		from    int
		to      int
		wantErr bool
	}{
		{"valid", 0, 5, false},
		{"same server", 3, 3, false},
		{"negative from", -1, 2, true},
		{"negative to", 2, -7, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewTrafficPair(tt.from, tt.to)
			if tt.wantErr {
				if !errors.Is(err, ErrTrafficValidation) {
					t.Fatalf("NewTrafficPair(%d, %d) error = %v, want ErrTrafficValidation", tt.from, tt.to, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewTrafficPair(%d, %d) unexpected error: %v", tt.from, tt.to, err)
			}
			if p.From != tt.from || p.To != tt.to {
				t.Errorf("NewTrafficPair() = %+v", p)
			}
		})
	}
}

func TestTrafficPairEquality(t *testing.T) {
	a, _ := NewTrafficPair(1, 2)
	b, _ := NewTrafficPair(1, 2)
	c, _ := NewTrafficPair(2, 1)

	seen := map[TrafficPair]int{a: 1}
	seen[b]++
	seen[c]++

	if seen[a] != 2 {
		t.Errorf("equal pairs should hash together, got count %d", seen[a])
	}
	if len(seen) != 2 {
		t.Errorf("expected 2 distinct pairs, got %d", len(seen))
	}
	if a.String() != "1 2" {
		t.Errorf("String() = %q", a.String())
	}
}
