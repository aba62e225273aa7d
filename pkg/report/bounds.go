package report

import (
	"fmt"
	"math"

	"github.com/ritzau/topobench/pkg/model"
)

// AvgPathLengthMinBound is the lower bound on the average shortest path
// length of any d-regular graph on n nodes (Cerf et al.). It fills the
// largest possible Moore tree: d(d-1)^(j-1) nodes at distance j for
// j < k, and the remaining R nodes at distance k.
func AvgPathLengthMinBound(n int, d float64) (float64, error) {
	if n < 2 || d < 2 {
		return 0, fmt.Errorf("path length bound: need n >= 2 and d >= 2, got n=%d d=%v: %w", n, d, model.ErrConfiguration)
	}

	remaining := float64(n - 1)
	k := 1
	for {
		r := remaining - d*math.Pow(d-1, float64(k-1))
		if r < 0 {
			break
		}
		remaining = r
		k++
	}

	sum := float64(k) * remaining
	for j := 1; j <= k-1; j++ {
		sum += float64(j) * d * math.Pow(d-1, float64(j-1))
	}
	return sum / float64(n-1), nil
}

// MaxThroughputPerNode bounds the all-to-all throughput per node
func MaxThroughputPerNode(n int, d float64) (float64, error) {
	avg, err := AvgPathLengthMinBound(n, d)
	if err != nil {
		return 0, err
	}
	return d / avg, nil
}

// MaxThroughputPerServer bounds the all-to-all throughput per server
func MaxThroughputPerServer(n int, d float64, serversPerSwitch int) (float64, error) {
	if serversPerSwitch < 1 {
		return 0, fmt.Errorf("throughput bound: servers per switch must be positive, got %d: %w", serversPerSwitch, model.ErrConfiguration)
	}
	avg, err := AvgPathLengthMinBound(n, d)
	if err != nil {
		return 0, err
	}
	return d / (avg * float64(serversPerSwitch)), nil
}
