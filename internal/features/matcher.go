package features

import (
	"fmt"
	"math"

	"github.com/steadycam/steady/internal/landmarks"
)

// Match pairs a query keypoint with its best train keypoint.
type Match struct {
	QueryIndex int
	TrainIndex int
	Distance   float64
}

// MatchDescriptors brute-force matches query descriptors against train
// descriptors using L2 distance, keeping only matches that pass the
// Lowe ratio test and, when configured, the cross-check. Returns
// ErrTooFewKeypoints or ErrTooFewMatches when either gate fails.
func MatchDescriptors(query, train []landmarks.Keypoint, cfg Config) ([]Match, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(query) < cfg.MinKeypoints {
		return nil, fmt.Errorf("query frame has %d keypoints, need %d: %w", len(query), cfg.MinKeypoints, ErrTooFewKeypoints)
	}
	if len(train) < cfg.MinKeypoints {
		return nil, fmt.Errorf("train frame has %d keypoints, need %d: %w", len(train), cfg.MinKeypoints, ErrTooFewKeypoints)
	}

	matches := make([]Match, 0, len(query))
	for qi := range query {
		best, second := nearestTwo(query[qi].Descriptor, train)
		if best.index < 0 {
			continue
		}
		// Ratio test: a match is distinctive only when clearly better
		// than the runner-up.
		if second.index >= 0 && best.distance >= cfg.RatioThreshold*second.distance {
			continue
		}
		if cfg.CrossCheck {
			reverse, _ := nearestTwo(train[best.index].Descriptor, query)
			if reverse.index != qi {
				continue
			}
		}
		matches = append(matches, Match{QueryIndex: qi, TrainIndex: best.index, Distance: best.distance})
	}

	if len(matches) < cfg.MinMatches {
		return nil, fmt.Errorf("%d matches survived the ratio test, need %d: %w", len(matches), cfg.MinMatches, ErrTooFewMatches)
	}
	return matches, nil
}

type candidate struct {
	index    int
	distance float64
}

// nearestTwo scans all train descriptors and returns the closest and
// second-closest candidates. Missing candidates have index -1.
func nearestTwo(desc []float32, train []landmarks.Keypoint) (best, second candidate) {
	best = candidate{index: -1, distance: math.Inf(1)}
	second = candidate{index: -1, distance: math.Inf(1)}
	for ti := range train {
		d := descriptorDistance(desc, train[ti].Descriptor)
		switch {
		case d < best.distance:
			second = best
			best = candidate{index: ti, distance: d}
		case d < second.distance:
			second = candidate{index: ti, distance: d}
		}
	}
	return best, second
}

// descriptorDistance is the L2 distance between two descriptors.
// Mismatched lengths compare as infinitely far apart.
func descriptorDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
