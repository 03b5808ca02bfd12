package memory

import (
	"fmt"
	"math"
)

// RecencyScorer maps a turn's position in the window to a freshness weight
// in [0, 1]. Index 0 is the oldest surviving turn, index total-1 the newest.
type RecencyScorer interface {
	Score(index, total int) float64
}

// ExponentialRecencyScorer scores positions on an exponential curve with a
// steeper recent-bias than linear scoring: the oldest turn scores ~0, the
// newest 1.0.
type ExponentialRecencyScorer struct {
	rate float64
}

// NewExponentialRecencyScorer creates an exponential scorer. The rate
// controls curve steepness and must be positive; 2.0 is a reasonable
// default.
func NewExponentialRecencyScorer(rate float64) (*ExponentialRecencyScorer, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("recency rate must be positive, got %v", rate)
	}
	return &ExponentialRecencyScorer{rate: rate}, nil
}

// Score computes (e^(rate*x) - 1) / (e^rate - 1) for x = index/(total-1).
// A single-item window scores 1.0: the item is both oldest and newest.
func (s *ExponentialRecencyScorer) Score(index, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	x := float64(index) / float64(total-1)
	denom := math.Exp(s.rate) - 1.0
	if denom == 0 {
		return x
	}
	return (math.Exp(s.rate*x) - 1.0) / denom
}

// LinearRecencyScorer interpolates linearly from minScore (oldest) to 1.0
// (newest).
type LinearRecencyScorer struct {
	minScore float64
}

// NewLinearRecencyScorer creates a linear scorer. minScore must be in
// [0, 1); 0.5 is the conventional default.
func NewLinearRecencyScorer(minScore float64) (*LinearRecencyScorer, error) {
	if minScore < 0 || minScore >= 1 {
		return nil, fmt.Errorf("min score must be in [0, 1), got %v", minScore)
	}
	return &LinearRecencyScorer{minScore: minScore}, nil
}

// Score computes minScore + (1-minScore)*x for x = index/(total-1).
func (s *LinearRecencyScorer) Score(index, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	x := float64(index) / float64(total-1)
	return s.minScore + (1.0-s.minScore)*x
}
