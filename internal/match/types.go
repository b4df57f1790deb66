package match

import (
	"errors"
	"fmt"
)

// Algorithm names the similarity strategy that produced a score
type Algorithm string

// Algorithms in declaration order. Earlier algorithms win ties.
const (
	AlgorithmNone      Algorithm = "none"
	AlgorithmTokenSet  Algorithm = "token_set"
	AlgorithmEditRatio Algorithm = "edit_ratio"
	AlgorithmTrigram   Algorithm = "trigram"
)

// Similarity is the best score between two names and the algorithm behind it
type Similarity struct {
	Value     float64   `json:"value" yaml:"value"`
	Algorithm Algorithm `json:"algorithm" yaml:"algorithm"`
}

// Candidate is one known entity scored against an input name
type Candidate struct {
	EntityID   string    `json:"entity_id" yaml:"entity_id"`
	EntityName string    `json:"entity_name" yaml:"entity_name"`
	Score      float64   `json:"score" yaml:"score"`
	Algorithm  Algorithm `json:"algorithm" yaml:"algorithm"`
}

// Tier is the classification bucket for a row
type Tier string

const (
	TierAuto      Tier = "auto"
	TierReview    Tier = "review"
	TierUnmatched Tier = "unmatched"
)

// rank orders tiers from least to most confident
func (t Tier) rank() int {
	switch t {
	case TierAuto:
		return 2
	case TierReview:
		return 1
	default:
		return 0
	}
}

// Cap returns the less confident of t and limit
func (t Tier) Cap(limit Tier) Tier {
	if limit.rank() < t.rank() {
		return limit
	}
	return t
}

// Result is the classification of one name
type Result struct {
	Tier         Tier        `json:"tier" yaml:"tier"`
	Best         *Candidate  `json:"best,omitempty" yaml:"best,omitempty"`
	Alternatives []Candidate `json:"alternatives" yaml:"alternatives"`
}

// BestScore returns the best score and whether there was a best candidate at all
func (r Result) BestScore() (float64, bool) {
	if r.Best == nil {
		return 0, false
	}
	return r.Best.Score, true
}

// ErrInvalidThresholdConfiguration is returned when thresholds are out of order or range
var ErrInvalidThresholdConfiguration = errors.New("invalid threshold configuration")

// ThresholdError describes which threshold constraint failed
type ThresholdError struct {
	AutoAccept   float64
	ManualReview float64
	Message      string
}

// Error implements the error interface
func (e *ThresholdError) Error() string {
	return fmt.Sprintf("invalid threshold configuration (auto_accept=%.2f, manual_review=%.2f): %s",
		e.AutoAccept, e.ManualReview, e.Message)
}

// Is implements errors.Is support
func (e *ThresholdError) Is(target error) bool {
	return target == ErrInvalidThresholdConfiguration
}
