package match

import (
	"math"
)

// DefaultTopK is the number of alternatives kept for manual review
const DefaultTopK = 5

// Thresholds are the tier boundaries on the 0-100 score scale
type Thresholds struct {
	AutoAccept   float64 `json:"auto_accept" yaml:"auto_accept"`
	ManualReview float64 `json:"manual_review" yaml:"manual_review"`
}

// DefaultThresholds returns 90 for auto-accept and 80 for manual review
func DefaultThresholds() Thresholds {
	return Thresholds{
		AutoAccept:   90.0,
		ManualReview: 80.0,
	}
}

// NewThresholds validates 0 <= manualReview <= autoAccept <= 100
func NewThresholds(autoAccept, manualReview float64) (Thresholds, error) {
	t := Thresholds{AutoAccept: autoAccept, ManualReview: manualReview}
	if err := t.Validate(); err != nil {
		return Thresholds{}, err
	}
	return t, nil
}

// Validate checks the threshold ordering and range
func (t Thresholds) Validate() error {
	fail := func(msg string) error {
		return &ThresholdError{AutoAccept: t.AutoAccept, ManualReview: t.ManualReview, Message: msg}
	}

	switch {
	case math.IsNaN(t.AutoAccept) || math.IsNaN(t.ManualReview):
		return fail("thresholds must be numbers")
	case t.ManualReview < 0:
		return fail("manual review threshold must be >= 0")
	case t.AutoAccept > 100:
		return fail("auto accept threshold must be <= 100")
	case t.AutoAccept < t.ManualReview:
		return fail("auto accept threshold must be >= manual review threshold")
	}
	return nil
}

// TierFor maps a best score to its tier
func (t Thresholds) TierFor(score float64) Tier {
	switch {
	case score >= t.AutoAccept:
		return TierAuto
	case score >= t.ManualReview:
		return TierReview
	default:
		return TierUnmatched
	}
}

// Classifier assigns tiers to scored candidate lists
type Classifier struct {
	thresholds Thresholds
	topK       int
}

// NewClassifier validates the thresholds up front. topK <= 0 selects DefaultTopK.
func NewClassifier(thresholds Thresholds, topK int) (*Classifier, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Classifier{thresholds: thresholds, topK: topK}, nil
}

// Thresholds returns the classifier's tier boundaries
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// TopK returns the number of alternatives kept per result
func (c *Classifier) TopK() int {
	return c.topK
}

// Classify picks the first candidate as best and tiers it.
// Candidates must already be sorted by score descending.
func (c *Classifier) Classify(candidates []Candidate) Result {
	if len(candidates) == 0 {
		return Result{Tier: TierUnmatched, Alternatives: []Candidate{}}
	}

	best := candidates[0]
	rest := candidates[1:]
	if len(rest) > c.topK {
		rest = rest[:c.topK]
	}

	return Result{
		Tier:         c.thresholds.TierFor(best.Score),
		Best:         &best,
		Alternatives: append([]Candidate{}, rest...),
	}
}
