package match

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandsync/reconciler/internal/registry"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name      string
		a, b      string
		want      float64
		algorithm Algorithm
	}{
		{name: "identical", a: "acme", b: "acme", want: 100, algorithm: AlgorithmTokenSet},
		{name: "empty side", a: "", b: "acme", want: 0, algorithm: AlgorithmNone},
		{name: "one extra word", a: "acme holdings", b: "acme", want: 200.0 / 3, algorithm: AlgorithmTokenSet},
		{name: "two extra words", a: "acme holdings international", b: "acme", want: 50, algorithm: AlgorithmTokenSet},
		{name: "one typo", a: "acme", b: "acne", want: 75, algorithm: AlgorithmEditRatio},
		{name: "nothing shared", a: "zeta", b: "acme", want: 0, algorithm: AlgorithmTokenSet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compare(tt.a, tt.b)
			assert.InDelta(t, tt.want, got.Value, 0.01)
			assert.Equal(t, tt.algorithm, got.Algorithm)
		})
	}
}

func TestCompareSymmetric(t *testing.T) {
	names := []string{"acme", "acme holdings", "3m", "roadrunner supply", "zeta labs", "zeta group", "acne"}
	for _, a := range names {
		for _, b := range names {
			assert.Equal(t, Compare(a, b), Compare(b, a), "%q vs %q", a, b)
			v := Compare(a, b).Value
			assert.True(t, v >= 0 && v <= 100)
		}
	}
}

func TestScoreNormalizes(t *testing.T) {
	got := Score("3M Company", "3M Co")
	assert.Equal(t, 100.0, got.Value)
}

func TestThresholds(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		score float64
		want  Tier
	}{
		{100, TierAuto},
		{90, TierAuto},
		{89.9, TierReview},
		{80, TierReview},
		{79.9, TierUnmatched},
		{0, TierUnmatched},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, th.TierFor(tt.score), "score %v", tt.score)
	}
}

func TestNewThresholdsRejectsBadConfiguration(t *testing.T) {
	tests := []struct {
		name         string
		auto, review float64
	}{
		{"review above auto", 80, 90},
		{"auto above 100", 101, 80},
		{"negative review", 90, -1},
		{"not a number", math.NaN(), 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewThresholds(tt.auto, tt.review)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidThresholdConfiguration))

			_, err = NewClassifier(Thresholds{AutoAccept: tt.auto, ManualReview: tt.review}, 0)
			assert.ErrorIs(t, err, ErrInvalidThresholdConfiguration)
		})
	}

	_, err := NewThresholds(85, 85)
	assert.NoError(t, err)
}

func TestClassify(t *testing.T) {
	c, err := NewClassifier(DefaultThresholds(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, c.TopK())

	empty := c.Classify(nil)
	assert.Equal(t, TierUnmatched, empty.Tier)
	assert.Nil(t, empty.Best)
	_, ok := empty.BestScore()
	assert.False(t, ok)

	var candidates []Candidate
	for i, score := range []float64{95, 85, 84, 83, 82, 81, 70, 60} {
		candidates = append(candidates, Candidate{EntityID: string(rune('a' + i)), Score: score})
	}

	res := c.Classify(candidates)
	assert.Equal(t, TierAuto, res.Tier)
	assert.Equal(t, "a", res.Best.EntityID)
	require.Len(t, res.Alternatives, DefaultTopK)
	assert.Equal(t, "b", res.Alternatives[0].EntityID)
	assert.Equal(t, "f", res.Alternatives[4].EntityID)
}

func TestTierCap(t *testing.T) {
	assert.Equal(t, TierReview, TierAuto.Cap(TierReview))
	assert.Equal(t, TierUnmatched, TierReview.Cap(TierUnmatched))
	assert.Equal(t, TierReview, TierReview.Cap(TierAuto))
}

func TestScorer(t *testing.T) {
	snapshot := registry.NewSnapshot([]registry.Document{
		{ID: "e2", Fields: map[string]any{"name": "Acme Corp"}},
		{ID: "e1", Fields: map[string]any{"name": "3M Co", "brand_name": "Post-it"}},
		{ID: "e0", Fields: map[string]any{"name": "Acme Ltd"}},
	}, nil)

	candidates := NewScorer(snapshot).ScoreAgainst("3M Company")
	require.Len(t, candidates, 3)
	assert.Equal(t, "e1", candidates[0].EntityID)
	assert.Equal(t, "3M Co", candidates[0].EntityName)
	assert.Equal(t, 100.0, candidates[0].Score)

	// equal scores fall back to entity ID order
	candidates = NewScorer(snapshot).ScoreAgainst("Acme")
	assert.Equal(t, "e0", candidates[0].EntityID)
	assert.Equal(t, "e2", candidates[1].EntityID)

	// each entity keeps its best name
	candidates = NewScorer(snapshot).ScoreAgainst("Post-it")
	assert.Equal(t, "e1", candidates[0].EntityID)
	assert.Equal(t, "Post-it", candidates[0].EntityName)

	assert.Empty(t, NewScorer(registry.NewSnapshot(nil, nil)).ScoreAgainst("Acme"))
}
