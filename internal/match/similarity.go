package match

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/brandsync/reconciler/internal/normalize"
)

// similarityFunc scores two non-empty, distinct normalized names in [0,100]
type similarityFunc func(a, b string) float64

type algorithm struct {
	name Algorithm
	fn   similarityFunc
}

// algorithms are evaluated in this order; a later algorithm must strictly beat an earlier one
var algorithms = []algorithm{
	{AlgorithmTokenSet, tokenSetSimilarity},
	{AlgorithmEditRatio, editRatioSimilarity},
	{AlgorithmTrigram, trigramSimilarity},
}

// Score normalizes both names and compares them
func Score(a, b string) Similarity {
	return Compare(normalize.CompanyName(a), normalize.CompanyName(b))
}

// Compare scores two already normalized names. It is symmetric and returns
// 100 for identical names and 0 when either side is empty.
func Compare(a, b string) Similarity {
	if a == "" || b == "" {
		return Similarity{Value: 0, Algorithm: AlgorithmNone}
	}
	if a == b {
		return Similarity{Value: 100, Algorithm: algorithms[0].name}
	}

	best := Similarity{Value: -1, Algorithm: AlgorithmNone}
	for _, alg := range algorithms {
		v := clamp(alg.fn(a, b))
		if v > best.Value {
			best = Similarity{Value: v, Algorithm: alg.name}
		}
	}

	return best
}

// tokenSetSimilarity is the Sørensen–Dice coefficient over distinct words
func tokenSetSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	shared := 0
	for t := range setA {
		if setB[t] {
			shared++
		}
	}

	return float64(2*shared) * 100 / float64(len(setA)+len(setB))
}

// editRatioSimilarity is 1 - levenshtein distance over the longer length, in runes
func editRatioSimilarity(a, b string) float64 {
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}

	distance := levenshtein.ComputeDistance(a, b)
	return float64(longest-distance) * 100 / float64(longest)
}

// trigramSimilarity is the Jaccard index over word trigrams padded the way pg_trgm pads them
func trigramSimilarity(a, b string) float64 {
	gramsA := trigrams(a)
	gramsB := trigrams(b)
	if len(gramsA) == 0 || len(gramsB) == 0 {
		return 0
	}

	shared := 0
	for g := range gramsA {
		if gramsB[g] {
			shared++
		}
	}
	union := len(gramsA) + len(gramsB) - shared

	return float64(shared) * 100 / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(s) {
		set[t] = true
	}
	return set
}

func trigrams(s string) map[string]bool {
	grams := make(map[string]bool)
	for _, word := range strings.Fields(s) {
		padded := []rune("  " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			grams[string(padded[i:i+3])] = true
		}
	}
	return grams
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}
