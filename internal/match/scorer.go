package match

import (
	"sort"

	"github.com/brandsync/reconciler/internal/normalize"
	"github.com/brandsync/reconciler/internal/registry"
)

// Scorer scores input names against a registry snapshot
type Scorer struct {
	snapshot *registry.Snapshot
}

// NewScorer creates a scorer bound to one run's snapshot
func NewScorer(snapshot *registry.Snapshot) *Scorer {
	return &Scorer{snapshot: snapshot}
}

// ScoreAgainst scores rowName against every known entity.
// Each entity keeps the best score across its own names. Candidates are
// sorted by score descending, then entity ID ascending.
func (s *Scorer) ScoreAgainst(rowName string) []Candidate {
	return s.ScoreNormalized(normalize.CompanyName(rowName))
}

// ScoreNormalized is ScoreAgainst for a name that is already normalized
func (s *Scorer) ScoreNormalized(normalized string) []Candidate {
	if s.snapshot == nil || s.snapshot.Len() == 0 {
		return nil
	}

	entities := s.snapshot.Entities()
	candidates := make([]Candidate, 0, len(entities))

	for _, e := range entities {
		best := Similarity{Value: -1, Algorithm: AlgorithmNone}
		bestName := e.DisplayName()
		for i, name := range e.NormalizedNames() {
			sim := Compare(normalized, name)
			if sim.Value > best.Value {
				best = sim
				bestName = e.Names[i]
			}
		}
		candidates = append(candidates, Candidate{
			EntityID:   e.ID,
			EntityName: bestName,
			Score:      best.Value,
			Algorithm:  best.Algorithm,
		})
	}

	SortCandidates(candidates)
	return candidates
}

// SortCandidates orders candidates by score descending, then entity ID ascending
func SortCandidates(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].EntityID < candidates[j].EntityID
	})
}
