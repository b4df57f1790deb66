package artifact

import (
	"fmt"
	"sort"
	"time"

	"github.com/brandsync/reconciler/internal/match"
	"github.com/brandsync/reconciler/internal/plan"
)

// Artifact names, without extension
const (
	NameReview    = "manual_review"
	NameUnmatched = "unmatched_companies"
	NameRejected  = "rejected_rows"
	NamePlan      = "write_plan"
	NameSummary   = "run_summary"
)

// Kind is the role of the name an entry is about
type Kind string

const (
	KindContact    Kind = "contact"
	KindParent     Kind = "parent"
	KindSubsidiary Kind = "subsidiary"
)

// Decision is the reviewer's verdict on a review entry
type Decision string

const (
	DecisionPending     Decision = "pending"
	DecisionAccepted    Decision = "accepted"
	DecisionAlternative Decision = "alternative"
	DecisionRejected    Decision = "rejected"
)

// Decided reports whether the decision can be applied
func (d Decision) Decided() bool {
	return d == DecisionAccepted || d == DecisionAlternative || d == DecisionRejected
}

// RowRef identifies the input row an entry came from
type RowRef struct {
	Dataset string `json:"dataset" yaml:"dataset"`
	Line    int    `json:"line" yaml:"line"`
	Name    string `json:"name" yaml:"name"`
}

// CandidateRef is a scored registry entity
type CandidateRef struct {
	EntityID   string  `json:"entity_id" yaml:"entity_id"`
	EntityName string  `json:"entity_name" yaml:"entity_name"`
	Score      float64 `json:"score" yaml:"score"`
	Algorithm  string  `json:"algorithm" yaml:"algorithm"`
}

// FromCandidate converts a match candidate
func FromCandidate(c match.Candidate) CandidateRef {
	return CandidateRef{
		EntityID:   c.EntityID,
		EntityName: c.EntityName,
		Score:      c.Score,
		Algorithm:  string(c.Algorithm),
	}
}

// FromCandidates converts a candidate list, never returning nil
func FromCandidates(cs []match.Candidate) []CandidateRef {
	out := make([]CandidateRef, 0, len(cs))
	for _, c := range cs {
		out = append(out, FromCandidate(c))
	}
	return out
}

// ParentContext is the classification of a subsidiary row's parent
type ParentContext struct {
	Name       string        `json:"name" yaml:"name"`
	Normalized string        `json:"normalized" yaml:"normalized"`
	Tier       match.Tier    `json:"tier" yaml:"tier"`
	Best       *CandidateRef `json:"best,omitempty" yaml:"best,omitempty"`
	EntityID   string        `json:"entity_id,omitempty" yaml:"entity_id,omitempty"`
}

// ReviewEntry is a match that needs a human decision
type ReviewEntry struct {
	ID             string            `json:"id" yaml:"id"`
	Row            RowRef            `json:"row" yaml:"row"`
	Kind           Kind              `json:"kind" yaml:"kind"`
	Normalized     string            `json:"normalized" yaml:"normalized"`
	Best           CandidateRef      `json:"best" yaml:"best"`
	Alternatives   []CandidateRef    `json:"alternatives" yaml:"alternatives"`
	Decision       Decision          `json:"decision" yaml:"decision"`
	ChosenEntityID string            `json:"chosen_entity_id,omitempty" yaml:"chosen_entity_id,omitempty"`
	ContactData    map[string]string `json:"contact_data,omitempty" yaml:"contact_data,omitempty"`
	Parent         *ParentContext    `json:"parent,omitempty" yaml:"parent,omitempty"`
	Note           string            `json:"note,omitempty" yaml:"note,omitempty"`
}

// EntryID builds the stable ID of an entry: dataset, line and position within the row
func EntryID(dataset string, line, index int) string {
	return fmt.Sprintf("%s:%d:%d", dataset, line, index)
}

// Chosen returns the entity the reviewer settled on
func (e ReviewEntry) Chosen() (CandidateRef, bool) {
	if e.Decision != DecisionAccepted && e.Decision != DecisionAlternative {
		return CandidateRef{}, false
	}

	id := e.ChosenEntityID
	if id == "" {
		if e.Decision == DecisionAlternative {
			return CandidateRef{}, false
		}
		id = e.Best.EntityID
	}

	if id == e.Best.EntityID {
		return e.Best, true
	}
	for _, alt := range e.Alternatives {
		if alt.EntityID == id {
			return alt, true
		}
	}
	return CandidateRef{}, false
}

// UnmatchedEntry is a name that found no usable match
type UnmatchedEntry struct {
	Row           RowRef         `json:"row" yaml:"row"`
	Kind          Kind           `json:"kind" yaml:"kind"`
	Normalized    string         `json:"normalized" yaml:"normalized"`
	BestScoreSeen *float64       `json:"best_score_seen,omitempty" yaml:"best_score_seen,omitempty"`
	BestEntityID  string         `json:"best_entity_id,omitempty" yaml:"best_entity_id,omitempty"`
	Parent        *ParentContext `json:"parent,omitempty" yaml:"parent,omitempty"`
	Note          string         `json:"note,omitempty" yaml:"note,omitempty"`
}

// RejectedEntry is a row the validator turned away
type RejectedEntry struct {
	Row    RowRef `json:"row" yaml:"row"`
	Reason string `json:"reason" yaml:"reason"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// PlanEntry is one entity's complete mutation set
type PlanEntry struct {
	EntityID  string          `json:"entity_id" yaml:"entity_id"`
	Mutations []plan.Mutation `json:"mutations" yaml:"mutations"`
}

// PlanEntries flattens a write plan in entity ID order
func PlanEntries(p *plan.WritePlan) []PlanEntry {
	ids := p.Entities()
	out := make([]PlanEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, PlanEntry{EntityID: id, Mutations: p.Mutations(id)})
	}
	return out
}

// DatasetStats counts what happened to one dataset's rows
type DatasetStats struct {
	Rows      int            `json:"rows" yaml:"rows"`
	Filtered  int            `json:"filtered" yaml:"filtered"`
	Rejected  map[string]int `json:"rejected" yaml:"rejected"`
	Skipped   int            `json:"skipped" yaml:"skipped"`
	Processed int            `json:"processed" yaml:"processed"`
	Auto      int            `json:"auto" yaml:"auto"`
	Review    int            `json:"review" yaml:"review"`
	Unmatched int            `json:"unmatched" yaml:"unmatched"`

	// subsidiary rows only
	ParentTiers map[match.Tier]int `json:"parent_tiers,omitempty" yaml:"parent_tiers,omitempty"`
}

// NewDatasetStats creates zeroed counters
func NewDatasetStats() *DatasetStats {
	return &DatasetStats{Rejected: make(map[string]int), ParentTiers: make(map[match.Tier]int)}
}

// RejectedTotal sums rejections across reasons
func (s *DatasetStats) RejectedTotal() int {
	n := 0
	for _, c := range s.Rejected {
		n += c
	}
	return n
}

// Count adds one tier outcome
func (s *DatasetStats) Count(tier match.Tier) {
	switch tier {
	case match.TierAuto:
		s.Auto++
	case match.TierReview:
		s.Review++
	default:
		s.Unmatched++
	}
}

// Summary is the run-level report
type Summary struct {
	RunID         string                   `json:"run_id" yaml:"run_id"`
	Simulate      bool                     `json:"simulate" yaml:"simulate"`
	Entities      int                      `json:"entities" yaml:"entities"`
	Datasets      map[string]*DatasetStats `json:"datasets" yaml:"datasets"`
	PlanEntities  int                      `json:"plan_entities" yaml:"plan_entities"`
	PlanMutations int                      `json:"plan_mutations" yaml:"plan_mutations"`
	Conflicts     int                      `json:"conflicts" yaml:"conflicts"`
	Applied       int                      `json:"applied" yaml:"applied"`
	WriteErrors   []string                 `json:"write_errors,omitempty" yaml:"write_errors,omitempty"`
}

// Dataset returns the counters for a dataset, creating them on first use
func (s *Summary) Dataset(name string) *DatasetStats {
	if s.Datasets == nil {
		s.Datasets = make(map[string]*DatasetStats)
	}
	d, ok := s.Datasets[name]
	if !ok {
		d = NewDatasetStats()
		s.Datasets[name] = d
	}
	return d
}

// SortReview orders entries by best score descending, keeping input order for ties
func SortReview(entries []ReviewEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Best.Score > entries[j].Best.Score
	})
}

// File is the envelope every artifact is written in
type File[T any] struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Count       int       `json:"count" yaml:"count"`
	Entries     []T       `json:"entries" yaml:"entries"`
}

// NewFile wraps entries, never storing a nil slice
func NewFile[T any](runID string, entries []T) File[T] {
	if entries == nil {
		entries = []T{}
	}
	return File[T]{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Count:       len(entries),
		Entries:     entries,
	}
}
