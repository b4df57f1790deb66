package artifact

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandsync/reconciler/internal/match"
	"github.com/brandsync/reconciler/internal/plan"
)

func TestChosen(t *testing.T) {
	entry := ReviewEntry{
		ID:           EntryID("contacts", 2, 0),
		Best:         CandidateRef{EntityID: "e2", Score: 85},
		Alternatives: []CandidateRef{{EntityID: "e5", Score: 82}},
	}
	assert.Equal(t, "contacts:2:0", entry.ID)

	tests := []struct {
		name     string
		decision Decision
		chosen   string
		want     string
		ok       bool
	}{
		{name: "pending", decision: DecisionPending},
		{name: "rejected", decision: DecisionRejected},
		{name: "accepted defaults to best", decision: DecisionAccepted, want: "e2", ok: true},
		{name: "accepted alternative", decision: DecisionAccepted, chosen: "e5", want: "e5", ok: true},
		{name: "alternative listed", decision: DecisionAlternative, chosen: "e5", want: "e5", ok: true},
		{name: "alternative without choice", decision: DecisionAlternative},
		{name: "alternative not listed", decision: DecisionAlternative, chosen: "e9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entry
			e.Decision = tt.decision
			e.ChosenEntityID = tt.chosen

			got, ok := e.Chosen()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.EntityID)
		})
	}
}

func TestSortReviewIsStable(t *testing.T) {
	entries := []ReviewEntry{
		{ID: "a", Best: CandidateRef{Score: 81}},
		{ID: "b", Best: CandidateRef{Score: 88}},
		{ID: "c", Best: CandidateRef{Score: 81}},
		{ID: "d", Best: CandidateRef{Score: 85}},
	}
	SortReview(entries)

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, "yml": FormatYAML, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)

	assert.Equal(t, FormatYAML, FormatOf("out/manual_review.yml"))
	assert.Equal(t, FormatJSON, FormatOf("out/manual_review"))
}

func TestWriteAll(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			p := plan.New()
			p.Stage("e1", plan.SetValueInMap(plan.FieldSocial, "website", "3m.com", plan.Origin{Dataset: "contacts", Line: 2, Score: 100}))

			summary := &Summary{RunID: "run-1", Entities: 2}
			summary.Dataset("contacts").Count(match.TierAuto)

			w := NewWriter(dir, format)
			paths, err := w.WriteAll(Set{
				RunID:     "run-1",
				Review:    nil,
				Unmatched: []UnmatchedEntry{{Row: RowRef{Dataset: "contacts", Line: 3, Name: "Acme Holdings International"}, Kind: KindContact}},
				Plan:      PlanEntries(p),
				Summary:   summary,
			})
			require.NoError(t, err)
			require.Len(t, paths, 5)
			assert.Equal(t, filepath.Join(dir, NameReview+format.Ext()), paths[0])

			review, err := ReadFile[ReviewEntry](w.Path(NameReview))
			require.NoError(t, err)
			assert.Equal(t, "run-1", review.RunID)
			assert.Equal(t, 0, review.Count)
			assert.NotNil(t, review.Entries)

			unmatched, err := ReadFile[UnmatchedEntry](w.Path(NameUnmatched))
			require.NoError(t, err)
			require.Len(t, unmatched.Entries, 1)
			assert.Equal(t, 3, unmatched.Entries[0].Row.Line)

			planned, err := ReadFile[PlanEntry](w.Path(NamePlan))
			require.NoError(t, err)
			require.Len(t, planned.Entries, 1)
			assert.Equal(t, "e1", planned.Entries[0].EntityID)
			assert.Equal(t, "social.website", planned.Entries[0].Mutations[0].Target())

			summaries, err := ReadFile[Summary](w.Path(NameSummary))
			require.NoError(t, err)
			require.Len(t, summaries.Entries, 1)
			assert.Equal(t, 1, summaries.Entries[0].Datasets["contacts"].Auto)
		})
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile[ReviewEntry](filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
