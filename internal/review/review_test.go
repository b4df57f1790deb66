package review

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandsync/reconciler/internal/artifact"
	"github.com/brandsync/reconciler/internal/match"
	"github.com/brandsync/reconciler/internal/plan"
)

func sampleEntries() []artifact.ReviewEntry {
	return []artifact.ReviewEntry{
		{
			ID:       "contacts:2:0",
			Row:      artifact.RowRef{Dataset: "contacts", Line: 2, Name: "Acme Holdings"},
			Kind:     artifact.KindContact,
			Best:     artifact.CandidateRef{EntityID: "e2", EntityName: "Acme Corp", Score: 85},
			Decision: artifact.DecisionPending,
			Alternatives: []artifact.CandidateRef{
				{EntityID: "e5", EntityName: "Acme Holdings Group", Score: 82},
			},
			ContactData: map[string]string{"domain": "acme.com"},
		},
		{
			ID:         "subsidiaries:4:0",
			Row:        artifact.RowRef{Dataset: "subsidiaries", Line: 4, Name: "Zeta Group"},
			Kind:       artifact.KindParent,
			Normalized: "zeta group",
			Best:       artifact.CandidateRef{EntityID: "z1", EntityName: "Zeta Group Inc", Score: 84},
			Decision:   artifact.DecisionPending,
		},
		{
			ID:   "subsidiaries:4:1",
			Row:  artifact.RowRef{Dataset: "subsidiaries", Line: 4, Name: "Zeta Labs"},
			Kind: artifact.KindSubsidiary,
			Best: artifact.CandidateRef{EntityID: "z2", EntityName: "Zeta Labs", Score: 100},
			Parent: &artifact.ParentContext{
				Name:       "Zeta Group",
				Normalized: "zeta group",
				Tier:       match.TierReview,
			},
			Note:     "parent_unresolved",
			Decision: artifact.DecisionPending,
		},
	}
}

func TestSessionRun(t *testing.T) {
	in := strings.NewReader("x\n1\nq\n")
	var out bytes.Buffer

	entries, summary, err := NewSession(in, &out).Run(sampleEntries())
	require.NoError(t, err)

	assert.Equal(t, artifact.DecisionAlternative, entries[0].Decision)
	assert.Equal(t, "e5", entries[0].ChosenEntityID)
	assert.Equal(t, artifact.DecisionPending, entries[1].Decision)
	assert.Equal(t, artifact.DecisionPending, entries[2].Decision)

	assert.Equal(t, Summary{Alternative: 1, Remaining: 2, Quit: true}, summary)
	assert.Contains(t, out.String(), `Invalid choice "x"`)
	assert.Contains(t, out.String(), "domain: acme.com")
}

func TestSessionStopsAtEndOfInput(t *testing.T) {
	entries, summary, err := NewSession(strings.NewReader("a\nr"), &bytes.Buffer{}).Run(sampleEntries())
	require.NoError(t, err)

	assert.Equal(t, artifact.DecisionAccepted, entries[0].Decision)
	assert.Equal(t, "e2", entries[0].ChosenEntityID)
	assert.Equal(t, artifact.DecisionRejected, entries[1].Decision)
	assert.Equal(t, artifact.DecisionPending, entries[2].Decision)
	assert.True(t, summary.Quit)
	assert.Equal(t, 1, summary.Remaining)
}

func TestBookDecide(t *testing.T) {
	book := NewBook("run-1", sampleEntries())

	tests := []struct {
		name     string
		id       string
		decision artifact.Decision
		chosen   string
		err      error
	}{
		{name: "Accept best", id: "contacts:2:0", decision: artifact.DecisionAccepted},
		{name: "Pick listed alternative", id: "contacts:2:0", decision: artifact.DecisionAlternative, chosen: "e5"},
		{name: "Unknown alternative", id: "contacts:2:0", decision: artifact.DecisionAlternative, chosen: "e9", err: ErrInvalidDecision},
		{name: "Unknown decision", id: "contacts:2:0", decision: "maybe", err: ErrInvalidDecision},
		{name: "Unknown entry", id: "nope", decision: artifact.DecisionRejected, err: ErrEntryNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := book.Decide(tt.id, tt.decision, tt.chosen)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.decision, entry.Decision)
		})
	}

	// failed decisions leave the last good one in place
	entry, err := book.Get("contacts:2:0")
	require.NoError(t, err)
	assert.Equal(t, "e5", entry.ChosenEntityID)
	assert.Equal(t, 1, book.Counts()[artifact.DecisionAlternative])
}

func TestBookSaveAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manual_review.yaml")
	book := NewBook("run-1", sampleEntries())
	_, err := book.Decide("subsidiaries:4:0", artifact.DecisionAccepted, "")
	require.NoError(t, err)
	require.NoError(t, book.Save(path))

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", reopened.RunID())
	assert.Len(t, reopened.Entries(artifact.DecisionPending), 2)
	assert.Len(t, reopened.Entries(artifact.DecisionAccepted), 1)
}

func TestResolve(t *testing.T) {
	entries := sampleEntries()
	require.NoError(t, record(&entries[0], artifact.DecisionAccepted, ""))
	require.NoError(t, record(&entries[1], artifact.DecisionAccepted, ""))
	require.NoError(t, record(&entries[2], artifact.DecisionAccepted, ""))

	out := Resolve(entries, nil, nil)

	assert.Equal(t, []string{"contacts:2:0", "subsidiaries:4:0", "subsidiaries:4:1"}, out.Applied)
	assert.Empty(t, out.Unresolved)
	assert.Equal(t, []string{"e2", "z1", "z2"}, out.Plan.Entities())

	assert.Equal(t, []plan.Mutation{
		plan.SetValueInMap(plan.FieldSocial, "website", "acme.com", plan.Origin{Dataset: "contacts", Line: 2, Score: 85}),
	}, out.Plan.Mutations("e2"))

	sub := out.Plan.Mutations("z2")
	require.Len(t, sub, 2)
	assert.Equal(t, "Zeta Group Inc", sub[0].Value)
	assert.Equal(t, "z1", sub[1].Value)
}

func TestResolveUndecidedParentAndRejections(t *testing.T) {
	entries := sampleEntries()
	require.NoError(t, record(&entries[0], artifact.DecisionRejected, ""))
	require.NoError(t, record(&entries[2], artifact.DecisionAccepted, ""))

	out := Resolve(entries, nil, nil)

	assert.Equal(t, 0, out.Plan.Len())
	assert.Equal(t, 1, out.Pending)
	require.Len(t, out.Unresolved, 1)
	assert.Equal(t, NoteParentUndecided, out.Unresolved[0].Note)

	require.Len(t, out.Unmatched, 1)
	assert.Equal(t, NoteRejectedInReview, out.Unmatched[0].Note)
	assert.Equal(t, 85.0, *out.Unmatched[0].BestScoreSeen)
}
