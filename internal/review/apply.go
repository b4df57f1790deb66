package review

import (
	"github.com/brandsync/reconciler/internal/artifact"
	"github.com/brandsync/reconciler/internal/plan"
	"github.com/brandsync/reconciler/internal/registry"
)

// Notes on entries that came out of a review pass
const (
	NoteRejectedInReview = "rejected_in_review"
	NoteParentUndecided  = "parent_undecided"
	NoteSelfLink         = "matches_parent_entity"
)

// Outcome is what a set of decided entries turns into
type Outcome struct {
	Plan       *plan.WritePlan
	Unmatched  []artifact.UnmatchedEntry
	Applied    []string
	Unresolved []artifact.ReviewEntry
	Pending    int
}

// Resolve turns accepted and alternative decisions into a write plan, using
// the same staging as an automatic match. Rejected entries become unmatched.
// Subsidiaries whose parent was neither matched automatically nor accepted in
// the same review are left unresolved. snapshot may be nil.
func Resolve(entries []artifact.ReviewEntry, social map[string]string, snapshot *registry.Snapshot) Outcome {
	if social == nil {
		social = plan.DefaultSocialFields
	}
	out := Outcome{Plan: plan.New(), Unmatched: []artifact.UnmatchedEntry{}}

	// parents accepted in review, by normalized name
	parents := make(map[string]artifact.CandidateRef)
	for _, e := range entries {
		if e.Kind != artifact.KindParent {
			continue
		}
		if chosen, ok := e.Chosen(); ok {
			parents[e.Normalized] = chosen
		}
	}

	for _, e := range entries {
		if !e.Decision.Decided() {
			out.Pending++
			continue
		}

		if e.Decision == artifact.DecisionRejected {
			out.Unmatched = append(out.Unmatched, rejectedEntry(e))
			continue
		}

		chosen, ok := e.Chosen()
		if !ok {
			out.Unresolved = append(out.Unresolved, e)
			continue
		}
		origin := plan.Origin{Dataset: e.Row.Dataset, Line: e.Row.Line, Score: chosen.Score}

		switch e.Kind {
		case artifact.KindContact:
			plan.StageContact(out.Plan, chosen.EntityID, e.ContactData, social, origin)

		case artifact.KindSubsidiary:
			parent, ok := resolveParent(e, parents, snapshot)
			if !ok {
				e.Note = NoteParentUndecided
				out.Unresolved = append(out.Unresolved, e)
				continue
			}
			if parent.EntityID == chosen.EntityID {
				e.Note = NoteSelfLink
				out.Unresolved = append(out.Unresolved, e)
				continue
			}
			plan.StageSubsidiary(out.Plan, parent.EntityID, parent.EntityName, chosen.EntityID, origin)

		case artifact.KindParent:
			// resolves the parent for its subsidiaries, nothing to write
		}

		out.Applied = append(out.Applied, e.ID)
	}

	return out
}

func resolveParent(e artifact.ReviewEntry, accepted map[string]artifact.CandidateRef, snapshot *registry.Snapshot) (artifact.CandidateRef, bool) {
	if e.Parent == nil {
		return artifact.CandidateRef{}, false
	}

	var parent artifact.CandidateRef
	switch {
	case e.Parent.EntityID != "" && e.Parent.Best != nil:
		parent = *e.Parent.Best
	case e.Parent.EntityID != "":
		parent = artifact.CandidateRef{EntityID: e.Parent.EntityID}
	default:
		p, ok := accepted[e.Parent.Normalized]
		if !ok {
			return artifact.CandidateRef{}, false
		}
		parent = p
	}

	if snapshot != nil {
		if entity, ok := snapshot.Get(parent.EntityID); ok {
			parent.EntityName = entity.DisplayName()
		}
	}
	return parent, true
}

func rejectedEntry(e artifact.ReviewEntry) artifact.UnmatchedEntry {
	score := e.Best.Score
	return artifact.UnmatchedEntry{
		Row:           e.Row,
		Kind:          e.Kind,
		Normalized:    e.Normalized,
		BestScoreSeen: &score,
		BestEntityID:  e.Best.EntityID,
		Parent:        e.Parent,
		Note:          NoteRejectedInReview,
	}
}
