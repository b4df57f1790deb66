package engine

import (
	"fmt"

	"github.com/brandsync/reconciler/internal/artifact"
	"github.com/brandsync/reconciler/internal/ingest"
	"github.com/brandsync/reconciler/internal/match"
	"github.com/brandsync/reconciler/internal/plan"
)

// Notes attached to entries that did not end up where their own score put them
const (
	NoteParentUnresolved = "parent_unresolved"
	NoteSelfMatch        = "matches_parent_entity"
)

// aggregator folds evaluations into an outcome in input order
type aggregator struct {
	d       *Driver
	plan    *plan.WritePlan
	summary *artifact.Summary

	review    []artifact.ReviewEntry
	unmatched []artifact.UnmatchedEntry
	rejected  []artifact.RejectedEntry

	// parents already reported, by normalized name
	parentsSeen map[string]bool
}

func newAggregator(runID string, d *Driver) *aggregator {
	return &aggregator{
		d:    d,
		plan: plan.New(),
		summary: &artifact.Summary{
			RunID:    runID,
			Simulate: d.cfg.SimulateOnly,
			Entities: d.snapshot.Len(),
		},
		review:      []artifact.ReviewEntry{},
		unmatched:   []artifact.UnmatchedEntry{},
		rejected:    []artifact.RejectedEntry{},
		parentsSeen: make(map[string]bool),
	}
}

// screen accounts for filtered, rejected and skipped rows and reports whether
// the row goes on to matching
func (a *aggregator) screen(ev evaluation, name string) bool {
	stats := a.summary.Dataset(ev.row.Dataset)

	switch {
	case ev.filtered:
		stats.Filtered++
		return false

	case !ev.verdict.Accepted:
		stats.Rejected[string(ev.verdict.Reason)]++
		a.rejected = append(a.rejected, artifact.RejectedEntry{
			Row:    rowRef(ev.row, name),
			Reason: string(ev.verdict.Reason),
			Detail: ev.verdict.Detail,
		})
		a.d.logger.Info().
			Str("dataset", ev.row.Dataset).
			Int("line", ev.row.Line).
			Str("reason", string(ev.verdict.Reason)).
			Str("detail", ev.verdict.Detail).
			Msg("Row rejected")
		return false

	case ev.skipped:
		stats.Skipped++
		return false
	}

	stats.Processed++
	return true
}

func (a *aggregator) addContact(ev evaluation) {
	if !a.screen(ev, ev.contact.Company) {
		return
	}

	stats := a.summary.Dataset(ev.row.Dataset)
	result := ev.company.result
	stats.Count(result.Tier)
	a.logDecision(ev.row, ev.company)

	contactData := ev.contact.Contact(plan.SocialColumns(a.d.cfg.SocialFields))

	switch result.Tier {
	case match.TierAuto:
		origin := plan.Origin{Dataset: ev.row.Dataset, Line: ev.row.Line, Score: result.Best.Score}
		a.stage(plan.StageContact(a.plan, result.Best.EntityID, contactData, a.d.cfg.SocialFields, origin))

	case match.TierReview:
		entry := reviewEntry(ev.row, 0, artifact.KindContact, ev.company)
		entry.ContactData = contactData
		a.review = append(a.review, entry)

	default:
		a.unmatched = append(a.unmatched, unmatchedEntry(ev.row, artifact.KindContact, ev.company))
	}
}

func (a *aggregator) addSubsidiary(ev evaluation) {
	if !a.screen(ev, ev.subsidiary.Parent) {
		return
	}

	stats := a.summary.Dataset(ev.row.Dataset)
	for _, x := range ev.verdict.Excluded {
		stats.Rejected[string(x.Reason)]++
		a.rejected = append(a.rejected, artifact.RejectedEntry{
			Row:    rowRef(ev.row, x.Name),
			Reason: string(x.Reason),
			Detail: fmt.Sprintf("subsidiary %q", x.Name),
		})
	}

	parent := ev.parent
	stats.ParentTiers[parent.result.Tier]++
	a.reportParent(ev)

	pc := parentContext(parent)
	for _, child := range ev.children {
		stats.Count(child.effective)
		a.logDecision(ev.row, child.nameMatch)

		switch child.effective {
		case match.TierAuto:
			// the registry's own name, so spelling variants of one parent agree
			parentID := parent.result.Best.EntityID
			parentName := parent.result.Best.EntityName
			if e, ok := a.d.snapshot.Get(parentID); ok {
				parentName = e.DisplayName()
			}
			origin := plan.Origin{Dataset: ev.row.Dataset, Line: ev.row.Line, Score: child.result.Best.Score}
			a.stage(plan.StageSubsidiary(a.plan, parentID, parentName, child.result.Best.EntityID, origin))

		case match.TierReview:
			entry := reviewEntry(ev.row, child.index, artifact.KindSubsidiary, child.nameMatch)
			entry.Parent = pc
			switch {
			case child.self:
				entry.Note = NoteSelfMatch
			case child.result.Tier != child.effective:
				entry.Note = NoteParentUnresolved
			}
			a.review = append(a.review, entry)

		default:
			entry := unmatchedEntry(ev.row, artifact.KindSubsidiary, child.nameMatch)
			entry.Parent = pc
			if child.result.Tier != child.effective {
				entry.Note = NoteParentUnresolved
			}
			a.unmatched = append(a.unmatched, entry)
		}
	}
}

// reportParent records a parent that did not resolve automatically, once per
// distinct parent name
func (a *aggregator) reportParent(ev evaluation) {
	parent := ev.parent
	if parent.result.Tier == match.TierAuto || a.parentsSeen[parent.normalized] {
		return
	}
	a.parentsSeen[parent.normalized] = true

	if parent.result.Tier == match.TierReview {
		a.review = append(a.review, reviewEntry(ev.row, 0, artifact.KindParent, parent))
		return
	}
	a.unmatched = append(a.unmatched, unmatchedEntry(ev.row, artifact.KindParent, parent))
}

func (a *aggregator) stage(conflicts []plan.Conflict) {
	for _, c := range conflicts {
		a.d.logger.Warn().
			Str("entity_id", c.EntityID).
			Str("target", c.Target).
			Str("kept", c.Kept.Value).
			Str("dropped", c.Dropped.Value).
			Msg("Conflicting writes staged, keeping the higher scoring match")
	}
}

func (a *aggregator) logDecision(row ingest.Row, m nameMatch) {
	event := a.d.logger.Debug().
		Str("dataset", row.Dataset).
		Int("line", row.Line).
		Str("name", m.name).
		Str("tier", string(m.result.Tier))
	if m.result.Best != nil {
		event = event.
			Str("entity_id", m.result.Best.EntityID).
			Float64("score", m.result.Best.Score).
			Str("algorithm", string(m.result.Best.Algorithm))
	}
	event.Msg("Classified")
}

func (a *aggregator) finish() *Outcome {
	artifact.SortReview(a.review)

	a.summary.PlanEntities = a.plan.Len()
	a.summary.PlanMutations = a.plan.MutationCount()
	a.summary.Conflicts = len(a.plan.Conflicts())

	return &Outcome{
		RunID:     a.summary.RunID,
		Plan:      a.plan,
		Review:    a.review,
		Unmatched: a.unmatched,
		Rejected:  a.rejected,
		Summary:   a.summary,
	}
}

func rowRef(row ingest.Row, name string) artifact.RowRef {
	return artifact.RowRef{Dataset: row.Dataset, Line: row.Line, Name: name}
}

func reviewEntry(row ingest.Row, index int, kind artifact.Kind, m nameMatch) artifact.ReviewEntry {
	return artifact.ReviewEntry{
		ID:           artifact.EntryID(row.Dataset, row.Line, index),
		Row:          rowRef(row, m.name),
		Kind:         kind,
		Normalized:   m.normalized,
		Best:         artifact.FromCandidate(*m.result.Best),
		Alternatives: artifact.FromCandidates(m.result.Alternatives),
		Decision:     artifact.DecisionPending,
	}
}

func unmatchedEntry(row ingest.Row, kind artifact.Kind, m nameMatch) artifact.UnmatchedEntry {
	entry := artifact.UnmatchedEntry{
		Row:        rowRef(row, m.name),
		Kind:       kind,
		Normalized: m.normalized,
	}
	if score, ok := m.result.BestScore(); ok {
		entry.BestScoreSeen = &score
		entry.BestEntityID = m.result.Best.EntityID
	}
	return entry
}

func parentContext(m nameMatch) *artifact.ParentContext {
	pc := &artifact.ParentContext{
		Name:       m.name,
		Normalized: m.normalized,
		Tier:       m.result.Tier,
	}
	if m.result.Best != nil {
		best := artifact.FromCandidate(*m.result.Best)
		pc.Best = &best
		if m.result.Tier == match.TierAuto {
			pc.EntityID = m.result.Best.EntityID
		}
	}
	return pc
}
