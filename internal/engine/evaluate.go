package engine

import (
	"sync"

	"github.com/brandsync/reconciler/internal/ingest"
	"github.com/brandsync/reconciler/internal/match"
	"github.com/brandsync/reconciler/internal/normalize"
	"github.com/brandsync/reconciler/internal/validation"
)

// nameMatch is one classified name
type nameMatch struct {
	name       string
	normalized string
	result     match.Result
}

// subsidiaryMatch is a classified subsidiary and the tier it ends up with
// once the parent's tier is taken into account
type subsidiaryMatch struct {
	nameMatch
	index     int
	effective match.Tier
	self      bool
}

// evaluation is everything decided about one row before aggregation
type evaluation struct {
	row      ingest.Row
	filtered bool
	skipped  bool
	verdict  validation.Verdict

	contact    *ingest.ContactRow
	company    nameMatch
	parent     nameMatch
	subsidiary *ingest.SubsidiaryRow
	children   []subsidiaryMatch
}

// parentMemo shares parent classifications between rows naming the same parent
type parentMemo struct {
	mu      sync.Mutex
	results map[string]match.Result
}

func newParentMemo() *parentMemo {
	return &parentMemo{results: make(map[string]match.Result)}
}

func (m *parentMemo) get(normalized string, classify func() match.Result) match.Result {
	m.mu.Lock()
	r, ok := m.results[normalized]
	m.mu.Unlock()
	if ok {
		return r
	}

	r = classify()

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.results[normalized]; ok {
		return existing
	}
	m.results[normalized] = r
	return r
}

func (d *Driver) classifyName(name string) nameMatch {
	normalized := normalize.CompanyName(name)
	return nameMatch{
		name:       name,
		normalized: normalized,
		result:     d.classifier.Classify(d.scorer.ScoreNormalized(normalized)),
	}
}

func (d *Driver) evaluateContact(row ingest.Row) evaluation {
	contact := ingest.AsContact(row)
	ev := evaluation{row: row, contact: &contact}

	if d.cfg.Filter != nil && !d.cfg.Filter(contact.Company) {
		ev.filtered = true
		return ev
	}

	ev.verdict = d.validator.ValidateContact(contact)
	if !ev.verdict.Accepted {
		return ev
	}

	ev.company = d.classifyName(contact.Company)
	return ev
}

func (d *Driver) evaluateSubsidiary(row ingest.Row) evaluation {
	sub := ingest.AsSubsidiary(row)
	ev := evaluation{row: row, subsidiary: &sub}

	if d.cfg.Filter != nil && !d.cfg.Filter(sub.Parent) {
		ev.filtered = true
		return ev
	}

	ev.verdict = d.validator.ValidateSubsidiary(sub)
	if !ev.verdict.Accepted {
		return ev
	}
	if len(sub.Subsidiaries) == 0 {
		ev.skipped = true
		return ev
	}

	normalized := normalize.CompanyName(sub.Parent)
	ev.parent = nameMatch{
		name:       sub.Parent,
		normalized: normalized,
		result: d.parents.get(normalized, func() match.Result {
			return d.classifier.Classify(d.scorer.ScoreNormalized(normalized))
		}),
	}

	parentTier := ev.parent.result.Tier
	for i, name := range sub.Subsidiaries {
		if ev.verdict.Excludes(i) {
			continue
		}
		m := subsidiaryMatch{nameMatch: d.classifyName(name), index: i + 1}
		m.effective = m.result.Tier.Cap(parentTier)

		// a parent cannot be its own subsidiary
		if m.effective == match.TierAuto && m.result.Best.EntityID == ev.parent.result.Best.EntityID {
			m.self = true
			m.effective = match.TierReview
		}
		ev.children = append(ev.children, m)
	}

	return ev
}
