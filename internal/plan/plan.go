package plan

import (
	"fmt"
	"sort"
	"sync"
)

// Document field names written by reconciliation
const (
	FieldSocial        = "social"
	FieldSubsidiaries  = "subsidiaries"
	FieldParentCompany = "parent_company"
	FieldParentID      = "parent_id"
)

// Kind is the shape of a field mutation
type Kind string

const (
	KindSetValue      Kind = "set_value"
	KindSetValueInMap Kind = "set_value_in_map"
	KindSetTrueInMap  Kind = "set_true_in_map"
)

// Origin records which input row produced a mutation
type Origin struct {
	Dataset string  `json:"dataset" yaml:"dataset"`
	Line    int     `json:"line" yaml:"line"`
	Score   float64 `json:"score" yaml:"score"`
}

// Mutation is one field change staged for an entity
type Mutation struct {
	Kind   Kind   `json:"kind" yaml:"kind"`
	Field  string `json:"field" yaml:"field"`
	Key    string `json:"key,omitempty" yaml:"key,omitempty"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
	Origin Origin `json:"origin" yaml:"origin"`
}

// SetValue sets a top-level field
func SetValue(field, value string, origin Origin) Mutation {
	return Mutation{Kind: KindSetValue, Field: field, Value: value, Origin: origin}
}

// SetValueInMap sets field[key] = value
func SetValueInMap(field, key, value string, origin Origin) Mutation {
	return Mutation{Kind: KindSetValueInMap, Field: field, Key: key, Value: value, Origin: origin}
}

// SetTrueInMap sets field[key] = true
func SetTrueInMap(field, key string, origin Origin) Mutation {
	return Mutation{Kind: KindSetTrueInMap, Field: field, Key: key, Origin: origin}
}

// Target is the document path the mutation writes
func (m Mutation) Target() string {
	if m.Kind == KindSetValue {
		return m.Field
	}
	return m.Field + "." + m.Key
}

func (m Mutation) String() string {
	switch m.Kind {
	case KindSetTrueInMap:
		return fmt.Sprintf("%s = true", m.Target())
	default:
		return fmt.Sprintf("%s = %q", m.Target(), m.Value)
	}
}

// preferred reports whether a wins over b for the same target: higher score,
// then earlier dataset and line, then the smaller value
func preferred(a, b Mutation) bool {
	if a.Origin.Score != b.Origin.Score {
		return a.Origin.Score > b.Origin.Score
	}
	if a.Origin.Dataset != b.Origin.Dataset {
		return a.Origin.Dataset < b.Origin.Dataset
	}
	if a.Origin.Line != b.Origin.Line {
		return a.Origin.Line < b.Origin.Line
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.Value < b.Value
}

// Conflict is two staged mutations writing different values to one target
type Conflict struct {
	EntityID string   `json:"entity_id" yaml:"entity_id"`
	Target   string   `json:"target" yaml:"target"`
	Kept     Mutation `json:"kept" yaml:"kept"`
	Dropped  Mutation `json:"dropped" yaml:"dropped"`
}

// WritePlan accumulates mutations per entity. It is safe for concurrent use.
// The resulting content does not depend on the order mutations were staged in.
type WritePlan struct {
	mu        sync.Mutex
	entities  map[string]map[string]Mutation
	conflicts []Conflict
}

// New creates an empty plan
func New() *WritePlan {
	return &WritePlan{entities: make(map[string]map[string]Mutation)}
}

// Stage merges mutations into the entity's set and returns any conflicts they caused
func (p *WritePlan) Stage(entityID string, mutations ...Mutation) []Conflict {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stageLocked(entityID, mutations)
}

func (p *WritePlan) stageLocked(entityID string, mutations []Mutation) []Conflict {
	if len(mutations) == 0 {
		return nil
	}

	set, ok := p.entities[entityID]
	if !ok {
		set = make(map[string]Mutation)
		p.entities[entityID] = set
	}

	var conflicts []Conflict
	for _, m := range mutations {
		target := m.Target()
		existing, ok := set[target]
		if !ok {
			set[target] = m
			continue
		}

		kept, dropped := existing, m
		if preferred(m, existing) {
			kept, dropped = m, existing
		}
		set[target] = kept

		if kept.Kind != dropped.Kind || kept.Value != dropped.Value {
			conflicts = append(conflicts, Conflict{
				EntityID: entityID,
				Target:   target,
				Kept:     kept,
				Dropped:  dropped,
			})
		}
	}

	p.conflicts = append(p.conflicts, conflicts...)
	return conflicts
}

// Merge stages every mutation of other into p
func (p *WritePlan) Merge(other *WritePlan) []Conflict {
	if other == nil || other == p {
		return nil
	}

	snapshot := other.Snapshot()
	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	p.mu.Lock()
	defer p.mu.Unlock()

	var conflicts []Conflict
	for _, id := range ids {
		conflicts = append(conflicts, p.stageLocked(id, snapshot[id])...)
	}
	return conflicts
}

// Entities returns the IDs of every entity with staged mutations, sorted
func (p *WritePlan) Entities() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.entities))
	for id := range p.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Mutations returns the complete mutation set for one entity, ordered by target
func (p *WritePlan) Mutations(entityID string) []Mutation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return sortedMutations(p.entities[entityID])
}

// Snapshot copies the whole plan
func (p *WritePlan) Snapshot() map[string][]Mutation {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string][]Mutation, len(p.entities))
	for id, set := range p.entities {
		out[id] = sortedMutations(set)
	}
	return out
}

// Len returns the number of entities in the plan
func (p *WritePlan) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entities)
}

// MutationCount returns the number of staged mutations across all entities
func (p *WritePlan) MutationCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, set := range p.entities {
		n += len(set)
	}
	return n
}

// Conflicts returns every conflict seen while staging, ordered by entity and target
func (p *WritePlan) Conflicts() []Conflict {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := append([]Conflict(nil), p.conflicts...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EntityID != out[j].EntityID {
			return out[i].EntityID < out[j].EntityID
		}
		return out[i].Target < out[j].Target
	})
	return out
}

func sortedMutations(set map[string]Mutation) []Mutation {
	out := make([]Mutation, 0, len(set))
	for _, m := range set {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Target() < out[j].Target()
	})
	return out
}
